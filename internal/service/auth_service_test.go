package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/audit"
	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/repository"
)

type recordingRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingRecorder) Record(entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingRecorder) byAction(action string) []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Entry
	for _, entry := range r.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

func newAuthFixture(t *testing.T) (AuthService, *gorm.DB, *recordingRecorder, NotificationService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Admin{}, &models.Notification{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	recorder := &recordingRecorder{}

	notifications := NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		repository.NewAdminRepository(db),
		nil, 0, nil,
		validate,
		zerolog.Nop(),
	)

	svc := NewAuthService(
		repository.NewUserRepository(db),
		repository.NewAdminRepository(db),
		notifications,
		recorder,
		validate,
		"test-secret",
		time.Hour,
		30*time.Minute,
		zerolog.Nop(),
	)
	return svc, db, recorder, notifications
}

func seedActiveUser(t *testing.T, db *gorm.DB, serviceNumber, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		ServiceNumber: serviceNumber,
		Name:          "Jordan Reyes",
		Email:         serviceNumber + "@army.test",
		PasswordHash:  string(hash),
		Status:        models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestAuthServiceSignupCreatesPendingAndNotifiesAdmins(t *testing.T) {
	svc, db, _, notifications := newAuthFixture(t)

	admin := models.Admin{Name: "Duty Officer", Email: "duty@army.test", PasswordHash: "x"}
	require.NoError(t, db.Create(&admin).Error)

	user, err := svc.Signup(context.Background(), dto.SignupRequest{
		ServiceNumber: "nss-123456",
		Name:          "Jordan Reyes",
		Email:         "Jordan@Army.Test",
		Password:      "strong-password",
		Rank:          "Sergeant",
		Unit:          "2nd Battalion",
	})
	require.NoError(t, err)
	require.Equal(t, models.UserStatusPending, user.Status)
	require.Equal(t, "NSS-123456", user.ServiceNumber, "service numbers are normalised to upper case")
	require.Equal(t, "jordan@army.test", user.Email)

	unread, err := notifications.UnreadCount(context.Background(), models.AdminRecipient(admin.ID))
	require.NoError(t, err)
	require.Equal(t, int64(1), unread)

	_, err = svc.Signup(context.Background(), dto.SignupRequest{
		ServiceNumber: "NSS-123456",
		Name:          "Someone Else",
		Email:         "else@army.test",
		Password:      "strong-password",
	})
	require.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestAuthServiceLoginUserSucceeds(t *testing.T) {
	svc, db, _, _ := newAuthFixture(t)
	seedActiveUser(t, db, "NSS-000001", "correct horse")

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		ServiceNumber: "nss-000001",
		Password:      "correct horse",
	}, "10.0.0.1", "test")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "user", resp.Role)
	require.NotNil(t, resp.User)
	require.Nil(t, resp.Admin)
	require.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestAuthServiceLoginRejectsPendingAccount(t *testing.T) {
	svc, db, _, _ := newAuthFixture(t)
	user := seedActiveUser(t, db, "NSS-000002", "correct horse")
	require.NoError(t, db.Model(&user).Update("status", models.UserStatusPending).Error)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		ServiceNumber: "NSS-000002",
		Password:      "correct horse",
	}, "10.0.0.1", "test")
	require.ErrorIs(t, err, ErrAccountNotActive)
}

func TestAuthServiceLoginLocksAfterRepeatedFailures(t *testing.T) {
	svc, db, recorder, notifications := newAuthFixture(t)
	user := seedActiveUser(t, db, "NSS-000003", "correct horse")

	for i := 0; i < failedLoginThreshold; i++ {
		_, err := svc.Login(context.Background(), dto.LoginRequest{
			ServiceNumber: "NSS-000003",
			Password:      "wrong",
		}, "10.0.0.1", "test")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	var locked models.User
	require.NoError(t, db.First(&locked, user.ID).Error)
	require.Equal(t, models.UserStatusLocked, locked.Status)
	require.Equal(t, failedLoginThreshold, locked.FailedLogins)
	require.NotNil(t, locked.LockedUntil)

	// Correct password while the lock window is open still fails.
	_, err := svc.Login(context.Background(), dto.LoginRequest{
		ServiceNumber: "NSS-000003",
		Password:      "correct horse",
	}, "10.0.0.1", "test")
	require.ErrorIs(t, err, ErrAccountLocked)

	require.Len(t, recorder.byAction(models.ActionFailedLogin), failedLoginThreshold)

	lockEntries := recorder.byAction(models.ActionAccountLocked)
	require.Len(t, lockEntries, 1)
	require.Equal(t, models.ActorTypeSystem, lockEntries[0].ActorType)
	require.NotNil(t, lockEntries[0].TargetUserID)
	require.Equal(t, user.ID, *lockEntries[0].TargetUserID)

	unread, err := notifications.UnreadCount(context.Background(), models.UserRecipient(user.ID))
	require.NoError(t, err)
	require.Equal(t, int64(1), unread, "the user gets a lockout warning notification")
}

func TestAuthServiceLoginReopensExpiredLock(t *testing.T) {
	svc, db, _, _ := newAuthFixture(t)
	user := seedActiveUser(t, db, "NSS-000004", "correct horse")

	expired := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&user).Updates(map[string]interface{}{
		"status":        models.UserStatusLocked,
		"failed_logins": failedLoginThreshold,
		"locked_until":  expired,
	}).Error)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		ServiceNumber: "NSS-000004",
		Password:      "correct horse",
	}, "10.0.0.1", "test")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	var reopened models.User
	require.NoError(t, db.First(&reopened, user.ID).Error)
	require.Equal(t, models.UserStatusActive, reopened.Status)
	require.Zero(t, reopened.FailedLogins)
}

func TestAuthServiceLoginAdminByEmail(t *testing.T) {
	svc, db, _, _ := newAuthFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin pass"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := models.Admin{Name: "Duty Officer", Email: "duty@army.test", PasswordHash: string(hash)}
	require.NoError(t, db.Create(&admin).Error)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "Duty@Army.Test",
		Password: "admin pass",
	}, "10.0.0.1", "test")
	require.NoError(t, err)
	require.Equal(t, "admin", resp.Role)
	require.NotNil(t, resp.Admin)
	require.Nil(t, resp.User)
	require.Equal(t, admin.ID, resp.Admin.ID)
}

func TestAuthServiceLoginUnknownAccountRecordsFailure(t *testing.T) {
	svc, _, recorder, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		ServiceNumber: "NSS-999999",
		Password:      "whatever",
	}, "10.0.0.1", "test")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	failures := recorder.byAction(models.ActionFailedLogin)
	require.Len(t, failures, 1)
	require.Nil(t, failures[0].TargetUserID)
	require.Equal(t, "NSS-999999", failures[0].Metadata["principal"])
}
