package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/repository"
)

func newAdminFixture(t *testing.T) (AdminService, *gorm.DB, NotificationService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Admin{}, &models.Notification{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	notifications := NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		repository.NewAdminRepository(db),
		nil, 0, nil,
		validate,
		zerolog.Nop(),
	)

	svc := NewAdminService(repository.NewUserRepository(db), notifications, validate, zerolog.Nop())
	return svc, db, notifications
}

func seedUser(t *testing.T, db *gorm.DB, serviceNumber, status string) models.User {
	t.Helper()
	user := models.User{
		ServiceNumber: serviceNumber,
		Name:          "Casey Morgan",
		Email:         serviceNumber + "@army.test",
		PasswordHash:  "x",
		Status:        status,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestAdminServiceApproveActivatesAndNotifies(t *testing.T) {
	svc, db, notifications := newAdminFixture(t)
	user := seedUser(t, db, "NSS-100001", models.UserStatusPending)

	approved, err := svc.ApproveUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, models.UserStatusActive, approved.Status)

	feed, err := notifications.Feed(context.Background(), models.UserRecipient(user.ID), 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), feed.UnreadCount)
	require.Len(t, feed.Notifications, 1)
	require.Equal(t, models.NotificationTypeApproval, feed.Notifications[0].Type)
	require.Equal(t, "/dashboard", feed.Notifications[0].ActionURL)
}

func TestAdminServiceApproveRequiresPendingStatus(t *testing.T) {
	svc, db, _ := newAdminFixture(t)
	user := seedUser(t, db, "NSS-100002", models.UserStatusActive)

	_, err := svc.ApproveUser(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrUserNotPending)

	_, err = svc.ApproveUser(context.Background(), 999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminServiceRejectIncludesReason(t *testing.T) {
	svc, db, notifications := newAdminFixture(t)
	user := seedUser(t, db, "NSS-100003", models.UserStatusPending)

	rejected, err := svc.RejectUser(context.Background(), user.ID, "incomplete paperwork")
	require.NoError(t, err)
	require.Equal(t, models.UserStatusRejected, rejected.Status)

	feed, err := notifications.Feed(context.Background(), models.UserRecipient(user.ID), 0)
	require.NoError(t, err)
	require.Len(t, feed.Notifications, 1)
	require.Equal(t, models.NotificationTypeRejection, feed.Notifications[0].Type)
	require.Contains(t, feed.Notifications[0].Message, "incomplete paperwork")
}

func TestAdminServiceChangeStatusResetsLockCounters(t *testing.T) {
	svc, db, _ := newAdminFixture(t)
	user := seedUser(t, db, "NSS-100004", models.UserStatusLocked)
	require.NoError(t, db.Model(&user).Update("failed_logins", 5).Error)

	changed, err := svc.ChangeStatus(context.Background(), user.ID, dto.StatusChangeRequest{Status: models.UserStatusActive})
	require.NoError(t, err)
	require.Equal(t, models.UserStatusActive, changed.Status)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.Zero(t, stored.FailedLogins)
	require.Nil(t, stored.LockedUntil)
}

func TestAdminServiceChangeStatusValidatesValue(t *testing.T) {
	svc, db, _ := newAdminFixture(t)
	user := seedUser(t, db, "NSS-100005", models.UserStatusActive)

	_, err := svc.ChangeStatus(context.Background(), user.ID, dto.StatusChangeRequest{Status: "discharged"})
	require.Error(t, err)
}

func TestAdminServiceImportCreatesAndSkips(t *testing.T) {
	svc, db, _ := newAdminFixture(t)
	seedUser(t, db, "NSS-200001", models.UserStatusActive)

	payload := []byte(`{"users":[
		{"service_number":"NSS-200001","name":"Already Here","email":"dup@army.test"},
		{"service_number":"NSS-200002","name":"Riley Quinn","email":"riley@army.test","rank":"Corporal","unit":"1st Squadron"}
	]}`)

	result, err := svc.ImportUsers(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	require.Equal(t, 1, result.Skipped)

	var imported models.User
	require.NoError(t, db.First(&imported, "service_number = ?", "NSS-200002").Error)
	require.Equal(t, models.UserStatusActive, imported.Status)
	require.Equal(t, "!imported", imported.PasswordHash)
	require.Equal(t, "Corporal", imported.Rank)
}

func TestAdminServiceImportRejectsSchemaViolations(t *testing.T) {
	svc, _, _ := newAdminFixture(t)

	cases := map[string]string{
		"bad service number": `{"users":[{"service_number":"12345","name":"Riley","email":"riley@army.test"}]}`,
		"missing users":      `{}`,
		"empty list":         `{"users":[]}`,
		"unknown field":      `{"users":[{"service_number":"NSS-200003","name":"Riley","email":"riley@army.test","password":"nope"}]}`,
		"malformed email":    `{"users":[{"service_number":"NSS-200004","name":"Riley","email":"not-an-email"}]}`,
		"not json":           `users: []`,
	}

	for name, payload := range cases {
		_, err := svc.ImportUsers(context.Background(), []byte(payload))
		require.ErrorIs(t, err, ErrInvalidImport, name)
	}
}

func TestAdminServiceListUsersFilters(t *testing.T) {
	svc, db, _ := newAdminFixture(t)
	seedUser(t, db, "NSS-300001", models.UserStatusPending)
	seedUser(t, db, "NSS-300002", models.UserStatusActive)
	seedUser(t, db, "NSS-300003", models.UserStatusActive)

	all, err := svc.ListUsers(context.Background(), dto.AdminUserListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(3), all.Pagination.TotalItems)
	require.Len(t, all.Items, 3)

	active, err := svc.ListUsers(context.Background(), dto.AdminUserListRequest{Page: 1, PageSize: 10, Status: models.UserStatusActive})
	require.NoError(t, err)
	require.Equal(t, int64(2), active.Pagination.TotalItems)

	export, err := svc.ExportUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, export, 3)
}
