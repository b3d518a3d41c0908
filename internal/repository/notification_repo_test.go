package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/models"
)

func TestNotificationRepositoryScopesByRecipient(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	user := models.UserRecipient(7)
	admin := models.AdminRecipient(7)
	other := models.UserRecipient(8)

	seedNotification(t, repo, user, "For user 7")
	seedNotification(t, repo, user, "Also for user 7")
	seedNotification(t, repo, admin, "For admin 7")
	seedNotification(t, repo, other, "For user 8")

	items, err := repo.ListByRecipient(context.Background(), user, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Same numeric id, different kind: the admin must not see user mail.
	items, err = repo.ListByRecipient(context.Background(), admin, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "For admin 7", items[0].Title)

	count, err := repo.UnreadCount(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestNotificationRepositoryListOrdersNewestFirstAndLimits(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	recipient := models.UserRecipient(1)
	for i := 0; i < 3; i++ {
		n := models.Notification{
			RecipientID:   recipient.ID(),
			RecipientType: recipient.Kind(),
			Type:          models.NotificationTypeInfo,
			Title:         "entry",
			Message:       "entry",
			CreatedAt:     time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&n).Error)
	}

	items, err := repo.ListByRecipient(context.Background(), recipient, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, items[0].CreatedAt.After(items[1].CreatedAt), "expected newest first")
}

func TestNotificationRepositoryMarkReadIsIdempotent(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	recipient := models.UserRecipient(3)
	created := seedNotification(t, repo, recipient, "Read me")

	first, err := repo.MarkRead(context.Background(), created.ID, recipient)
	require.NoError(t, err)
	require.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	second, err := repo.MarkRead(context.Background(), created.ID, recipient)
	require.NoError(t, err)
	require.True(t, second.IsRead)
	require.NotNil(t, second.ReadAt)
	require.True(t, first.ReadAt.Equal(*second.ReadAt), "ReadAt must not move on repeat calls")
}

func TestNotificationRepositoryMarkReadRejectsForeignRecipient(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	owner := models.UserRecipient(3)
	created := seedNotification(t, repo, owner, "Private")

	_, err := repo.MarkRead(context.Background(), created.ID, models.UserRecipient(4))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.MarkRead(context.Background(), created.ID, models.AdminRecipient(3))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNotificationRepositoryMarkAllRead(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	recipient := models.UserRecipient(5)
	seedNotification(t, repo, recipient, "one")
	seedNotification(t, repo, recipient, "two")
	seedNotification(t, repo, models.UserRecipient(6), "someone else")

	affected, err := repo.MarkAllRead(context.Background(), recipient)
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)

	count, err := repo.UnreadCount(context.Background(), recipient)
	require.NoError(t, err)
	require.Zero(t, count)

	// Repeat run touches nothing.
	affected, err = repo.MarkAllRead(context.Background(), recipient)
	require.NoError(t, err)
	require.Zero(t, affected)

	otherCount, err := repo.UnreadCount(context.Background(), models.UserRecipient(6))
	require.NoError(t, err)
	require.Equal(t, int64(1), otherCount)
}

func TestNotificationRepositoryDeleteExpired(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	recipient := models.UserRecipient(9)
	old := models.Notification{
		RecipientID:   recipient.ID(),
		RecipientType: recipient.Kind(),
		Type:          models.NotificationTypeInfo,
		Title:         "stale",
		Message:       "stale",
		CreatedAt:     time.Now().Add(-models.NotificationTTL - time.Hour),
	}
	require.NoError(t, db.Create(&old).Error)
	seedNotification(t, repo, recipient, "fresh")

	removed, err := repo.DeleteExpired(context.Background(), time.Now().Add(-models.NotificationTTL))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	items, err := repo.ListByRecipient(context.Background(), recipient, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "fresh", items[0].Title)
}

func TestNotificationRepositoryCreateDefaultsPriority(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	created := seedNotification(t, repo, models.UserRecipient(1), "default priority")
	require.Equal(t, models.PriorityMedium, created.Priority)
}

func seedNotification(t *testing.T, repo NotificationRepository, recipient models.Recipient, title string) models.Notification {
	t.Helper()
	n := models.Notification{
		RecipientID:   recipient.ID(),
		RecipientType: recipient.Kind(),
		Type:          models.NotificationTypeInfo,
		Title:         title,
		Message:       title,
	}
	require.NoError(t, repo.Create(context.Background(), &n))
	return n
}

func setupTestDB(t *testing.T, entities ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}
