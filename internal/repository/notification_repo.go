package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/models"
)

// NotificationRepository handles persistence for notification records.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipient models.Recipient, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipient models.Recipient) (int64, error)
	MarkRead(ctx context.Context, id uint, recipient models.Recipient) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipient models.Recipient) (int64, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.Priority == "" {
		notification.Priority = models.PriorityMedium
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipient models.Recipient, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []models.Notification
	if err := r.recipientScope(ctx, recipient).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipient models.Recipient) (int64, error) {
	var count int64
	if err := r.recipientScope(ctx, recipient).
		Where("is_read = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead is idempotent: a second call on the same id succeeds without
// touching ReadAt.
func (r *notificationRepository) MarkRead(ctx context.Context, id uint, recipient models.Recipient) (models.Notification, error) {
	var notification models.Notification
	if err := r.recipientScope(ctx, recipient).Where("id = ?", id).First(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	if notification.IsRead {
		return notification, nil
	}

	now := time.Now().UTC()
	notification.IsRead = true
	notification.ReadAt = &now
	if err := r.db.WithContext(ctx).Save(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	return notification, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipient models.Recipient) (int64, error) {
	now := time.Now().UTC()
	result := r.recipientScope(ctx, recipient).
		Where("is_read = ?", false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) recipientScope(ctx context.Context, recipient models.Recipient) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND recipient_type = ?", recipient.ID(), recipient.Kind())
}
