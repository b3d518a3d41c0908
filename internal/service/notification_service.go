package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/observability"
	"github.com/perscom/personnel-api/internal/repository"
)

const (
	natsNotificationSubject = "personnel.notifications"
	natsNotificationQueue   = "personnel-notifications"
)

// ErrNotificationNotFound indicates the notification does not exist for the
// recipient.
var ErrNotificationNotFound = errors.New("notification not found")

// NewNotification describes a notification to be created.
type NewNotification struct {
	Recipient models.Recipient
	Type      string
	Title     string
	Message   string
	Priority  string
	ActionURL string
}

// NotificationService is the store contract the delivery loop and the
// business services depend on.
type NotificationService interface {
	// Notify creates a notification and swallows failures: business actions
	// must never fail because a notification could not be persisted. The
	// returned record is nil when creation failed.
	Notify(ctx context.Context, n NewNotification) *models.Notification
	Feed(ctx context.Context, recipient models.Recipient, limit int) (dto.NotificationFeedResponse, error)
	UnreadCount(ctx context.Context, recipient models.Recipient) (int64, error)
	MarkRead(ctx context.Context, id uint, recipient models.Recipient) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, recipient models.Recipient) (int64, error)
	Send(ctx context.Context, payload dto.NotificationSendRequest) (int, error)
	Start(ctx context.Context)
}

type notificationService struct {
	repo           repository.NotificationRepository
	users          repository.UserRepository
	admins         repository.AdminRepository
	cache          *redis.Client
	cacheTTL       time.Duration
	nats           *nats.Conn
	validator      *validator.Validate
	logger         zerolog.Logger
	tracer         trace.Tracer
	sanitizer      *bluemonday.Policy
	janitorEvery   time.Duration
	retention      time.Duration
	nodeID         string
	now            func() time.Time
}

// NewNotificationService constructs the notification service. The redis
// client and NATS connection are optional; absent ones disable the unread
// cache and cross-node events respectively.
func NewNotificationService(
	repo repository.NotificationRepository,
	users repository.UserRepository,
	admins repository.AdminRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	natsConn *nats.Conn,
	validate *validator.Validate,
	logger zerolog.Logger,
) NotificationService {
	return &notificationService{
		repo:         repo,
		users:        users,
		admins:       admins,
		cache:        cache,
		cacheTTL:     cacheTTL,
		nats:         natsConn,
		validator:    validate,
		logger:       logger.With().Str("component", "notification_service").Logger(),
		tracer:       otel.Tracer("github.com/perscom/personnel-api/internal/service/notification"),
		sanitizer:    bluemonday.StrictPolicy(),
		janitorEvery: time.Hour,
		retention:    models.NotificationTTL,
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

// Start launches the retention janitor and the NATS event consumer. Both
// stop when the context is cancelled.
func (s *notificationService) Start(ctx context.Context) {
	go s.runJanitor(ctx)
	if s.nats != nil {
		go s.consumeEvents(ctx)
	}
}

func (s *notificationService) Notify(ctx context.Context, n NewNotification) *models.Notification {
	record, err := s.create(ctx, n)
	if err != nil {
		s.logger.Error().Err(err).
			Str("recipient", n.Recipient.String()).
			Str("type", n.Type).
			Msg("failed to create notification")
		return nil
	}
	return record
}

func (s *notificationService) create(ctx context.Context, n NewNotification) (*models.Notification, error) {
	if n.Recipient.IsZero() {
		return nil, errors.New("notification recipient is required")
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(n.Title))
	message := strings.TrimSpace(s.sanitizer.Sanitize(n.Message))
	if title == "" || message == "" {
		return nil, errors.New("notification text empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.create", trace.WithAttributes(
		attribute.String("notification.recipient", n.Recipient.String()),
		attribute.String("notification.type", n.Type),
	))
	defer span.End()

	record := models.Notification{
		RecipientID:   n.Recipient.ID(),
		RecipientType: n.Recipient.Kind(),
		Type:          n.Type,
		Title:         title,
		Message:       message,
		Priority:      n.Priority,
		ActionURL:     n.ActionURL,
	}

	if err := s.repo.Create(spanCtx, &record); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.invalidateUnread(spanCtx, n.Recipient)
	s.publishEvent(spanCtx, n.Recipient, record.Type)
	observability.NotificationsCreated().WithLabelValues(record.Type).Inc()

	return &record, nil
}

func (s *notificationService) Feed(ctx context.Context, recipient models.Recipient, limit int) (dto.NotificationFeedResponse, error) {
	notifications, err := s.repo.ListByRecipient(ctx, recipient, limit)
	if err != nil {
		return dto.NotificationFeedResponse{}, err
	}

	unread, err := s.UnreadCount(ctx, recipient)
	if err != nil {
		return dto.NotificationFeedResponse{}, err
	}

	observability.NotificationPolls().WithLabelValues(recipient.Kind()).Inc()

	return dto.NotificationFeedResponse{
		Notifications: dto.NewNotificationResponseSlice(notifications),
		UnreadCount:   unread,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, recipient models.Recipient) (int64, error) {
	cacheKey := unreadCacheKey(recipient)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			if count, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				return count, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read unread-count cache")
		}
	}

	count, err := s.repo.UnreadCount(ctx, recipient)
	if err != nil {
		return 0, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, count, s.cacheTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to write unread-count cache")
		}
	}

	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, recipient models.Recipient) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("notification.recipient", recipient.String()),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, recipient)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	s.invalidateUnread(spanCtx, recipient)

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, recipient models.Recipient) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, recipient)
	if err != nil {
		return 0, err
	}

	s.invalidateUnread(ctx, recipient)

	return count, nil
}

func (s *notificationService) Send(ctx context.Context, payload dto.NotificationSendRequest) (int, error) {
	if err := s.validator.Struct(payload); err != nil {
		return 0, err
	}
	if !payload.Broadcast && len(payload.RecipientIDs) == 0 {
		return 0, errors.New("recipient ids or broadcast required")
	}

	recipients, err := s.resolveRecipients(ctx, payload)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, recipient := range recipients {
		if record := s.Notify(ctx, NewNotification{
			Recipient: recipient,
			Type:      payload.Type,
			Title:     payload.Title,
			Message:   payload.Message,
			Priority:  payload.Priority,
			ActionURL: payload.ActionURL,
		}); record != nil {
			created++
		}
	}

	return created, nil
}

func (s *notificationService) resolveRecipients(ctx context.Context, payload dto.NotificationSendRequest) ([]models.Recipient, error) {
	asRecipient := models.UserRecipient
	if payload.RecipientType == models.RecipientTypeAdmin {
		asRecipient = models.AdminRecipient
	}

	if !payload.Broadcast {
		recipients := make([]models.Recipient, 0, len(payload.RecipientIDs))
		for _, id := range payload.RecipientIDs {
			recipients = append(recipients, asRecipient(id))
		}
		return recipients, nil
	}

	if payload.RecipientType == models.RecipientTypeAdmin {
		admins, err := s.admins.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		recipients := make([]models.Recipient, 0, len(admins))
		for _, admin := range admins {
			recipients = append(recipients, models.AdminRecipient(admin.ID))
		}
		return recipients, nil
	}

	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	recipients := make([]models.Recipient, 0, len(users))
	for _, user := range users {
		recipients = append(recipients, models.UserRecipient(user.ID))
	}
	return recipients, nil
}

func (s *notificationService) invalidateUnread(ctx context.Context, recipient models.Recipient) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadCacheKey(recipient)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate unread-count cache")
	}
}

func (s *notificationService) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(s.janitorEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := s.now().Add(-s.retention)
			deleted, err := s.repo.DeleteExpired(ctx, cutoff)
			if err != nil {
				s.logger.Error().Err(err).Msg("notification janitor sweep failed")
				continue
			}
			if deleted > 0 {
				s.logger.Info().Int64("deleted", deleted).Msg("expired notifications removed")
			}
		}
	}
}

type notificationEvent struct {
	Source    string    `json:"source"`
	Recipient string    `json:"recipient"`
	Type      string    `json:"type"`
	SentAt    time.Time `json:"sent_at"`
}

func (s *notificationService) publishEvent(ctx context.Context, recipient models.Recipient, notificationType string) {
	if s.nats == nil {
		return
	}

	payload, err := json.Marshal(notificationEvent{
		Source:    s.nodeID,
		Recipient: recipient.String(),
		Type:      notificationType,
		SentAt:    s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode notification event")
		return
	}

	if err := s.nats.Publish(natsNotificationSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification event")
	}
}

func (s *notificationService) consumeEvents(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(natsNotificationSubject, natsNotificationQueue, func(msg *nats.Msg) {
		var event notificationEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			s.logger.Warn().Err(err).Msg("invalid notification event payload")
			return
		}
		if event.Source == s.nodeID {
			return
		}
		s.logger.Debug().
			Str("recipient", event.Recipient).
			Str("type", event.Type).
			Msg("notification event received from peer node")
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to notification events")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification event subscription")
		}
	}()
}

func unreadCacheKey(recipient models.Recipient) string {
	return "notifications:unread:" + recipient.String()
}
