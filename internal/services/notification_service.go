package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/finware/notify/internal/bus"
	"github.com/finware/notify/internal/models"
	"github.com/finware/notify/internal/store"
	apperrors "github.com/finware/notify/pkg/errors"
	"github.com/finware/notify/pkg/logger"
	"github.com/finware/notify/pkg/metrics"
)

// Topic derives the per-user delivery topic. Producers and consumers must
// derive the identical string independently; a mismatch silently drops
// delivery, so this helper is the only place the shape lives.
func Topic(userID int64) string {
	return fmt.Sprintf("%d.notify", userID)
}

// Subscription is the concrete bus subscription type carried by live streams.
type Subscription = bus.Subscription[models.Notification]

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID      int64
	Title       string
	Content     string
	ReferenceID string
	Type        models.NotificationType
	Metadata    map[string]any
}

// NotificationService wraps the bus with domain operations and owns the
// create-then-publish orchestration used by the event intake.
type NotificationService struct {
	store store.NotificationStore
	bus   *bus.Bus[models.Notification]
	log   *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(st store.NotificationStore, b *bus.Bus[models.Notification]) (*NotificationService, error) {
	if st == nil {
		return nil, errors.New("notification service: store is required")
	}
	if b == nil {
		return nil, errors.New("notification service: bus is required")
	}
	return &NotificationService{
		store: st,
		bus:   b,
		log:   logger.WithModule("notifications"),
	}, nil
}

// Emit publishes the notification on topic. Best-effort to currently-live
// subscribers; durability is already guaranteed by the preceding store write.
func (s *NotificationService) Emit(topic string, notification models.Notification) {
	s.bus.Publish(topic, notification)
	metrics.EventsPublished.WithLabelValues(string(notification.Type)).Inc()
}

// Subscribe registers a live subscriber on topic.
func (s *NotificationService) Subscribe(topic string) *Subscription {
	return s.bus.Subscribe(topic)
}

// CreateAndEmit persists the notification and, only on success, publishes it
// on the owning user's topic. A record that failed to persist must never be
// observed live: it would not survive a reconnect snapshot.
func (s *NotificationService) CreateAndEmit(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	if input.UserID <= 0 {
		return nil, apperrors.NewBadRequest("userId is required")
	}
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, apperrors.NewBadRequest("title and content are required")
	}

	record := models.Notification{
		UserID:      input.UserID,
		Title:       title,
		Content:     content,
		ReferenceID: strings.TrimSpace(input.ReferenceID),
		Type:        input.Type,
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(data)
	}

	created, err := s.store.Create(ctx, &record)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithInternal(err)
	}

	s.Emit(Topic(created.UserID), *created)
	s.log.Debug("notification created",
		zap.Uint("id", created.ID),
		zap.Int64("user_id", created.UserID),
		zap.String("type", string(created.Type)),
	)
	return created, nil
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Notification, error) {
	rows, err := s.store.FindByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithInternal(err)
	}
	return rows, nil
}

// UnreadCount returns the user's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	count, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperrors.ErrStoreUnavailable.WithInternal(err)
	}
	return count, nil
}

// MarkAsRead flips the read flag on a notification. Idempotent.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uint) error {
	switch err := s.store.MarkAsRead(ctx, id); {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperrors.ErrNotFound
	default:
		return apperrors.ErrStoreUnavailable.WithInternal(err)
	}
}
