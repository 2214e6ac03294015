package stream

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/finware/notify/internal/models"
	"github.com/finware/notify/internal/services"
	"github.com/finware/notify/pkg/logger"
)

// Frame is one discrete message unit sent over the live delivery stream.
// The first frame of every connection carries the authoritative unread count;
// every later frame carries a fixed delta of one plus the notification. The
// client accumulates; the server never recomputes a running total, which
// avoids racing the snapshot read against concurrent publishes.
type Frame struct {
	UnreadCount  int64                `json:"unreadCount"`
	Notification *models.Notification `json:"notification,omitempty"`
	Missed       bool                 `json:"missed,omitempty"`
}

// LiveCounter opens per-subscriber snapshot-then-stream sequences.
type LiveCounter struct {
	notifications *services.NotificationService
	log           *zap.Logger
}

// NewLiveCounter constructs a LiveCounter.
func NewLiveCounter(notifications *services.NotificationService) (*LiveCounter, error) {
	if notifications == nil {
		return nil, errors.New("stream: notification service is required")
	}
	return &LiveCounter{
		notifications: notifications,
		log:           logger.WithModule("stream"),
	}, nil
}

// Open starts a live sequence for userID. The unread-count snapshot is read
// to completion and queued before the live subscription forwards anything, so
// the count frame is always first. A store outage fails the whole setup: a
// defaulted zero count would lie to the client.
//
// The returned channel closes when ctx is cancelled or the bus shuts down;
// cancellation deterministically unregisters the subscription.
func (l *LiveCounter) Open(ctx context.Context, userID int64) (<-chan Frame, error) {
	count, err := l.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub := l.notifications.Subscribe(services.Topic(userID))

	frames := make(chan Frame, 1)
	frames <- Frame{UnreadCount: count}

	l.log.Debug("live stream opened",
		zap.Int64("user_id", userID),
		zap.String("subscription", sub.ID()),
		zap.Int64("unread", count),
	)

	go l.forward(ctx, sub, frames, userID)
	return frames, nil
}

func (l *LiveCounter) forward(ctx context.Context, sub *services.Subscription, frames chan<- Frame, userID int64) {
	defer close(frames)
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			l.log.Debug("live stream closed", zap.Int64("user_id", userID))
			return
		case notification, ok := <-sub.C():
			if !ok {
				return
			}

			frame := Frame{UnreadCount: 1, Notification: &notification}
			if sub.TakeMissed() {
				frame.Missed = true
			}

			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}
