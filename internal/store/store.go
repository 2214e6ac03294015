package store

import (
	"context"
	"errors"

	"github.com/finware/notify/internal/models"
)

// ErrNotFound reports an operation against an unknown notification id.
var ErrNotFound = errors.New("store: notification not found")

// NotificationStore is the durable persistence contract the delivery core
// depends on. Implementations assign the surrogate id and creation timestamp
// on create and must keep mark-as-read idempotent.
type NotificationStore interface {
	// Create persists the record with read=false and returns it with id and
	// createdAt populated.
	Create(ctx context.Context, record *models.Notification) (*models.Notification, error)

	// FindByUser lists the user's notifications, newest first.
	FindByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Notification, error)

	// UnreadCount reports how many of the user's notifications are unread.
	UnreadCount(ctx context.Context, userID int64) (int64, error)

	// MarkAsRead flips the read flag to true. Marking an already-read record
	// succeeds and changes nothing; an unknown id yields ErrNotFound.
	MarkAsRead(ctx context.Context, id uint) error
}
