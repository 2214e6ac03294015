package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/finware/notify/internal/models"
)

// GormStore implements NotificationStore on top of a gorm handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &GormStore{db: db}, nil
}

// Create persists the record. The read flag always starts false regardless of
// what the caller set.
func (s *GormStore) Create(ctx context.Context, record *models.Notification) (*models.Notification, error) {
	if record == nil {
		return nil, errors.New("store: record is required")
	}
	if record.UserID <= 0 {
		return nil, errors.New("store: user id is required")
	}

	record.ID = 0
	record.Read = false

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("store: create notification: %w", err)
	}
	return record, nil
}

// FindByUser lists the user's notifications, newest first.
func (s *GormStore) FindByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list notifications: %w", err)
	}
	return rows, nil
}

// UnreadCount reports the user's unread notification count.
func (s *GormStore) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: unread count: %w", err)
	}
	return count, nil
}

// MarkAsRead flips the read flag. Idempotent; unknown ids yield ErrNotFound.
func (s *GormStore) MarkAsRead(ctx context.Context, id uint) error {
	var record models.Notification
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("store: load notification: %w", err)
	}

	if record.Read {
		return nil
	}

	if err := s.db.WithContext(ctx).
		Model(&record).
		Update("is_read", true).Error; err != nil {
		return fmt.Errorf("store: mark as read: %w", err)
	}
	return nil
}
