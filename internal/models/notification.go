package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType classifies a notification for display and routing on the
// client. Delivery never branches on it.
type NotificationType string

const (
	TypeInvoices NotificationType = "INVOICES"
	TypeReports  NotificationType = "REPORTS"
)

// Notification is the persisted record behind every live delivery. The read
// flag is the only field mutated after creation, and only false -> true.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      int64            `gorm:"not null;index:idx_notifications_user" json:"userId"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	ReferenceID string           `gorm:"type:varchar(64)" json:"referenceId"`
	Type        NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Read        bool             `gorm:"column:is_read;not null;default:false;index:idx_notifications_user" json:"read"`
	Metadata    datatypes.JSON   `json:"metadata,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
}
