// File: internal/notification/model.go
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type is the severity shown by the client.
type Type string

const (
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
	TypeSuccess Type = "success"
)

// Topics group notifications by the event that produced them.
const (
	TopicLowStock        = "low_stock"
	TopicRequestCreated  = "request_created"
	TopicRequestDecided  = "request_decided"
	TopicOrderDispatched = "order_dispatched"
	TopicOrderDelivered  = "order_delivered"
	TopicOrderReceived   = "order_received"
	TopicOrderCancelled  = "order_cancelled"
)

// Notification represents a user notification.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_notification_user_read" json:"user_id"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Type      Type       `gorm:"type:varchar(20);not null" json:"type"`
	Topic     string     `gorm:"type:varchar(50);not null;default:'';index" json:"topic,omitempty"`
	Link      *string    `gorm:"type:varchar(255)" json:"link,omitempty"`
	OrderID   *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	ProductID *uuid.UUID `gorm:"type:uuid;index" json:"product_id,omitempty"`
	RequestID *uuid.UUID `gorm:"type:uuid;index" json:"request_id,omitempty"`
	Read      bool       `gorm:"column:is_read;not null;default:false;index:idx_notification_user_read" json:"read"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// Message is what a producer hands to the service; one Notification row is
// written per recipient.
type Message struct {
	Title     string
	Body      string
	Type      Type
	Topic     string
	Link      *string
	OrderID   *uuid.UUID
	ProductID *uuid.UUID
	RequestID *uuid.UUID
}

// Recipient is an active user who receives notifications.
type Recipient struct {
	UserID      uuid.UUID
	DeviceToken string
}
