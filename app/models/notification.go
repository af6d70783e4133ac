package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationTypePaymentFailed = "payment_failed"
	NotificationTypeSystem        = "system"
)

type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index" json:"user_id"`
	Type      string         `gorm:"type:varchar(50)" json:"type" validate:"oneof=payment_failed system"`
	Content   string         `gorm:"type:text" json:"content"`
	IsRead    bool           `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MarkAsRead marks a notification as read.
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification creates a new notification for a user.
func CreateNotification(db *gorm.DB, userID uint, notificationType string, content string) error {
	notification := Notification{
		UserID:  userID,
		Type:    notificationType,
		Content: content,
		IsRead:  false,
	}

	return db.Create(&notification).Error
}
