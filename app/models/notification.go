package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationTypePayment = "payment"
	NotificationTypeRefund  = "refund"
	NotificationTypeWebhook = "webhook"
	NotificationTypeSystem  = "system"
)

// Notification is an in-app alert for a tenant, written alongside financial
// mutations and webhook endpoint state changes.
type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TenantID    uint           `gorm:"index" json:"tenant_id"`
	Tenant      Tenant         `gorm:"foreignKey:TenantID" json:"-"`
	Type        string         `gorm:"type:varchar(50)" json:"type" validate:"oneof=payment refund webhook system"`
	Content     string         `gorm:"type:text" json:"content"`
	IsRead      bool           `gorm:"default:false" json:"is_read"`
	ReferenceID uint           `json:"reference_id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// MarkAsRead marks a notification as read.
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification stores a new tenant notification.
func CreateNotification(db *gorm.DB, tenantID uint, notificationType string, content string, referenceID uint) error {
	notification := Notification{
		TenantID:    tenantID,
		Type:        notificationType,
		Content:     content,
		ReferenceID: referenceID,
		IsRead:      false,
	}

	return db.Create(&notification).Error
}
