package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// WebhookEndpoint is a tenant-registered target for outbound event
// notifications. The signing secret is server generated and shown once.
type WebhookEndpoint struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	TenantID           uint           `gorm:"not null;index" json:"tenant_id"`
	Tenant             Tenant         `gorm:"foreignKey:TenantID" json:"-"`
	URL                string         `gorm:"type:varchar(500);not null" json:"url"`
	Secret             string         `gorm:"type:varchar(100);not null" json:"-"`
	EventsJSON         string         `gorm:"type:text;not null" json:"-"`
	IsActive           bool           `gorm:"default:true;index" json:"is_active"`
	LastDeliveryAt     *time.Time     `gorm:"type:timestamp;default:null" json:"last_delivery_at,omitempty"`
	LastDeliveryStatus string         `gorm:"type:varchar(20)" json:"last_delivery_status,omitempty"`
	FailureCount       int            `gorm:"default:0" json:"failure_count"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// Events returns the subscribed event names.
func (e *WebhookEndpoint) Events() []string {
	var events []string
	if err := json.Unmarshal([]byte(e.EventsJSON), &events); err != nil {
		return nil
	}
	return events
}

// SetEvents stores the subscribed event names.
func (e *WebhookEndpoint) SetEvents(events []string) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	e.EventsJSON = string(data)
	return nil
}

// SubscribesTo reports whether the endpoint wants the given event name.
// A single "*" entry subscribes to everything.
func (e *WebhookEndpoint) SubscribesTo(event string) bool {
	for _, name := range e.Events() {
		if name == "*" || strings.EqualFold(name, event) {
			return true
		}
	}
	return false
}
