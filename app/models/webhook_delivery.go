package models

import "time"

const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusRetrying  = "retrying"
	DeliveryStatusFailed    = "failed"
)

// DefaultDeliveryMaxAttempts is the attempt cap for regular deliveries.
const DefaultDeliveryMaxAttempts = 5

// WebhookDelivery tracks one outbound notification to one endpoint through the
// retry state machine until it is delivered or failed.
type WebhookDelivery struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	DeliveryID     string          `gorm:"type:varchar(50);not null;uniqueIndex" json:"delivery_id"`
	EndpointID     uint            `gorm:"not null;index" json:"endpoint_id"`
	Endpoint       WebhookEndpoint `gorm:"foreignKey:EndpointID" json:"-"`
	TenantID       uint            `gorm:"not null;index" json:"tenant_id"`
	Event          string          `gorm:"type:varchar(100);not null;index" json:"event"`
	Payload        string          `gorm:"type:longtext;not null" json:"payload"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending';index:idx_deliveries_due,priority:1" json:"status"`
	Attempts       int             `gorm:"default:0" json:"attempts"`
	MaxAttempts    int             `gorm:"default:5" json:"max_attempts"`
	NextRetryAt    *time.Time      `gorm:"type:timestamp;default:null;index:idx_deliveries_due,priority:2" json:"next_retry_at,omitempty"`
	ResponseStatus int             `gorm:"default:0" json:"response_status"`
	ResponseBody   string          `gorm:"type:text" json:"response_body,omitempty"`
	LastError      string          `gorm:"type:text" json:"last_error,omitempty"`
	DeliveredAt    *time.Time      `gorm:"type:timestamp;default:null" json:"delivered_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDue reports whether the delivery should be attempted at the given time.
func (d *WebhookDelivery) IsDue(now time.Time) bool {
	if d.Status != DeliveryStatusPending && d.Status != DeliveryStatusRetrying {
		return false
	}
	if d.Attempts >= d.MaxAttempts {
		return false
	}
	return d.NextRetryAt == nil || !d.NextRetryAt.After(now)
}
