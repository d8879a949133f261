package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	BookingPaymentUnpaid   = "unpaid"
	BookingPaymentPaid     = "paid"
	BookingPaymentRefunded = "refunded"
)

// Booking is the minimal booking surface the billing engine needs: who owes
// what and whether it has been settled. Availability and pricing logic live
// outside this core.
type Booking struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TenantID      uint           `gorm:"not null;index" json:"tenant_id"`
	Tenant        Tenant         `gorm:"foreignKey:TenantID" json:"-"`
	Reference     string         `gorm:"type:varchar(50);uniqueIndex" json:"reference"`
	CustomerEmail string         `gorm:"type:varchar(200)" json:"customer_email"`
	AmountCents   int64          `gorm:"not null" json:"amount_cents"`
	Currency      string         `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	PaymentStatus string         `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"payment_status"`
	PaidAt        *time.Time     `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
