package models

import "time"

const (
	PaymentStatusPending           = "pending"
	PaymentStatusSucceeded         = "succeeded"
	PaymentStatusFailed            = "failed"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
)

const (
	PaymentTypeFull    = "full"
	PaymentTypeDeposit = "deposit"
)

// Payment records a single collected (or attempted) customer payment. It is
// created when a checkout completes and mutated only by refund operations and
// inbound processor notifications. Once RefundedCents == AmountCents the row
// no longer changes.
type Payment struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	TenantID         uint       `gorm:"not null;index" json:"tenant_id"`
	Tenant           Tenant     `gorm:"foreignKey:TenantID" json:"-"`
	BookingID        uint       `gorm:"not null;index" json:"booking_id"`
	Booking          Booking    `gorm:"foreignKey:BookingID" json:"-"`
	AmountCents      int64      `gorm:"not null" json:"amount_cents"`
	Currency         string     `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Type             string     `gorm:"type:varchar(10);not null;default:'full'" json:"type"`
	PaymentIntentID  string     `gorm:"type:varchar(191);index" json:"payment_intent_id"`
	ChargeID         string     `gorm:"type:varchar(191);index" json:"charge_id"`
	SessionID        string     `gorm:"type:varchar(191);index" json:"session_id"`
	PlatformFeeCents int64      `gorm:"not null;default:0" json:"platform_fee_cents"`
	NetCents         int64      `gorm:"not null;default:0" json:"net_cents"`
	RefundedCents    int64      `gorm:"not null;default:0" json:"refunded_cents"`
	RefundReason     string     `gorm:"type:varchar(100)" json:"refund_reason,omitempty"`
	FailureCode      string     `gorm:"type:varchar(100)" json:"failure_code,omitempty"`
	PaidAt           *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RemainingRefundableCents returns how much of the payment can still be refunded.
func (p *Payment) RemainingRefundableCents() int64 {
	return p.AmountCents - p.RefundedCents
}

// IsRefundable reports whether the payment is in a state that permits refunds.
func (p *Payment) IsRefundable() bool {
	return p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusPartiallyRefunded
}
