package models

import "time"

const (
	LedgerTypeBookingPayment      = "booking_payment"
	LedgerTypeSubscriptionPayment = "subscription_payment"
	LedgerTypeRefund              = "refund"
	LedgerTypePayout              = "payout"
	LedgerTypeAdjustment          = "adjustment"
)

const (
	LedgerStatusCompleted = "completed"
	LedgerStatusPending   = "pending"
)

// LedgerTransaction is the immutable audit trail for money movement. Refunds
// are new rows back-referencing the original transaction, never edits: the sum
// of a booking's rows reconciles to its net settled amount.
type LedgerTransaction struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Type                  string    `gorm:"type:varchar(30);not null;index" json:"type"`
	TenantID              uint      `gorm:"not null;index:idx_ledger_tenant_period,priority:1" json:"tenant_id"`
	BookingID             *uint     `gorm:"index" json:"booking_id,omitempty"`
	SubscriptionID        *uint     `gorm:"index" json:"subscription_id,omitempty"`
	OriginalTransactionID *uint     `gorm:"index" json:"original_transaction_id,omitempty"`
	GrossCents            int64     `gorm:"not null" json:"gross_cents"`
	ProcessorFeeCents     int64     `gorm:"not null;default:0" json:"processor_fee_cents"`
	PlatformFeeCents      int64     `gorm:"not null;default:0" json:"platform_fee_cents"`
	FeeBpsAtTime          int64     `gorm:"not null;default:0" json:"fee_bps_at_time"`
	NetCents              int64     `gorm:"not null" json:"net_cents"`
	Status                string    `gorm:"type:varchar(20);not null;default:'completed'" json:"status"`
	Period                string    `gorm:"type:varchar(7);not null;index:idx_ledger_tenant_period,priority:2" json:"period"`
	Year                  int       `gorm:"not null;index" json:"year"`
	ExternalReference     string    `gorm:"type:varchar(191)" json:"external_reference"`
	CreatedAt             time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
