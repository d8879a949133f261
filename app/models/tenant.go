package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)

// Pricing tiers determine the platform commission taken from each payment.
const (
	TierBase = "base"
	TierMid  = "mid"
	TierTop  = "top"
)

// Connect account states mirrored from the payment processor.
const (
	ConnectStatusPending    = "pending"
	ConnectStatusActive     = "active"
	ConnectStatusRestricted = "restricted"
	ConnectStatusDisabled   = "disabled"
)

type Tenant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Slug      string         `gorm:"uniqueIndex;type:varchar(100);not null" json:"slug" validate:"required,min=3,max=100"`
	Email     string         `gorm:"type:varchar(200);not null" json:"email" validate:"required,email"`
	Status    string         `gorm:"type:varchar(20);default:'active'" json:"status" validate:"oneof=active inactive"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Tenant) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// TenantBillingProfile holds the billing configuration and processor connect
// state for a tenant. It is mutated only by the inbound event processor (on
// account status notifications) or the onboarding flow, never by clients.
type TenantBillingProfile struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	TenantID         uint   `gorm:"not null;uniqueIndex" json:"tenant_id"`
	Tenant           Tenant `gorm:"foreignKey:TenantID" json:"-"`
	PricingTier      string `gorm:"type:varchar(10);not null;default:'base'" json:"pricing_tier"`
	// FeeOverrideBps overrides the tier commission in basis points. A stored 0
	// means fully exempt; NULL means no override.
	FeeOverrideBps   *int64    `gorm:"default:null" json:"fee_override_bps,omitempty"`
	ConnectAccountID string    `gorm:"type:varchar(191);index" json:"connect_account_id"`
	ConnectStatus    string    `gorm:"type:varchar(20);not null;default:'pending'" json:"connect_status"`
	DetailsSubmitted bool      `gorm:"default:false" json:"details_submitted"`
	ChargesEnabled   bool      `gorm:"default:false" json:"charges_enabled"`
	PayoutsEnabled   bool      `gorm:"default:false" json:"payouts_enabled"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanCollectPayments reports whether checkouts may be created for the tenant.
func (p *TenantBillingProfile) CanCollectPayments() bool {
	return p.ConnectAccountID != "" && p.ConnectStatus == ConnectStatusActive && p.ChargesEnabled
}
