package models

import "time"

// Subscription states mirrored verbatim from the payment processor.
const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusUnpaid            = "unpaid"
)

// IsAllowedSubscriptionStatus reports whether the processor status is one of
// the states we store. Unrecognized statuses are rejected, never stored.
func IsAllowedSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue,
		SubscriptionStatusCanceled, SubscriptionStatusIncomplete,
		SubscriptionStatusIncompleteExpired, SubscriptionStatusUnpaid:
		return true
	default:
		return false
	}
}

// Subscription mirrors the processor's subscription lifecycle for a tenant.
// Created, updated and deleted exclusively by the subscription synchronizer;
// the authoritative row per tenant is the latest by id.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	TenantID               uint       `gorm:"not null;index" json:"tenant_id"`
	Tenant                 Tenant     `gorm:"foreignKey:TenantID" json:"-"`
	PlanID                 uint       `gorm:"not null;index" json:"plan_id"`
	Plan                   Plan       `gorm:"foreignKey:PlanID" json:"-"`
	ExternalSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_subscription_id"`
	ExternalCustomerID     string     `gorm:"type:varchar(191);index" json:"external_customer_id"`
	ExternalPriceID        string     `gorm:"type:varchar(191)" json:"external_price_id"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt             *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	TrialStart             *time.Time `gorm:"type:timestamp;default:null" json:"trial_start,omitempty"`
	TrialEnd               *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
