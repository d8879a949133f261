package models

import "time"

// Plan maps an external processor price to a local subscription plan.
type Plan struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Code              string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name              string    `gorm:"type:varchar(100);not null" json:"name"`
	ExternalPriceID   string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"external_price_id"`
	MonthlyPriceCents int64     `gorm:"not null;default:0" json:"monthly_price_cents"`
	IsActive          bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
