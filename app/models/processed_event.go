package models

import "time"

// ProcessedEvent is the replay guard for inbound processor notifications.
// The unique index on EventID is the sole mutual-exclusion mechanism between
// concurrent deliveries of the same event: the row's existence is the dedup
// signal. Append-only; rows are never updated or deleted in normal operation.
type ProcessedEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	EventID        string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"event_id"`
	EventType      string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	EventCreatedAt time.Time `gorm:"type:timestamp;not null" json:"event_created_at"`
	ProcessedAt    time.Time `gorm:"autoCreateTime" json:"processed_at"`
}
