package models

import "time"

// WebhookEventStat is a per-day delivery count for one webhook event type.
// Rows are written only by the metrics flusher, which drains the pending
// Redis counters in batches.
type WebhookEventStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       time.Time `gorm:"type:date;not null;uniqueIndex:idx_stat_day_type" json:"day"`
	EventType string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_stat_day_type" json:"event_type"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
