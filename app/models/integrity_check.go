package models

import "time"

// Corrective actions an integrity run can record per subscriber.
const (
	IntegrityActionNone    = "none"
	IntegrityActionSync    = "sync"
	IntegrityActionAlert   = "alert"
	IntegrityActionDisable = "disable"
)

// Integrity run triggers.
const (
	IntegrityTriggerScheduled = "scheduled"
	IntegrityTriggerManual    = "manual"
)

// IntegrityCheckRun is the persisted summary of one reconciliation pass:
// aggregate counts plus the full per-subscriber result list as JSON.
type IntegrityCheckRun struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Trigger      string    `gorm:"type:varchar(20);not null;default:'scheduled'" json:"trigger"`
	CheckedCount int       `gorm:"not null;default:0" json:"checked_count"`
	ValidCount   int       `gorm:"not null;default:0" json:"valid_count"`
	InvalidCount int       `gorm:"not null;default:0" json:"invalid_count"`
	SyncedCount  int       `gorm:"not null;default:0" json:"synced_count"`
	AlertedCount int       `gorm:"not null;default:0" json:"alerted_count"`
	ResultsJSON  string    `gorm:"type:longtext" json:"results_json"`
	StartedAt    time.Time `gorm:"type:timestamp;not null" json:"started_at"`
	FinishedAt   time.Time `gorm:"type:timestamp;not null" json:"finished_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
