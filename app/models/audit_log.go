package models

import "time"

// Audit actions written by the subscription synchronizer and the API layer.
const (
	AuditActionSubscriptionUpdated  = "subscription_updated"
	AuditActionSubscriptionCanceled = "subscription_canceled"
	AuditActionSubscriptionAccessed = "subscription_accessed"
	AuditActionIntegritySync        = "integrity_sync"
	AuditActionAccountCreated       = "account_created"
)

// Audit sources identifying which component performed a change.
const (
	AuditSourceWebhook   = "webhook"
	AuditSourceAPI       = "api"
	AuditSourceIntegrity = "integrity_check"
	AuditSourceAuth      = "auth"
)

// AuditLog is an append-only record of a state-changing action. Rows are
// never updated or deleted.
type AuditLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ActorUserID   uint      `gorm:"index" json:"actor_user_id"`
	TargetUserID  uint      `gorm:"index" json:"target_user_id"`
	Action        string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Source        string    `gorm:"type:varchar(50);not null" json:"source"`
	DetailsJSON   string    `gorm:"type:text" json:"details_json"`
	CorrelationID string    `gorm:"type:varchar(64);index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
