package models

import "time"

const (
	SubscriptionStatusInactive = "inactive"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

const (
	TierMonthly  = "monthly"
	TierAnnual   = "annual"
	TierLifetime = "lifetime"
)

// Billing provider constants used across subscription-related models.
const (
	ProviderStripe = "stripe"
)

// Subscriber is the canonical record of a user's subscription state. It is
// written only by the synchronizer; the user projection and the integrity
// auditor read it.
type Subscriber struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'inactive';index" json:"status"`
	Tier                   string     `gorm:"type:varchar(32);not null;default:'monthly'" json:"tier"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);index" json:"provider_subscription_id"`
	ProviderCustomerID     string     `gorm:"type:varchar(191);index" json:"provider_customer_id"`
	PriceID                string     `gorm:"type:varchar(191)" json:"price_id"`
	StartedAt              *time.Time `gorm:"type:timestamp;default:null" json:"started_at,omitempty"`
	EndsAt                 *time.Time `gorm:"type:timestamp;default:null" json:"ends_at,omitempty"`
	RenewsAt               *time.Time `gorm:"type:timestamp;default:null" json:"renews_at,omitempty"`
	CanceledAt             *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	MetadataJSON           string     `gorm:"type:text" json:"metadata_json"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidSubscriptionStatus reports whether s is a defined status enum value.
func IsValidSubscriptionStatus(s string) bool {
	switch s {
	case SubscriptionStatusInactive, SubscriptionStatusActive, SubscriptionStatusTrialing,
		SubscriptionStatusPastDue, SubscriptionStatusCanceled:
		return true
	default:
		return false
	}
}

// IsValidTier reports whether t is a defined tier enum value.
func IsValidTier(t string) bool {
	switch t {
	case TierMonthly, TierAnnual, TierLifetime:
		return true
	default:
		return false
	}
}

// HasActiveSubscription derives the user projection flag from a status.
func HasActiveSubscription(status string) bool {
	return status == SubscriptionStatusActive || status == SubscriptionStatusTrialing
}
