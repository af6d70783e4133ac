package subscription

import "time"

// Update is the provider-agnostic shape applied by the synchronizer. Pointer
// fields are "set when non-nil"; empty strings leave the stored value alone
// except Status and Tier, which are always required.
type Update struct {
	Status                 string
	Tier                   string
	ProviderSubscriptionID string
	ProviderCustomerID     string
	PriceID                string
	StartedAt              *time.Time
	EndsAt                 *time.Time
	RenewsAt               *time.Time
	CanceledAt             *time.Time
	MetadataJSON           string

	// Audit context. Every Apply writes exactly one audit row.
	Action        string
	Source        string
	ActorUserID   uint
	CorrelationID string
}

// ValidationResult is the outcome of a transition validation. It is always
// well-formed; validation never panics or errors out.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
