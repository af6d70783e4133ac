package subscription

import (
	"fmt"
	"strings"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
)

// ProposedState is a client-proposed change to subscription fields.
type ProposedState struct {
	Status                 string `json:"status"`
	Tier                   string `json:"tier"`
	ProviderSubscriptionID string `json:"stripeSubscriptionId"`
}

// CurrentState is the stored state a proposal is validated against.
type CurrentState struct {
	Status                 string
	Tier                   string
	ProviderSubscriptionID string
}

// ValidateTransition checks a proposed subscription-field transition against
// the allowed value sets. It is pure and total: no side effects, never
// panics, always returns a result.
func ValidateTransition(current CurrentState, proposed ProposedState) ValidationResult {
	var errs []string

	status := strings.ToLower(strings.TrimSpace(proposed.Status))
	if status == "" {
		errs = append(errs, "status is required")
	} else if !models.IsValidSubscriptionStatus(status) {
		errs = append(errs, fmt.Sprintf("unknown subscription status %q", proposed.Status))
	}

	if tier := strings.ToLower(strings.TrimSpace(proposed.Tier)); tier != "" && !models.IsValidTier(tier) {
		errs = append(errs, fmt.Sprintf("unknown subscription tier %q", proposed.Tier))
	}

	// A transition into a provider-backed state needs a provider reference,
	// either proposed or already stored.
	if models.HasActiveSubscription(status) || status == models.SubscriptionStatusPastDue {
		if strings.TrimSpace(proposed.ProviderSubscriptionID) == "" && strings.TrimSpace(current.ProviderSubscriptionID) == "" {
			errs = append(errs, "provider subscription id is required for status "+status)
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
