package subscription

import (
	"strings"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
)

// MapProviderStatus maps a Stripe subscription status onto the local status
// enum. The overlapping values map 1:1; provider-only states collapse onto
// the nearest local one.
func MapProviderStatus(providerStatus string) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "active":
		return models.SubscriptionStatusActive
	case "trialing":
		return models.SubscriptionStatusTrialing
	case "past_due", "unpaid":
		return models.SubscriptionStatusPastDue
	case "canceled", "cancelled":
		return models.SubscriptionStatusCanceled
	default:
		return models.SubscriptionStatusInactive
	}
}

// inferTierFromPriceID applies the substring heuristic for prices that have
// no mapping-table entry.
func inferTierFromPriceID(priceID string) string {
	id := strings.ToLower(strings.TrimSpace(priceID))
	switch {
	case id == "":
		return ""
	case strings.Contains(id, "lifetime") || strings.Contains(id, "life"):
		return models.TierLifetime
	case strings.Contains(id, "annual") || strings.Contains(id, "year"):
		return models.TierAnnual
	case strings.Contains(id, "month"):
		return models.TierMonthly
	default:
		return ""
	}
}

func normalizeTier(tier string) string {
	t := strings.ToLower(strings.TrimSpace(tier))
	if models.IsValidTier(t) {
		return t
	}
	return ""
}

// isReconcilableStatus reports whether a stored status belongs to the set the
// integrity auditor re-checks against the provider. Accepts the legacy
// "trial" spelling alongside "trialing".
func isReconcilableStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, "trial", models.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// ReconcilableStatuses is the stored-status set scanned by integrity runs.
func ReconcilableStatuses() []string {
	return []string{
		models.SubscriptionStatusActive,
		models.SubscriptionStatusTrialing,
		models.SubscriptionStatusPastDue,
	}
}
