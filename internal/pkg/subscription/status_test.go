package subscription

import (
	"testing"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
)

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "active", want: models.SubscriptionStatusActive},
		{in: "trialing", want: models.SubscriptionStatusTrialing},
		{in: "past_due", want: models.SubscriptionStatusPastDue},
		{in: "unpaid", want: models.SubscriptionStatusPastDue},
		{in: "canceled", want: models.SubscriptionStatusCanceled},
		{in: "CANCELED", want: models.SubscriptionStatusCanceled},
		{in: "incomplete", want: models.SubscriptionStatusInactive},
		{in: "", want: models.SubscriptionStatusInactive},
		{in: "something_else", want: models.SubscriptionStatusInactive},
	}

	for _, tt := range tests {
		if got := MapProviderStatus(tt.in); got != tt.want {
			t.Fatalf("MapProviderStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInferTierFromPriceID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "price_annual_2024", want: models.TierAnnual},
		{in: "price_yearly", want: models.TierAnnual},
		{in: "price_monthly_basic", want: models.TierMonthly},
		{in: "price_lifetime", want: models.TierLifetime},
		{in: "price_xyz", want: ""},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := inferTierFromPriceID(tt.in); got != tt.want {
			t.Fatalf("inferTierFromPriceID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsReconcilableStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "trial", "past_due"} {
		if !isReconcilableStatus(status) {
			t.Fatalf("expected status %q to be reconcilable", status)
		}
	}
	for _, status := range []string{"canceled", "inactive", ""} {
		if isReconcilableStatus(status) {
			t.Fatalf("expected status %q to not be reconcilable", status)
		}
	}
}
