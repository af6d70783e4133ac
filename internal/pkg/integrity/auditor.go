package integrity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/stripegw"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/subscription"
	"github.com/gofiber/fiber/v2/log"
)

// CheckResult is the per-subscriber outcome of one integrity comparison.
type CheckResult struct {
	UserID         uint   `json:"user_id"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	StoredStatus   string `json:"stored_status"`
	ProviderStatus string `json:"provider_status,omitempty"`
	Valid          bool   `json:"valid"`
	Action         string `json:"action"`
	Error          string `json:"error,omitempty"`
}

// RunSummary aggregates one reconciliation pass.
type RunSummary struct {
	Trigger    string        `json:"trigger"`
	Checked    int           `json:"checked"`
	Valid      int           `json:"valid"`
	Invalid    int           `json:"invalid"`
	Synced     int           `json:"synced"`
	Alerted    int           `json:"alerted"`
	Results    []CheckResult `json:"results"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Auditor reconciles stored subscription status against the payment
// provider's authoritative state.
type Auditor struct {
	svc     *subscription.Service
	gateway stripegw.Gateway
}

// NewAuditor creates an auditor over the subscription service and an injected
// provider gateway.
func NewAuditor(svc *subscription.Service, gateway stripegw.Gateway) *Auditor {
	return &Auditor{svc: svc, gateway: gateway}
}

// Run scans every subscriber in a reconcilable status, compares each against
// the provider and auto-corrects drift when autofix is set. One subscriber's
// failure is recorded as an alert, never aborting the rest of the scan. Every
// run persists a single summary row.
func (a *Auditor) Run(ctx context.Context, trigger string, autofix bool) (*RunSummary, error) {
	summary := &RunSummary{
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	subs, err := a.svc.Repo().ListSubscribersByStatus(subscription.ReconcilableStatuses())
	if err != nil {
		return nil, fmt.Errorf("list reconcilable subscribers: %w", err)
	}

	for i := range subs {
		result := a.checkSubscriber(ctx, &subs[i], autofix)
		summary.Results = append(summary.Results, result)
		summary.Checked++
		if result.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		switch result.Action {
		case models.IntegrityActionSync:
			summary.Synced++
		case models.IntegrityActionAlert:
			summary.Alerted++
		}
	}

	summary.FinishedAt = time.Now().UTC()
	if err := a.persistSummary(summary); err != nil {
		return summary, err
	}
	log.Infof("integrity run (%s): checked=%d valid=%d invalid=%d synced=%d alerted=%d",
		trigger, summary.Checked, summary.Valid, summary.Invalid, summary.Synced, summary.Alerted)
	return summary, nil
}

// CheckUser runs the comparison for a single subscriber and returns the
// result synchronously. Used by the admin on-demand endpoint.
func (a *Auditor) CheckUser(ctx context.Context, userID uint, autofix bool) (*CheckResult, error) {
	sub, err := a.svc.Repo().GetSubscriberByUserID(userID)
	if err != nil {
		return nil, err
	}
	result := a.checkSubscriber(ctx, sub, autofix)
	return &result, nil
}

func (a *Auditor) checkSubscriber(ctx context.Context, sub *models.Subscriber, autofix bool) CheckResult {
	result := CheckResult{
		UserID:         sub.UserID,
		SubscriptionID: sub.ProviderSubscriptionID,
		StoredStatus:   sub.Status,
		Action:         models.IntegrityActionNone,
	}

	if sub.ProviderSubscriptionID == "" {
		// Unrecoverable locally: reconcilable status without a provider
		// reference to verify against.
		result.Valid = false
		result.Action = models.IntegrityActionAlert
		result.Error = "subscriber has no provider subscription id"
		return result
	}

	providerSub, err := a.gateway.GetSubscription(sub.ProviderSubscriptionID)
	if err != nil {
		result.Valid = false
		result.Action = models.IntegrityActionAlert
		result.Error = fmt.Sprintf("provider fetch failed: %v", err)
		return result
	}

	mapped := subscription.MapProviderStatus(string(providerSub.Status))
	result.ProviderStatus = mapped
	if mapped == sub.Status {
		result.Valid = true
		return result
	}

	result.Valid = false
	if !autofix {
		result.Action = models.IntegrityActionAlert
		result.Error = fmt.Sprintf("status drift: stored=%s provider=%s", sub.Status, mapped)
		return result
	}

	err = a.svc.Apply(ctx, sub.UserID, subscription.Update{
		Status:                 mapped,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		Action:                 models.AuditActionIntegritySync,
		Source:                 models.AuditSourceIntegrity,
	})
	if err != nil {
		result.Action = models.IntegrityActionAlert
		result.Error = fmt.Sprintf("corrective sync failed: %v", err)
		return result
	}
	result.Action = models.IntegrityActionSync
	return result
}

func (a *Auditor) persistSummary(summary *RunSummary) error {
	results, err := json.Marshal(summary.Results)
	if err != nil {
		return err
	}
	return a.svc.Repo().CreateIntegrityCheckRun(&models.IntegrityCheckRun{
		Trigger:      summary.Trigger,
		CheckedCount: summary.Checked,
		ValidCount:   summary.Valid,
		InvalidCount: summary.Invalid,
		SyncedCount:  summary.Synced,
		AlertedCount: summary.Alerted,
		ResultsJSON:  string(results),
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
	})
}
