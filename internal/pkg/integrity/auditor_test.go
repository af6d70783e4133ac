package integrity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go"
	"gorm.io/gorm"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/subscription"
)

type fakeGateway struct {
	subs map[string]*stripe.Subscription
	errs map[string]error
}

func (g *fakeGateway) GetSubscription(id string) (*stripe.Subscription, error) {
	if err, ok := g.errs[id]; ok {
		return nil, err
	}
	if sub, ok := g.subs[id]; ok {
		return sub, nil
	}
	return nil, errors.New("no such subscription")
}

func (g *fakeGateway) GetCustomer(id string) (*stripe.Customer, error) {
	return nil, errors.New("not implemented")
}

// memRepo is a minimal in-memory subscription.Repository for auditor tests.
type memRepo struct {
	subscribers map[uint]*models.Subscriber
	users       map[uint]*models.User
	audits      []models.AuditLog
	runs        []models.IntegrityCheckRun
}

func newMemRepo(subs ...*models.Subscriber) *memRepo {
	r := &memRepo{
		subscribers: map[uint]*models.Subscriber{},
		users:       map[uint]*models.User{},
	}
	for _, sub := range subs {
		r.subscribers[sub.UserID] = sub
		r.users[sub.UserID] = &models.User{ID: sub.UserID}
	}
	return r
}

func (r *memRepo) GetSubscriberByUserID(userID uint) (*models.Subscriber, error) {
	if sub, ok := r.subscribers[userID]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) GetSubscriberByProviderSubscriptionID(provider, id string) (*models.Subscriber, error) {
	for _, sub := range r.subscribers {
		if sub.ProviderSubscriptionID == id {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) GetSubscriberByProviderCustomerID(provider, id string) (*models.Subscriber, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) ListSubscribersByStatus(statuses []string) ([]models.Subscriber, error) {
	var out []models.Subscriber
	for _, sub := range r.subscribers {
		for _, status := range statuses {
			if sub.Status == status {
				out = append(out, *sub)
				break
			}
		}
	}
	return out, nil
}

func (r *memRepo) ApplySubscriptionUpdate(userID uint, mutate func(sub *models.Subscriber), entry *models.AuditLog) error {
	sub, ok := r.subscribers[userID]
	if !ok {
		sub = &models.Subscriber{UserID: userID, Status: models.SubscriptionStatusInactive}
		r.subscribers[userID] = sub
	}
	mutate(sub)
	user := r.users[userID]
	if user == nil {
		user = &models.User{ID: userID}
		r.users[userID] = user
	}
	user.HasActiveSubscription = models.HasActiveSubscription(sub.Status)
	user.SubscriptionStatus = sub.Status
	user.SubscriptionTier = sub.Tier
	r.audits = append(r.audits, *entry)
	return nil
}

func (r *memRepo) FindActivePlanMapping(provider, priceID string) (*models.PlanMapping, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	return true, event, nil
}

func (r *memRepo) MarkWebhookProcessed(id uint, processingError string) error { return nil }

func (r *memRepo) CreatePaymentIfNotExists(p *models.PaymentHistory) (bool, error) {
	return true, nil
}

func (r *memRepo) CreateNotification(n *models.Notification) error { return nil }

func (r *memRepo) AppendAuditLog(entry *models.AuditLog) error {
	r.audits = append(r.audits, *entry)
	return nil
}

func (r *memRepo) GetUserByID(id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) CreateIntegrityCheckRun(run *models.IntegrityCheckRun) error {
	r.runs = append(r.runs, *run)
	return nil
}

func TestRun_DriftIsCorrectedWithAutofix(t *testing.T) {
	repo := newMemRepo(&models.Subscriber{
		UserID:                 1,
		Status:                 models.SubscriptionStatusActive,
		Tier:                   models.TierMonthly,
		ProviderSubscriptionID: "sub_1",
	})
	gateway := &fakeGateway{subs: map[string]*stripe.Subscription{
		"sub_1": {ID: "sub_1", Status: stripe.SubscriptionStatusCanceled},
	}}
	auditor := NewAuditor(subscription.NewService(repo), gateway)

	summary, err := auditor.Run(context.Background(), models.IntegrityTriggerScheduled, true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 0, summary.Valid)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 0, summary.Alerted)

	// The stored record now matches the provider and the projection followed.
	assert.Equal(t, models.SubscriptionStatusCanceled, repo.subscribers[1].Status)
	assert.False(t, repo.users[1].HasActiveSubscription)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionIntegritySync, repo.audits[0].Action)
	assert.Equal(t, models.AuditSourceIntegrity, repo.audits[0].Source)

	require.Len(t, repo.runs, 1)
	assert.Equal(t, models.IntegrityTriggerScheduled, repo.runs[0].Trigger)
	assert.Equal(t, 1, repo.runs[0].SyncedCount)
}

func TestRun_DriftWithoutAutofixOnlyAlerts(t *testing.T) {
	repo := newMemRepo(&models.Subscriber{
		UserID:                 1,
		Status:                 models.SubscriptionStatusActive,
		ProviderSubscriptionID: "sub_1",
	})
	gateway := &fakeGateway{subs: map[string]*stripe.Subscription{
		"sub_1": {ID: "sub_1", Status: stripe.SubscriptionStatusPastDue},
	}}
	auditor := NewAuditor(subscription.NewService(repo), gateway)

	summary, err := auditor.Run(context.Background(), models.IntegrityTriggerManual, false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Alerted)
	assert.Equal(t, 0, summary.Synced)
	// Stored state is untouched.
	assert.Equal(t, models.SubscriptionStatusActive, repo.subscribers[1].Status)
	assert.Empty(t, repo.audits)
}

func TestRun_ProviderFetchErrorAlertsWithoutMutation(t *testing.T) {
	repo := newMemRepo(&models.Subscriber{
		UserID:                 1,
		Status:                 models.SubscriptionStatusActive,
		ProviderSubscriptionID: "sub_1",
	})
	gateway := &fakeGateway{errs: map[string]error{"sub_1": errors.New("api unavailable")}}
	auditor := NewAuditor(subscription.NewService(repo), gateway)

	summary, err := auditor.Run(context.Background(), models.IntegrityTriggerScheduled, true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Alerted)
	assert.Equal(t, 0, summary.Synced)
	require.Len(t, summary.Results, 1)
	assert.Contains(t, summary.Results[0].Error, "provider fetch failed")
	assert.Equal(t, models.SubscriptionStatusActive, repo.subscribers[1].Status)
	assert.Empty(t, repo.audits)
}

func TestRun_MissingProviderReferenceAlerts(t *testing.T) {
	repo := newMemRepo(&models.Subscriber{
		UserID: 1,
		Status: models.SubscriptionStatusActive,
	})
	auditor := NewAuditor(subscription.NewService(repo), &fakeGateway{})

	summary, err := auditor.Run(context.Background(), models.IntegrityTriggerScheduled, true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Alerted)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, models.IntegrityActionAlert, summary.Results[0].Action)
	assert.Contains(t, summary.Results[0].Error, "no provider subscription id")
}

func TestRun_MatchingStateIsValid(t *testing.T) {
	repo := newMemRepo(
		&models.Subscriber{UserID: 1, Status: models.SubscriptionStatusActive, ProviderSubscriptionID: "sub_1"},
		&models.Subscriber{UserID: 2, Status: models.SubscriptionStatusTrialing, ProviderSubscriptionID: "sub_2"},
		&models.Subscriber{UserID: 3, Status: models.SubscriptionStatusCanceled, ProviderSubscriptionID: "sub_3"},
	)
	gateway := &fakeGateway{subs: map[string]*stripe.Subscription{
		"sub_1": {ID: "sub_1", Status: stripe.SubscriptionStatusActive},
		"sub_2": {ID: "sub_2", Status: stripe.SubscriptionStatusTrialing},
	}}
	auditor := NewAuditor(subscription.NewService(repo), gateway)

	summary, err := auditor.Run(context.Background(), models.IntegrityTriggerScheduled, true)
	require.NoError(t, err)

	// Canceled subscribers are out of scope for the scan.
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 2, summary.Valid)
	assert.Equal(t, 0, summary.Invalid)
	assert.Empty(t, repo.audits)
}

func TestRun_OneFailureDoesNotAbortTheScan(t *testing.T) {
	repo := newMemRepo(
		&models.Subscriber{UserID: 1, Status: models.SubscriptionStatusActive, ProviderSubscriptionID: "sub_1"},
		&models.Subscriber{UserID: 2, Status: models.SubscriptionStatusActive, ProviderSubscriptionID: "sub_2"},
	)
	gateway := &fakeGateway{
		subs: map[string]*stripe.Subscription{
			"sub_2": {ID: "sub_2", Status: stripe.SubscriptionStatusActive},
		},
		errs: map[string]error{"sub_1": errors.New("timeout")},
	}
	auditor := NewAuditor(subscription.NewService(repo), gateway)

	summary, err := auditor.Run(context.Background(), models.IntegrityTriggerScheduled, true)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Valid)
	assert.Equal(t, 1, summary.Alerted)
}

func TestCheckUser_SingleSubscriber(t *testing.T) {
	repo := newMemRepo(&models.Subscriber{
		UserID:                 5,
		Status:                 models.SubscriptionStatusPastDue,
		ProviderSubscriptionID: "sub_5",
	})
	gateway := &fakeGateway{subs: map[string]*stripe.Subscription{
		"sub_5": {ID: "sub_5", Status: stripe.SubscriptionStatusActive},
	}}
	auditor := NewAuditor(subscription.NewService(repo), gateway)

	result, err := auditor.CheckUser(context.Background(), 5, true)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.IntegrityActionSync, result.Action)
	assert.Equal(t, models.SubscriptionStatusActive, repo.subscribers[5].Status)

	_, err = auditor.CheckUser(context.Background(), 99, true)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
