package subscription

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// ErrNoLocalUser marks webhook events referencing a subscription or customer
// with no matching local record. The ingestor acknowledges these instead of
// asking the provider to retry, since redelivery cannot resolve them.
var ErrNoLocalUser = errors.New("no local user for provider reference")

// Service synchronizes provider subscription state into the local store.
type Service struct {
	repo Repository
}

// NewService creates a subscription service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a subscription service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Repo exposes the underlying repository for collaborators that share it.
func (s *Service) Repo() Repository {
	return s.repo
}

// Apply writes an update to the subscriber record, the user projection and
// the audit log as one atomic unit. After a successful return the projected
// has_active_subscription flag agrees with the stored status; no intermediate
// state is observable.
func (s *Service) Apply(ctx context.Context, userID uint, in Update) error {
	_ = ctx
	if userID == 0 {
		return errors.New("user_id is required")
	}
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if !models.IsValidSubscriptionStatus(status) {
		return fmt.Errorf("invalid subscription status %q", in.Status)
	}
	tier := normalizeTier(in.Tier)

	action := in.Action
	if action == "" {
		action = models.AuditActionSubscriptionUpdated
	}
	details, _ := json.Marshal(map[string]string{
		"status": status,
		"tier":   tier,
	})
	entry := &models.AuditLog{
		ActorUserID:   in.ActorUserID,
		TargetUserID:  userID,
		Action:        action,
		Source:        in.Source,
		DetailsJSON:   string(details),
		CorrelationID: in.CorrelationID,
	}

	return s.repo.ApplySubscriptionUpdate(userID, func(sub *models.Subscriber) {
		sub.Status = status
		if tier != "" {
			sub.Tier = tier
		} else if sub.Tier == "" {
			sub.Tier = models.TierMonthly
		}
		if v := strings.TrimSpace(in.ProviderSubscriptionID); v != "" {
			sub.ProviderSubscriptionID = v
		}
		if v := strings.TrimSpace(in.ProviderCustomerID); v != "" {
			sub.ProviderCustomerID = v
		}
		if v := strings.TrimSpace(in.PriceID); v != "" {
			sub.PriceID = v
		}
		if in.StartedAt != nil {
			sub.StartedAt = in.StartedAt
		}
		if in.EndsAt != nil {
			sub.EndsAt = in.EndsAt
		}
		if in.RenewsAt != nil {
			sub.RenewsAt = in.RenewsAt
		}
		if in.CanceledAt != nil {
			sub.CanceledAt = in.CanceledAt
		}
		if in.MetadataJSON != "" {
			sub.MetadataJSON = in.MetadataJSON
		}
	}, entry)
}

// ResolveTier resolves a provider price to an internal tier: the
// plan-mapping table first, then the price-id substring heuristic, then
// product metadata, then the monthly default.
func (s *Service) ResolveTier(priceID, productTierMetadata string) string {
	if id := strings.TrimSpace(priceID); id != "" {
		if m, err := s.repo.FindActivePlanMapping(models.ProviderStripe, id); err == nil {
			if t := normalizeTier(m.Tier); t != "" {
				return t
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("plan mapping lookup failed for price %s: %v", id, err)
		}
	}
	if t := inferTierFromPriceID(priceID); t != "" {
		return t
	}
	if t := normalizeTier(productTierMetadata); t != "" {
		return t
	}
	return models.TierMonthly
}

// RecordWebhookEvent persists webhook payloads idempotently. The returned
// bool is false when the event was already recorded.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// ProcessEvent dispatches a parsed webhook event to its handler. Unrecognized
// types are logged and dropped without error so the provider stops
// redelivering them.
func (s *Service) ProcessEvent(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.handleSubscriptionUpserted(ctx, ev)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, ev)
	case EventInvoicePaid:
		return s.handleInvoice(ctx, ev, models.PaymentStatusPaid)
	case EventInvoicePaymentFailed:
		return s.handleInvoice(ctx, ev, models.PaymentStatusFailed)
	default:
		log.Infof("ignoring unhandled webhook event type %s (%s)", ev.Type, ev.ID)
		return nil
	}
}

func (s *Service) handleSubscriptionUpserted(ctx context.Context, ev *Event) error {
	p, err := ev.subscriptionPayload()
	if err != nil {
		return fmt.Errorf("decode subscription payload: %w", err)
	}
	userID, err := s.resolveUser(p.Metadata, p.ID, p.Customer)
	if err != nil {
		return err
	}

	metadata, _ := json.Marshal(p.Metadata)
	return s.Apply(ctx, userID, Update{
		Status:                 MapProviderStatus(p.Status),
		Tier:                   s.ResolveTier(p.PriceID(), p.ProductTierMetadata()),
		ProviderSubscriptionID: p.ID,
		ProviderCustomerID:     p.Customer,
		PriceID:                p.PriceID(),
		StartedAt:              unixTime(p.StartDate),
		EndsAt:                 unixTime(p.CurrentPeriodEnd),
		RenewsAt:               unixTime(p.CurrentPeriodEnd),
		MetadataJSON:           string(metadata),
		Action:                 models.AuditActionSubscriptionUpdated,
		Source:                 models.AuditSourceWebhook,
		CorrelationID:          ev.ID,
	})
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, ev *Event) error {
	p, err := ev.subscriptionPayload()
	if err != nil {
		return fmt.Errorf("decode subscription payload: %w", err)
	}
	userID, err := s.resolveUser(p.Metadata, p.ID, p.Customer)
	if err != nil {
		return err
	}

	canceledAt := unixTime(p.CanceledAt)
	if canceledAt == nil {
		if ts := ev.Timestamp(); !ts.IsZero() {
			canceledAt = &ts
		} else {
			now := time.Now().UTC()
			canceledAt = &now
		}
	}

	return s.Apply(ctx, userID, Update{
		Status:                 models.SubscriptionStatusCanceled,
		ProviderSubscriptionID: p.ID,
		ProviderCustomerID:     p.Customer,
		CanceledAt:             canceledAt,
		Action:                 models.AuditActionSubscriptionCanceled,
		Source:                 models.AuditSourceWebhook,
		CorrelationID:          ev.ID,
	})
}

func (s *Service) handleInvoice(ctx context.Context, ev *Event, status string) error {
	p, err := ev.invoicePayload()
	if err != nil {
		return fmt.Errorf("decode invoice payload: %w", err)
	}
	userID, err := s.resolveUser(p.Metadata, p.Subscription, p.Customer)
	if err != nil {
		return err
	}

	amount := p.AmountPaid
	if status == models.PaymentStatusFailed {
		amount = p.AmountDue
	}
	occurredAt := ev.Timestamp()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	created, err := s.repo.CreatePaymentIfNotExists(&models.PaymentHistory{
		UserID:            userID,
		Provider:          models.ProviderStripe,
		ProviderInvoiceID: p.ID,
		AmountCents:       amount,
		Currency:          strings.ToLower(strings.TrimSpace(p.Currency)),
		Status:            status,
		OccurredAt:        occurredAt,
	})
	if err != nil {
		return err
	}
	if !created {
		// Replayed invoice event; payment already recorded.
		return nil
	}

	if status == models.PaymentStatusFailed {
		return s.repo.CreateNotification(&models.Notification{
			UserID:  userID,
			Type:    models.NotificationTypePaymentFailed,
			Content: "A subscription payment failed. Please update your payment method.",
		})
	}
	return nil
}

// resolveUser maps an event's provider references to a local user id:
// metadata userId first, then the stored subscriber by subscription id, then
// by customer id.
func (s *Service) resolveUser(metadata map[string]string, subscriptionID, customerID string) (uint, error) {
	if raw := strings.TrimSpace(metadata["userId"]); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err == nil && id > 0 {
			return uint(id), nil
		}
		log.Warnf("webhook metadata userId %q is not a valid user id", raw)
	}

	if id := strings.TrimSpace(subscriptionID); id != "" {
		sub, err := s.repo.GetSubscriberByProviderSubscriptionID(models.ProviderStripe, id)
		if err == nil {
			return sub.UserID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}

	if id := strings.TrimSpace(customerID); id != "" {
		sub, err := s.repo.GetSubscriberByProviderCustomerID(models.ProviderStripe, id)
		if err == nil {
			return sub.UserID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}

	return 0, ErrNoLocalUser
}

func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
