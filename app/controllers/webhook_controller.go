package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/metrics/counter"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/security"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/subscription"
)

// SignatureHeader carries the provider's HMAC over the raw request body.
const SignatureHeader = "Provider-Signature"

// WebhookController ingests payment-provider webhook deliveries.
type WebhookController struct {
	svc           *subscription.Service
	webhookSecret string
}

// NewWebhookController wires the ingestor with its service and shared secret.
func NewWebhookController(svc *subscription.Service, webhookSecret string) *WebhookController {
	return &WebhookController{svc: svc, webhookSecret: webhookSecret}
}

// HandleProviderWebhook verifies, records and dispatches one delivery.
// Signature verification runs against the raw body bytes; any
// re-serialization upstream breaks it by design of the scheme.
func (wc *WebhookController) HandleProviderWebhook(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "method_not_allowed"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	if len(rawBody) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signature := c.Get(SignatureHeader)
	if !subscription.VerifyWebhookSignature(rawBody, signature, wc.webhookSecret) {
		log.Warn("webhook rejected: invalid signature")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := subscription.ParseEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	created, stored, err := wc.svc.RecordWebhookEvent(ctx, subscription.WebhookEventInput{
		Provider:        models.ProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		log.Errorf("webhook persist failed: %s", security.Redact(err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if err := counter.AddDelivery(event.Type); err != nil {
		log.Warnf("webhook delivery counter failed: %v", err)
	}
	if !created {
		if stored.Processed() {
			// Replayed delivery; the first processing already converged the state.
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
		}
		// The stored copy never finished processing: this is the provider
		// retrying after a failure, not a replay. Processing is idempotent,
		// so run it again.
		log.Infof("webhook %s (%s) redelivered after failed processing", event.ID, event.Type)
	}

	processErr := wc.svc.ProcessEvent(ctx, event)
	_ = wc.svc.MarkWebhookProcessed(ctx, stored.ID, processErr)

	if processErr != nil {
		if errors.Is(processErr, subscription.ErrNoLocalUser) {
			// Retrying cannot conjure the missing local record; acknowledge.
			log.Warnf("webhook %s (%s) references no local user", event.ID, event.Type)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
		}
		log.Errorf("webhook %s (%s) processing failed: %s", event.ID, event.Type, security.Redact(processErr.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
