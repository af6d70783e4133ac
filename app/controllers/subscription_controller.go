package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/middleware"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/security"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/subscription"
)

// SubscriptionController exposes the callable subscription API.
type SubscriptionController struct {
	svc      *subscription.Service
	validate *validator.Validate
}

// NewSubscriptionController wires the callable API handlers.
func NewSubscriptionController(svc *subscription.Service) *SubscriptionController {
	return &SubscriptionController{svc: svc, validate: validator.New()}
}

// HandleGetStatus returns the caller's subscription sub-object, or an
// inactive placeholder when none exists yet, and leaves an access audit row.
func (sc *SubscriptionController) HandleGetStatus(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
	}

	sub, err := sc.svc.Repo().GetSubscriberByUserID(user.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("subscription lookup failed for user %d: %s", user.ID, security.Redact(err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}

	if err := sc.svc.Repo().AppendAuditLog(&models.AuditLog{
		ActorUserID:  user.ID,
		TargetUserID: user.ID,
		Action:       models.AuditActionSubscriptionAccessed,
		Source:       models.AuditSourceAPI,
	}); err != nil {
		log.Errorf("access audit write failed for user %d: %v", user.ID, err)
	}

	if sub == nil {
		return c.JSON(fiber.Map{"status": models.SubscriptionStatusInactive})
	}
	return c.JSON(sub)
}

type updateSubscriptionRequest struct {
	UserID           uint                `json:"userId"`
	SubscriptionData subscriptionPayload `json:"subscriptionData" validate:"required"`
}

type subscriptionPayload struct {
	Status               string `json:"status" validate:"required"`
	Tier                 string `json:"tier"`
	StripeSubscriptionID string `json:"stripeSubscriptionId"`
	StripeCustomerID     string `json:"stripeCustomerId"`
	PriceID              string `json:"priceId"`
}

// HandleUpdateStatus applies a client-initiated subscription change. Callers
// may only modify their own record unless they carry the admin claim.
func (sc *SubscriptionController) HandleUpdateStatus(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
	}

	var req updateSubscriptionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "message": "Malformed request body"})
	}
	if err := sc.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "message": err.Error()})
	}

	targetID := req.UserID
	if targetID == 0 {
		targetID = user.ID
	}
	if targetID != user.ID && !user.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "permission_denied", "message": "Cannot modify another user's subscription"})
	}

	current := subscription.CurrentState{}
	if stored, err := sc.svc.Repo().GetSubscriberByUserID(targetID); err == nil {
		current = subscription.CurrentState{
			Status:                 stored.Status,
			Tier:                   stored.Tier,
			ProviderSubscriptionID: stored.ProviderSubscriptionID,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}

	proposed := subscription.ProposedState{
		Status:                 req.SubscriptionData.Status,
		Tier:                   req.SubscriptionData.Tier,
		ProviderSubscriptionID: req.SubscriptionData.StripeSubscriptionID,
	}
	if result := subscription.ValidateTransition(current, proposed); !result.IsValid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_argument",
			"message": strings.Join(result.Errors, "; "),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Webhook-sourced updates reuse the provider event id; API updates get
	// their own correlation id.
	correlationID := uuid.NewString()
	err := sc.svc.Apply(ctx, targetID, subscription.Update{
		Status:                 req.SubscriptionData.Status,
		Tier:                   req.SubscriptionData.Tier,
		ProviderSubscriptionID: req.SubscriptionData.StripeSubscriptionID,
		ProviderCustomerID:     req.SubscriptionData.StripeCustomerID,
		PriceID:                req.SubscriptionData.PriceID,
		Action:                 models.AuditActionSubscriptionUpdated,
		Source:                 models.AuditSourceAPI,
		ActorUserID:            user.ID,
		CorrelationID:          correlationID,
	})
	if err != nil {
		log.Errorf("subscription update failed for user %d: %s", targetID, security.Redact(err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}

	return c.JSON(fiber.Map{"ok": true, "correlationId": correlationID})
}
