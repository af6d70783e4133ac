package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/integrity"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/metrics/counter"
)

// AdminController exposes privileged integrity and metrics operations.
type AdminController struct {
	auditor *integrity.Auditor
	db      *gorm.DB
}

// NewAdminController wires the admin endpoints.
func NewAdminController(auditor *integrity.Auditor, db *gorm.DB) *AdminController {
	return &AdminController{auditor: auditor, db: db}
}

// HandleRunIntegrityCheck triggers a full reconciliation pass on demand.
// Auto-fix defaults to off for manual runs; pass ?autofix=true to correct
// drift instead of just reporting it.
func (ad *AdminController) HandleRunIntegrityCheck(c *fiber.Ctx) error {
	autofix := c.QueryBool("autofix", false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := ad.auditor.Run(ctx, models.IntegrityTriggerManual, autofix)
	if err != nil {
		log.Errorf("manual integrity run failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	return c.JSON(summary)
}

// HandleCheckUser runs the single-subscriber comparison synchronously.
func (ad *AdminController) HandleCheckUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "message": "Invalid user id"})
	}
	autofix := c.QueryBool("autofix", false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := ad.auditor.CheckUser(ctx, uint(userID), autofix)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		log.Errorf("single-user integrity check failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	return c.JSON(result)
}

// HandleWebhookStats reports per-type webhook delivery counts: the flushed
// daily rows for the last week plus the counters not yet drained from Redis.
func (ad *AdminController) HandleWebhookStats(c *fiber.Ctx) error {
	since := time.Now().UTC().AddDate(0, 0, -7).Truncate(24 * time.Hour)

	var stats []models.WebhookEventStat
	if err := ad.db.Where("day >= ?", since).Order("day DESC, event_type ASC").Find(&stats).Error; err != nil {
		log.Errorf("webhook stats query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}

	pending, err := counter.Pending()
	if err != nil {
		log.Warnf("pending delivery counters unavailable: %v", err)
		pending = map[string]int64{}
	}

	return c.JSON(fiber.Map{"daily": stats, "pending": pending})
}
