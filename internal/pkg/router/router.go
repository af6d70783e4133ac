package router

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/benzaid32/the-assist-app-sub002/app/controllers"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/auth"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/integrity"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/middleware"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/ratelimit"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/subscription"
)

// Deps carries the constructed services the routes are built from.
type Deps struct {
	SubscriptionSvc *subscription.Service
	AuthSvc         *auth.Service
	Auditor         *integrity.Auditor
	Limiter         *ratelimit.Limiter
	DB              *gorm.DB
	WebhookSecret   string
}

// InstallRouter registers every route on the app.
func InstallRouter(app *fiber.App, deps Deps) {
	webhookCtrl := controllers.NewWebhookController(deps.SubscriptionSvc, deps.WebhookSecret)
	subscriptionCtrl := controllers.NewSubscriptionController(deps.SubscriptionSvc)
	authCtrl := controllers.NewAuthController(deps.AuthSvc)
	adminCtrl := controllers.NewAdminController(deps.Auditor, deps.DB)

	// Provider webhooks: unauthenticated, signature-verified.
	app.Post("/webhooks/stripe", webhookCtrl.HandleProviderWebhook)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/request-code", authCtrl.HandleRequestCode)
	authGroup.Post("/verify-code", authCtrl.HandleVerifyCode)
	authGroup.Post("/register", authCtrl.HandleRegister)

	authenticated := api.Group("", middleware.TokenAuthMiddleware(deps.AuthSvc))
	authenticated.Get("/subscription",
		middleware.RateLimitMiddleware(deps.Limiter, "getSubscriptionStatus"),
		subscriptionCtrl.HandleGetStatus)
	authenticated.Put("/subscription",
		middleware.RateLimitMiddleware(deps.Limiter, "updateSubscriptionStatus"),
		subscriptionCtrl.HandleUpdateStatus)

	admin := authenticated.Group("/admin", middleware.AdminOnlyMiddleware())
	admin.Post("/integrity/run", adminCtrl.HandleRunIntegrityCheck)
	admin.Get("/integrity/users/:id", adminCtrl.HandleCheckUser)
	admin.Get("/webhooks/stats", adminCtrl.HandleWebhookStats)
}
