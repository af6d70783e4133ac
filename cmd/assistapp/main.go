package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/auth"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/cache"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/config"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/database"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/integrity"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/mail"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/metrics/counter"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/ratelimit"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/router"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/stripegw"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/subscription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	app, manager := NewApplication(cfg)
	manager.Start()
	stopFlusher := counter.StartFlusher(time.Minute)

	// Stop scheduled audits cleanly on shutdown.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		manager.Stop()
		stopFlusher()
		_ = app.Shutdown()
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)); err != nil {
		log.Fatal(err)
	}
}

// NewApplication builds the fiber app and the background integrity manager
// from a resolved configuration.
func NewApplication(cfg *config.Config) (*fiber.App, *integrity.Manager) {
	database.SetupDatabase(cfg)
	cache.SetupCache(cfg)

	db := database.GetDB()
	subscriptionSvc := subscription.NewServiceFromDB(db)
	gateway := stripegw.New(cfg.StripeAPIKey)
	auditor := integrity.NewAuditor(subscriptionSvc, gateway)
	manager := integrity.NewManager(auditor, cfg.IntegrityInterval)

	mailer := mail.NewSMTPMailer(cfg)
	authSvc := auth.NewService(db, auth.NewRedisCodeStore(), mailer, cfg.RateLimits["requestVerificationCode"])
	limiter := ratelimit.NewLimiter(ratelimit.NewStore(db), cfg.RateLimits)

	app := fiber.New(fiber.Config{
		AppName: "assist-app-backend",
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Deps{
		SubscriptionSvc: subscriptionSvc,
		AuthSvc:         authSvc,
		Auditor:         auditor,
		Limiter:         limiter,
		DB:              db,
		WebhookSecret:   cfg.StripeWebhookSecret,
	})

	return app, manager
}
