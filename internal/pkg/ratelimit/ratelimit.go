package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/config"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Store is the persistence surface for rate-limit counters.
type Store interface {
	GetCounter(userID uint, endpoint string) (*models.RateLimit, error)
	SaveCounter(counter *models.RateLimit) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a rate-limit store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetCounter(userID uint, endpoint string) (*models.RateLimit, error) {
	var c models.RateLimit
	err := s.db.Where("user_id = ? AND endpoint = ?", userID, endpoint).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *gormStore) SaveCounter(counter *models.RateLimit) error {
	return s.db.Save(counter).Error
}

// Result reports the outcome of a consume attempt.
type Result struct {
	Limited      bool
	CurrentCount int
	MaxCount     int
	ResetTime    time.Time
}

// RetryAfter is the remaining window time, floored at zero.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// RetryAfterSeconds is RetryAfter rounded up to whole seconds, floored at
// one so a Retry-After header never tells the client to retry immediately.
// Rounding up keeps the value within the window length.
func (r Result) RetryAfterSeconds(now time.Time) int {
	secs := int((r.RetryAfter(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter is a per-user, per-endpoint fixed-window counter. The counter
// read-increment-write is not transactionally guarded; concurrent requests
// from one user in the same instant can slightly over-admit, which the
// fixed-window scheme tolerates.
type Limiter struct {
	store Store
	rules map[string]config.RateLimitRule
	now   func() time.Time
}

// NewLimiter creates a limiter with per-endpoint rules.
func NewLimiter(store Store, rules map[string]config.RateLimitRule) *Limiter {
	return &Limiter{store: store, rules: rules, now: time.Now}
}

// CheckAndConsume records one request against the (user, endpoint) window and
// reports whether it exceeded the endpoint's budget. On any storage error it
// fails open: availability is preferred over strict enforcement.
func (l *Limiter) CheckAndConsume(ctx context.Context, userID uint, endpoint string) Result {
	_ = ctx
	rule, ok := l.rules[endpoint]
	if !ok || rule.MaxCount <= 0 {
		return Result{Limited: false}
	}

	now := l.now()
	counter, err := l.store.GetCounter(userID, endpoint)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		counter = &models.RateLimit{
			UserID:      userID,
			Endpoint:    endpoint,
			WindowStart: now,
			Count:       0,
		}
	default:
		log.Errorf("rate limit read failed for user %d endpoint %s, failing open: %v", userID, endpoint, err)
		return Result{Limited: false}
	}

	// Expired windows reset unconditionally, even out of a limited state.
	if now.Sub(counter.WindowStart) > rule.Window {
		counter.WindowStart = now
		counter.Count = 0
	}

	resetTime := counter.WindowStart.Add(rule.Window)
	if counter.Count >= rule.MaxCount {
		return Result{
			Limited:      true,
			CurrentCount: counter.Count,
			MaxCount:     rule.MaxCount,
			ResetTime:    resetTime,
		}
	}

	counter.Count++
	counter.LastRequest = now
	if err := l.store.SaveCounter(counter); err != nil {
		log.Errorf("rate limit write failed for user %d endpoint %s, failing open: %v", userID, endpoint, err)
		return Result{Limited: false}
	}

	return Result{
		Limited:      false,
		CurrentCount: counter.Count,
		MaxCount:     rule.MaxCount,
		ResetTime:    resetTime,
	}
}

// Rule returns the configured rule for an endpoint, if any.
func (l *Limiter) Rule(endpoint string) (config.RateLimitRule, bool) {
	rule, ok := l.rules[endpoint]
	return rule, ok
}
