package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/config"
)

type fakeStore struct {
	counters map[string]*models.RateLimit
	readErr  error
	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counters: map[string]*models.RateLimit{}}
}

func key(userID uint, endpoint string) string {
	return fmt.Sprintf("%d/%s", userID, endpoint)
}

func (s *fakeStore) GetCounter(userID uint, endpoint string) (*models.RateLimit, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	if c, ok := s.counters[key(userID, endpoint)]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeStore) SaveCounter(counter *models.RateLimit) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	copied := *counter
	s.counters[key(counter.UserID, counter.Endpoint)] = &copied
	return nil
}

func newTestLimiter(store Store, max int, window time.Duration, at *time.Time) *Limiter {
	l := NewLimiter(store, map[string]config.RateLimitRule{
		"getSubscriptionStatus": {MaxCount: max, Window: window},
	})
	l.now = func() time.Time { return *at }
	return l
}

func TestCheckAndConsume_AdmitsUpToMax(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(newFakeStore(), 10, 60*time.Second, &now)

	for i := 1; i <= 10; i++ {
		res := limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
		require.False(t, res.Limited, "request %d should be admitted", i)
		assert.Equal(t, i, res.CurrentCount)
	}

	// The 11th request inside the same window is refused.
	res := limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	assert.True(t, res.Limited)
	assert.Equal(t, 10, res.CurrentCount)
	assert.Equal(t, 10, res.MaxCount)
	assert.Equal(t, now.Add(60*time.Second), res.ResetTime)
	assert.Equal(t, 60*time.Second, res.RetryAfter(now))
}

func TestResult_RetryAfterSecondsStaysWithinWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	res := Result{Limited: true, ResetTime: now.Add(60 * time.Second)}

	// At the start of the window the header must report the window length,
	// never one second beyond it.
	assert.Equal(t, 60, res.RetryAfterSeconds(now))

	// Fractional remainders round up to the next whole second.
	assert.Equal(t, 31, res.RetryAfterSeconds(now.Add(29*time.Second+500*time.Millisecond)))
	assert.Equal(t, 1, res.RetryAfterSeconds(now.Add(59*time.Second+999*time.Millisecond)))

	// An elapsed window still tells the client to wait a beat.
	assert.Equal(t, 1, res.RetryAfterSeconds(now.Add(61*time.Second)))
	assert.Equal(t, 1, Result{}.RetryAfterSeconds(now))
}

func TestCheckAndConsume_WindowExpiryResets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	limiter := newTestLimiter(store, 2, 60*time.Second, &now)

	limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	res := limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	require.True(t, res.Limited)

	// A refused request does not extend the window; once it lapses the
	// counter starts over.
	now = now.Add(61 * time.Second)
	res = limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	assert.False(t, res.Limited)
	assert.Equal(t, 1, res.CurrentCount)
	assert.Equal(t, now.Add(60*time.Second), res.ResetTime)
}

func TestCheckAndConsume_ExactWindowBoundaryStillLimited(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(newFakeStore(), 1, 60*time.Second, &now)

	limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	now = now.Add(60 * time.Second)
	res := limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	assert.True(t, res.Limited)
}

func TestCheckAndConsume_FailsOpenOnStorageErrors(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.readErr = errors.New("connection refused")
	limiter := newTestLimiter(store, 1, 60*time.Second, &now)
	res := limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	assert.False(t, res.Limited)

	store = newFakeStore()
	store.writeErr = errors.New("connection refused")
	limiter = newTestLimiter(store, 1, 60*time.Second, &now)
	res = limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus")
	assert.False(t, res.Limited)
}

func TestCheckAndConsume_UnknownEndpointIsUnlimited(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(newFakeStore(), 1, 60*time.Second, &now)

	for i := 0; i < 50; i++ {
		res := limiter.CheckAndConsume(context.Background(), 1, "someOtherEndpoint")
		require.False(t, res.Limited)
	}
}

func TestCheckAndConsume_CountersAreIsolatedPerUserAndEndpoint(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	limiter := NewLimiter(store, map[string]config.RateLimitRule{
		"getSubscriptionStatus":    {MaxCount: 1, Window: time.Minute},
		"updateSubscriptionStatus": {MaxCount: 1, Window: time.Minute},
	})
	limiter.now = func() time.Time { return now }

	require.False(t, limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus").Limited)
	require.True(t, limiter.CheckAndConsume(context.Background(), 1, "getSubscriptionStatus").Limited)

	// A different user and a different endpoint each have their own budget.
	assert.False(t, limiter.CheckAndConsume(context.Background(), 2, "getSubscriptionStatus").Limited)
	assert.False(t, limiter.CheckAndConsume(context.Background(), 1, "updateSubscriptionStatus").Limited)
}
