package counter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/cache"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/database"
)

const deliveriesKey = "webhook:counters:deliveries"

// AddDelivery increments the pending counter for a webhook event type in Redis.
// Counting is best effort; without a cache client it is a no-op.
func AddDelivery(eventType string) error {
	rdb := cache.GetClient()
	if rdb == nil {
		return nil
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "unknown"
	}
	ctx := context.Background()
	return rdb.HIncrBy(ctx, deliveriesKey, eventType, 1).Err()
}

// Pending returns the counts accumulated since the last flush.
func Pending() (map[string]int64, error) {
	rdb := cache.GetClient()
	if rdb == nil {
		return map[string]int64{}, nil
	}
	ctx := context.Background()
	data, err := rdb.HGetAll(ctx, deliveriesKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for k, v := range data {
		var n int64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			out[k] = n
		}
	}
	return out, nil
}

// Flush drains pending delivery counters to the daily stats table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func Flush() error {
	rdb := cache.GetClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()

	tmpKey := fmt.Sprintf("%s:tmp:%d", deliveriesKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", deliveriesKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type pair struct {
		eventType string
		inc       int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		var inc int64
		if _, err := fmt.Sscanf(v, "%d", &inc); err != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{eventType: k, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].eventType < pairs[j].eventType })

	day := time.Now().UTC().Truncate(24 * time.Hour)
	db := database.GetDB()
	for _, p := range pairs {
		err := db.Exec(
			"INSERT INTO webhook_event_stats (day, event_type, count, created_at, updated_at) VALUES (?, ?, ?, NOW(), NOW()) "+
				"ON DUPLICATE KEY UPDATE count = count + VALUES(count), updated_at = NOW()",
			day, p.eventType, p.inc,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// StartFlusher drains the pending counters on a fixed interval until the
// returned stop function is called.
func StartFlusher(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := Flush(); err != nil {
					// Counters stay pending in Redis and drain on the next tick.
					continue
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
