package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter counts requests per subject in fixed windows.
// With Redis the counters are shared between instances; without it they are local.
// Redis errors fail open.
type RateLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	local map[string]*localWindow
	now   func() time.Time
}

type localWindow struct {
	count int
	reset time.Time
}

func NewRateLimiter(rdb *redis.Client, max int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		rdb:    rdb,
		max:    max,
		window: window,
		logger: logger,
		local:  map[string]*localWindow{},
		now:    time.Now,
	}
}

// Allow records one request for subject and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, subject string) bool {
	if rl == nil || rl.max <= 0 {
		return true
	}
	if rl.rdb == nil {
		return rl.allowLocal(subject)
	}

	key := fmt.Sprintf("redacao:rate:%s", subject)
	// EXPIRE NX in the same transaction also repairs a counter left without a TTL
	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		return true
	}
	count := incr.Val()
	return count <= int64(rl.max)
}

func (rl *RateLimiter) allowLocal(subject string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	w, ok := rl.local[subject]
	if !ok || !now.Before(w.reset) {
		w = &localWindow{reset: now.Add(rl.window)}
		rl.local[subject] = w
	}
	w.count++
	return w.count <= rl.max
}
