package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

func TestKeyIsDeterministicAndInputSensitive(t *testing.T) {
	k := Key("tema", "redação", "openai", "gpt-4o-mini")
	assert.Equal(t, k, Key("tema", "redação", "openai", "gpt-4o-mini"))
	assert.NotEqual(t, k, Key("tema", "redação", "anthropic", "gpt-4o-mini"))
	assert.NotEqual(t, Key("ab", "c", "p", "m"), Key("a", "bc", "p", "m"))
	assert.Contains(t, k, reportKeyPrefix)
}

func TestDisabledReportCache(t *testing.T) {
	c := NewReportCache(nil, time.Hour, nil, nil)
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Set(context.Background(), "k", models.EssayReport{Total: 800}))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestLocalRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(nil, 2, time.Minute, nil)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, rl.Allow(ctx, "ana"))
	assert.True(t, rl.Allow(ctx, "ana"))
	assert.False(t, rl.Allow(ctx, "ana"))
	assert.True(t, rl.Allow(ctx, "bia"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow(ctx, "ana"))
}

func TestRateLimiterDisabled(t *testing.T) {
	var rl *RateLimiter
	assert.True(t, rl.Allow(context.Background(), "x"))
	assert.True(t, NewRateLimiter(nil, 0, time.Minute, nil).Allow(context.Background(), "x"))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()
	rl := NewRateLimiter(rdb, 1, time.Minute, nil)
	for range 3 {
		assert.True(t, rl.Allow(context.Background(), "ana"))
	}

	c := NewReportCache(rdb, time.Hour, nil, nil)
	_, ok := c.Get(context.Background(), Key("t", "e", "p", "m"))
	assert.False(t, ok)
	assert.Error(t, c.Set(context.Background(), "k", models.EssayReport{}))
}
