package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/metrics"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

const reportKeyPrefix = "redacao:report:"

// ReportCache stores finished reports keyed by their inputs.
// A ReportCache without a Redis client never hits.
type ReportCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewReportCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *ReportCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCache{rdb: rdb, ttl: ttl, logger: logger, metrics: m}
}

// Enabled reports whether a Redis client backs the cache.
func (c *ReportCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Key identifies a report by theme, essay, provider and model.
func Key(theme, essay, provider, model string) string {
	h := sha256.New()
	for _, part := range []string{theme, essay, provider, model} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return reportKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached report for key. Redis failures are logged and reported as a miss.
func (c *ReportCache) Get(ctx context.Context, key string) (models.EssayReport, bool) {
	if !c.Enabled() {
		return models.EssayReport{}, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.IncrementCacheLookup("miss")
		return models.EssayReport{}, false
	}
	if err != nil {
		c.metrics.IncrementCacheLookup("error")
		c.logger.Warn("report cache read failed", zap.Error(err))
		return models.EssayReport{}, false
	}

	var report models.EssayReport
	if err := json.Unmarshal(data, &report); err != nil {
		c.metrics.IncrementCacheLookup("error")
		c.logger.Warn("discarding corrupt cached report", zap.String("key", key), zap.Error(err))
		_ = c.rdb.Del(ctx, key).Err()
		return models.EssayReport{}, false
	}
	c.metrics.IncrementCacheLookup("hit")
	return report, true
}

// Set stores report under key with the configured TTL.
func (c *ReportCache) Set(ctx context.Context, key string, report models.EssayReport) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}
