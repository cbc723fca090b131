package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker keeps each run's events in a Redis Stream so any server instance can follow a run.
type RedisBroker struct {
	rdb       *redis.Client
	retention time.Duration
	logger    *zap.Logger
}

func NewRedisBroker(rdb *redis.Client, retention time.Duration, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{rdb: rdb, retention: retention, logger: logger}
}

func streamKey(runID string) string {
	return fmt.Sprintf("redacao:run:%s:events", runID)
}

// Publish appends the event to the run stream.
func (b *RedisBroker) Publish(ctx context.Context, e Event) error {
	data, err := MarshalEvent(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	key := streamKey(e.RunID)
	pipe := b.rdb.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{"data": data},
		MaxLen: subscriberBuffer,
		Approx: true,
	})
	if b.retention > 0 {
		pipe.Expire(ctx, key, b.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe reads the run stream from its beginning until the final event.
func (b *RedisBroker) Subscribe(ctx context.Context, runID string) (<-chan Event, error) {
	out := make(chan Event, subscriberBuffer)
	go b.readLoop(ctx, streamKey(runID), out)
	return out, nil
}

// History returns the events still held in the run stream.
func (b *RedisBroker) History(ctx context.Context, runID string) ([]Event, error) {
	msgs, err := b.rdb.XRange(ctx, streamKey(runID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}
	events := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		e, err := UnmarshalEvent(data)
		if err != nil {
			b.logger.Warn("skipping malformed progress event", zap.String("id", msg.ID), zap.Error(err))
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (b *RedisBroker) readLoop(ctx context.Context, key string, out chan<- Event) {
	defer close(out)
	lastID := "0"
	for {
		streams, err := b.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{key, lastID},
			Count:   100,
			Block:   time.Second,
		}).Result()
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			b.logger.Warn("progress stream read failed", zap.String("stream", key), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				data, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				e, err := UnmarshalEvent(data)
				if err != nil {
					b.logger.Warn("skipping malformed progress event", zap.String("id", msg.ID), zap.Error(err))
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
				if e.Final() {
					return
				}
			}
		}
	}
}
