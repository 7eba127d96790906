// Package storage provides persistence backends for save slots: Redis
// for shared deployments and the local filesystem for single-player use.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tadventure/engine/pkg/save"
)

// RedisStore persists save slots in Redis, keyed per story so multiple
// stories can share one instance.
type RedisStore struct {
	client  *redis.Client
	logger  *slog.Logger
	storyID string
}

var _ save.Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed save store.
func NewRedisStore(addr string, storyID string, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client:  rdb,
		logger:  logger,
		storyID: storyID,
	}
}

func (r *RedisStore) key(slot string) string {
	return "save:" + r.storyID + ":" + slot
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStore) Put(ctx context.Context, slot string, data []byte) error {
	if err := r.client.Set(ctx, r.key(slot), data, 0).Err(); err != nil {
		r.logger.Error("Failed to write save slot", "slot", slot, "error", err)
		return fmt.Errorf("failed to write save slot: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, slot string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(slot)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Absent slot is not an error
		}
		r.logger.Error("Failed to read save slot", "slot", slot, "error", err)
		return nil, fmt.Errorf("failed to read save slot: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Delete(ctx context.Context, slot string) error {
	if err := r.client.Del(ctx, r.key(slot)).Err(); err != nil {
		r.logger.Error("Failed to delete save slot", "slot", slot, "error", err)
		return fmt.Errorf("failed to delete save slot: %w", err)
	}
	return nil
}
