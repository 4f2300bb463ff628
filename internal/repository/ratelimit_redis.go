package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

const rateLimitKeyPrefix = "rategate:"

// RedisRateLimitStore keeps sliding window entries in Redis so multiple
// intake instances share one view. Entries expire via TTL, which stands in
// for the idle sweep; callers still fail open on any error here.
type RedisRateLimitStore struct {
	client  *redis.Client
	idleTTL time.Duration
}

// NewRedisRateLimitStore builds the store. idleTTL bounds entry lifetime.
func NewRedisRateLimitStore(client *redis.Client, idleTTL time.Duration) *RedisRateLimitStore {
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	return &RedisRateLimitStore{client: client, idleTTL: idleTTL}
}

// Get loads the entry for identifier, nil when absent.
func (s *RedisRateLimitStore) Get(ctx context.Context, identifier string) (*domain.RateLimitEntry, error) {
	raw, err := s.client.Get(ctx, rateLimitKeyPrefix+identifier).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("rate limit get: %w", err)
	}
	var entry domain.RateLimitEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("rate limit decode: %w", err)
	}
	return &entry, nil
}

// Put stores the entry, refreshing its TTL.
func (s *RedisRateLimitStore) Put(ctx context.Context, entry *domain.RateLimitEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("rate limit encode: %w", err)
	}
	if err := s.client.Set(ctx, rateLimitKeyPrefix+entry.Identifier, raw, s.idleTTL).Err(); err != nil {
		return fmt.Errorf("rate limit put: %w", err)
	}
	return nil
}

// Sweep is a no-op: Redis TTLs expire idle entries.
func (s *RedisRateLimitStore) Sweep(ctx context.Context, idleBefore time.Time) (int, error) {
	return 0, nil
}
