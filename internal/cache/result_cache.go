// Package cache implements the content-addressed result cache. Caching is a
// pure optimization layer: every failure mode degrades to a miss or a no-op
// and must never abort an evaluation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/markwise/markwise-api/internal/dto"
)

const keyPrefix = "eval:result:"

// Entry is an immutable cached evaluation. It is written at most once per
// distinct content hash and never updated afterwards.
type Entry struct {
	Key      string               `json:"key"`
	Result   dto.EvaluationResult `json:"result"`
	StoredAt time.Time            `json:"storedAt"`
}

// Store is the get/put contract the dispatcher depends on. A missing key is
// reported as found=false, never as an error.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Put(ctx context.Context, key string, result dto.EvaluationResult)
}

// RedisStore keys evaluation results by content hash in redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisStore builds the redis-backed store. A zero ttl keeps entries
// until redis evicts them.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "result_cache").Logger(),
		now:    time.Now,
	}
}

// Get looks up a cached evaluation. Redis errors are logged and reported as
// a miss so the caller falls through to a live provider call.
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool) {
	payload, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, treating as miss")
		return Entry{}, false
	}

	return entry, true
}

// Put stores an evaluation under its content hash. Writing the same key
// twice stores the same value, so concurrent duplicate computations are
// wasteful but harmless. Redis errors are logged and swallowed.
func (s *RedisStore) Put(ctx context.Context, key string, result dto.EvaluationResult) {
	entry := Entry{Key: key, Result: result, StoredAt: s.now().UTC()}

	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry marshal failed, skipping store")
		return
	}

	if err := s.client.Set(ctx, keyPrefix+key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed, continuing without store")
	}
}

// Noop satisfies Store when no redis is configured.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) (Entry, bool) { return Entry{}, false }

// Put discards the result.
func (Noop) Put(context.Context, string, dto.EvaluationResult) {}
