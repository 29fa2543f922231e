// Package cache provides the Redis read-through response cache. Entries are
// JSON blobs keyed "scope:id" with per-scope TTLs; scopes invalidate as a
// unit when their underlying data changes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
)

// Cache scopes. Each scope expires with its own TTL and invalidates as a
// unit.
const (
	ScopeCompany    = "company"
	ScopeCompanies  = "companies"
	ScopeIndicators = "indicators"
	ScopeScores     = "scores"
	ScopeTelemetry  = "telemetry"
)

// Service caches API responses in Redis. A dead or disabled backend
// degrades to misses: callers fall through to the source and the API keeps
// answering.
type Service struct {
	client *redis.Client
	cfg    common.CacheConfig
	logger arbor.ILogger
}

var _ interfaces.CacheService = (*Service)(nil)

// NewService connects to Redis when caching is enabled. An unreachable
// backend is only a warning: go-redis reconnects on its own, so the cache
// starts serving once Redis comes back.
func NewService(cfg common.CacheConfig, logger arbor.ILogger) *Service {
	s := &Service{cfg: cfg, logger: logger}

	if !cfg.Enabled {
		logger.Info().Msg("Cache disabled")
		return s
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.client = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("Cache unreachable, continuing without it")
	} else {
		logger.Info().Str("addr", addr).Int("db", cfg.DB).Msg("Cache connected")
	}

	return s
}

func cacheKey(scope, id string) string {
	return scope + ":" + id
}

// Get fetches scope:id into dest. A miss, a dead backend, and a corrupt
// entry all report (false, nil): the caller falls through to the source.
func (s *Service) Get(ctx context.Context, scope, id string, dest interface{}) (bool, error) {
	if s.client == nil {
		return false, nil
	}

	key := cacheKey(scope, id)
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false, nil
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Corrupt cache entry, dropping")
		s.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// Set stores value under scope:id. A non-positive ttl falls back to one
// minute so a misconfigured scope cannot pin stale data forever.
func (s *Service) Set(ctx context.Context, scope, id string, value interface{}, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", cacheKey(scope, id), err)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	if err := s.client.Set(ctx, cacheKey(scope, id), payload, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey(scope, id)).Msg("Cache write failed")
	}
	return nil
}

// InvalidateScope deletes every key under "scope:*" and returns the count.
// The walk uses SCAN; KEYS would block the server on a large keyspace.
func (s *Service) InvalidateScope(ctx context.Context, scope string) (int, error) {
	if s.client == nil {
		return 0, nil
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, scope+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan failed for scope %s: %w", scope, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("cache delete failed for scope %s: %w", scope, err)
	}

	s.logger.Info().Str("scope", scope).Int64("keys", deleted).Msg("Cache scope invalidated")
	return int(deleted), nil
}

// Enabled reports whether a backend is configured. Callers skip cache
// bookkeeping entirely when it is off.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// Ping checks backend reachability for health reporting.
func (s *Service) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("cache is disabled")
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the client connection pool.
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
