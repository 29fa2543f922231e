package interfaces

import (
	"context"
	"time"
)

// CacheService is the read-through response cache. Every method degrades
// gracefully: a dead backend means misses and warn logs, never API errors.
type CacheService interface {
	Get(ctx context.Context, scope, id string, dest interface{}) (bool, error)
	Set(ctx context.Context, scope, id string, value interface{}, ttl time.Duration) error
	// InvalidateScope deletes every key under "scope:*" and returns the count.
	InvalidateScope(ctx context.Context, scope string) (int, error)
	Enabled() bool
	Ping(ctx context.Context) error
	Close() error
}
