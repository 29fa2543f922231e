package auth

import (
	"sync"
	"time"

	"github.com/greenarc/esgpipe/internal/common"
)

// Limiter enforces a sliding-window request limit per principal. The window
// holds RateLimitBurst requests and spans burst/rps seconds, so sustained
// throughput converges on RateLimitRPS while short bursts pass untouched.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewLimiter creates a limiter from the auth config. A missing rps falls
// back to 10; burst zero means no extra allowance, so the window caps at
// exactly rps requests per second.
func NewLimiter(cfg common.AuthConfig) *Limiter {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = rps
	}

	return &Limiter{
		windows: make(map[string][]time.Time),
		limit:   burst,
		window:  time.Duration(float64(burst) / float64(rps) * float64(time.Second)),
		now:     time.Now,
	}
}

// Allow records one request for the key and reports whether it fits the
// window, plus how many more requests fit right now.
func (l *Limiter) Allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.windows[key][:0]
	for _, t := range l.windows[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.windows[key] = kept
		return false, 0
	}

	kept = append(kept, now)
	l.windows[key] = kept
	return true, l.limit - len(kept)
}

// Forget drops a key's window. Used when a principal's credentials are
// revoked so a returning caller starts clean.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Limit returns the window capacity, for the X-RateLimit-Limit header.
func (l *Limiter) Limit() int {
	return l.limit
}
