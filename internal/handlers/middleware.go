package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/services/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	return p, ok
}

// Middleware guards the protected route group: bearer-token or API-key
// auth, then per-principal rate limiting.
type Middleware struct {
	auth    *auth.Service
	limiter *auth.Limiter
	logger  arbor.ILogger
}

func NewMiddleware(authSvc *auth.Service, limiter *auth.Limiter, logger arbor.ILogger) *Middleware {
	return &Middleware{auth: authSvc, limiter: limiter, logger: logger}
}

// RequireAuth accepts either `Authorization: Bearer <jwt>` or an
// `X-API-Key` header and stores the principal on the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.authenticate(r)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if principal == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) authenticate(r *http.Request) (*auth.Principal, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return nil, nil
		}
		return m.auth.VerifyToken(r.Context(), strings.TrimSpace(header[len(prefix):]))
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return m.auth.VerifyAPIKey(r.Context(), key)
	}
	return nil, nil
}

// RateLimit enforces the sliding window per principal. Responses carry
// X-RateLimit-Limit and X-RateLimit-Remaining; over-limit requests get 429.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if principal, ok := PrincipalFrom(r.Context()); ok {
			key = principal.Key()
		}

		allowed, remaining := m.limiter.Allow(key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limiter.Limit()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			m.logger.Warn().Str("key", key).Msg("Rate limit exceeded")
			WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
