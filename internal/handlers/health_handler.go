package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
)

// ComponentPinger checks one backing service. A nil error means healthy.
type ComponentPinger func(ctx context.Context) error

// HealthHandler reports liveness plus the state of each backing service.
type HealthHandler struct {
	components map[string]ComponentPinger
	logger     arbor.ILogger
}

func NewHealthHandler(components map[string]ComponentPinger, logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{components: components, logger: logger}
}

// HealthHandler handles GET /health: 200 when every component answers,
// 503 with per-component detail when any backing service is down.
func (h *HealthHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(h.components))

	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.components[name](ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			h.logger.Warn().Err(err).Str("component", name).Msg("Health check failed")
		} else {
			components[name] = "ok"
		}
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, map[string]interface{}{
		"status":     status,
		"version":    common.GetVersion(),
		"components": components,
	})
}
