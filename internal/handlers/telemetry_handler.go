package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/services/cache"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamPollInterval is how often the stream endpoint checks for a newer
// snapshot. Dashboards refresh on the order of minutes, so seconds of lag
// is invisible to clients.
const streamPollInterval = 10 * time.Second

// TelemetryHandler serves scraped CEMS snapshots.
type TelemetryHandler struct {
	store  interfaces.TelemetryStore
	cache  interfaces.CacheService
	ttl    common.CacheTTLConfig
	logger arbor.ILogger
}

func NewTelemetryHandler(store interfaces.TelemetryStore, cacheSvc interfaces.CacheService, ttl common.CacheTTLConfig, logger arbor.ILogger) *TelemetryHandler {
	return &TelemetryHandler{
		store:  store,
		cache:  cacheSvc,
		ttl:    ttl,
		logger: logger,
	}
}

// LatestHandler handles GET /api/telemetry/latest?company=.
func (h *TelemetryHandler) LatestHandler(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, "telemetry storage is not configured")
		return
	}
	company := r.URL.Query().Get("company")
	if company == "" {
		WriteError(w, http.StatusBadRequest, "query parameter company is required")
		return
	}

	var cached models.TelemetrySnapshot
	if hit, _ := h.cache.Get(r.Context(), cache.ScopeTelemetry, company, &cached); hit {
		w.Header().Set("X-Cache", "HIT")
		WriteJSON(w, http.StatusOK, cached)
		return
	}

	snapshot, err := h.store.Latest(r.Context(), company)
	if err != nil {
		h.logger.Error().Err(err).Str("company", company).Msg("Telemetry lookup failed")
		WriteFault(w, err)
		return
	}
	if snapshot == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("no telemetry for %s", company))
		return
	}

	h.cache.Set(r.Context(), cache.ScopeTelemetry, company, snapshot, h.ttl.Telemetry)
	w.Header().Set("X-Cache", "MISS")
	WriteJSON(w, http.StatusOK, snapshot)
}

// StreamHandler handles GET /api/telemetry/stream?company=, pushing each
// new snapshot over a WebSocket until the client disconnects.
func (h *TelemetryHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, "telemetry storage is not configured")
		return
	}
	company := r.URL.Query().Get("company")
	if company == "" {
		WriteError(w, http.StatusBadRequest, "query parameter company is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Debug().Str("company", company).Msg("Telemetry stream connected")

	// Reader goroutine: the client sends nothing we care about, but reads
	// surface disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var lastSent time.Time
	if snapshot, err := h.store.Latest(r.Context(), company); err == nil && snapshot != nil {
		if h.push(conn, snapshot) != nil {
			return
		}
		lastSent = snapshot.ScrapedAt
	}

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			h.logger.Debug().Str("company", company).Msg("Telemetry stream closed by client")
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			snapshot, err := h.store.LatestSince(r.Context(), company, lastSent)
			if err != nil {
				h.logger.Warn().Err(err).Str("company", company).Msg("Telemetry poll failed")
				continue
			}
			if snapshot == nil {
				continue
			}
			if err := h.push(conn, snapshot); err != nil {
				h.logger.Debug().Err(err).Str("company", company).Msg("Telemetry stream write failed")
				return
			}
			lastSent = snapshot.ScrapedAt
		}
	}
}

func (h *TelemetryHandler) push(conn *websocket.Conn, snapshot *models.TelemetrySnapshot) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(snapshot)
}
