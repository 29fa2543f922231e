package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/services/cache"
)

// IndicatorHandler serves the BRSR indicator catalog.
type IndicatorHandler struct {
	store  interfaces.IndicatorStore
	cache  interfaces.CacheService
	ttl    common.CacheTTLConfig
	logger arbor.ILogger
}

func NewIndicatorHandler(store interfaces.IndicatorStore, cacheSvc interfaces.CacheService, ttl common.CacheTTLConfig, logger arbor.ILogger) *IndicatorHandler {
	return &IndicatorHandler{
		store:  store,
		cache:  cacheSvc,
		ttl:    ttl,
		logger: logger,
	}
}

// DefinitionsHandler handles GET /api/indicators/definitions.
func (h *IndicatorHandler) DefinitionsHandler(w http.ResponseWriter, r *http.Request) {
	var cached map[int][]models.Indicator
	if hit, _ := h.cache.Get(r.Context(), cache.ScopeIndicators, "definitions", &cached); hit {
		w.Header().Set("X-Cache", "HIT")
		WriteJSON(w, http.StatusOK, map[string]interface{}{"attributes": cached})
		return
	}

	grouped, err := h.store.ListByAttribute(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Indicator definitions lookup failed")
		WriteFault(w, err)
		return
	}

	h.cache.Set(r.Context(), cache.ScopeIndicators, "definitions", grouped, h.ttl.Indicators)
	w.Header().Set("X-Cache", "MISS")
	WriteJSON(w, http.StatusOK, map[string]interface{}{"attributes": grouped})
}
