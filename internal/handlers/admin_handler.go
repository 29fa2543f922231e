package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/queue"
)

// AdminHandler serves cache administration and manual pipeline triggers.
type AdminHandler struct {
	cache     interfaces.CacheService
	ingestion interfaces.IngestionStore
	publisher interfaces.Publisher
	logger    arbor.ILogger
}

func NewAdminHandler(
	cacheSvc interfaces.CacheService,
	ingestion interfaces.IngestionStore,
	publisher interfaces.Publisher,
	logger arbor.ILogger,
) *AdminHandler {
	return &AdminHandler{
		cache:     cacheSvc,
		ingestion: ingestion,
		publisher: publisher,
		logger:    logger,
	}
}

// InvalidateScopeHandler handles POST /api/cache/invalidate/{scope}.
func (h *AdminHandler) InvalidateScopeHandler(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	if scope == "" {
		WriteError(w, http.StatusBadRequest, "scope is required")
		return
	}

	deleted, err := h.cache.InvalidateScope(r.Context(), scope)
	if err != nil {
		h.logger.Error().Err(err).Str("scope", scope).Msg("Cache invalidation failed")
		WriteFault(w, err)
		return
	}

	h.logger.Info().Str("scope", scope).Int("deleted", deleted).Msg("Cache scope invalidated via API")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scope":   scope,
		"deleted": deleted,
	})
}

type triggerRequest struct {
	ObjectKey string `json:"object_key"`
}

// TriggerProcessingHandler handles POST /api/reports/trigger-processing:
// it re-queues one stored document for extraction and scoring.
func (h *AdminHandler) TriggerProcessingHandler(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, _, _, err := models.ParseObjectKey(req.ObjectKey); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.ingestion.Get(r.Context(), req.ObjectKey)
	if err != nil {
		WriteFault(w, err)
		return
	}
	if rec == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("no ingested document %s", req.ObjectKey))
		return
	}

	body, err := json.Marshal(queue.ExtractionTask{ObjectKey: req.ObjectKey})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.publisher.Publish(r.Context(), queue.ExtractionTasks, body); err != nil {
		h.logger.Error().Err(err).Str("object_key", req.ObjectKey).Msg("Trigger publish failed")
		WriteFault(w, err)
		return
	}

	h.logger.Info().Str("object_key", req.ObjectKey).Msg("Extraction re-triggered via API")
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"object_key": req.ObjectKey,
	})
}
