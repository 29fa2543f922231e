package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/services/cache"
)

// ReportRenderer produces the downloadable PDF for one scored company-year.
type ReportRenderer interface {
	ScoreReport(company *models.Company, score *models.ESGScore) ([]byte, error)
}

// ScoreHandler serves computed ESG scores and their PDF reports.
type ScoreHandler struct {
	scores   interfaces.ScoreStore
	catalog  interfaces.CatalogStore
	renderer ReportRenderer
	cache    interfaces.CacheService
	ttl      common.CacheTTLConfig
	logger   arbor.ILogger
}

func NewScoreHandler(
	scores interfaces.ScoreStore,
	catalog interfaces.CatalogStore,
	renderer ReportRenderer,
	cacheSvc interfaces.CacheService,
	ttl common.CacheTTLConfig,
	logger arbor.ILogger,
) *ScoreHandler {
	return &ScoreHandler{
		scores:   scores,
		catalog:  catalog,
		renderer: renderer,
		cache:    cacheSvc,
		ttl:      ttl,
		logger:   logger,
	}
}

// ScoreResponse is one company-year score with the years that have scores.
type ScoreResponse struct {
	Score *models.ESGScore `json:"score"`
	Years []int            `json:"years"`
}

// GetHandler handles GET /api/companies/{id}/scores?year=. Without a year
// it returns the most recent scored year.
func (h *ScoreHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.companyID(w, r)
	if !ok {
		return
	}

	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	cacheID := fmt.Sprintf("%d:%d", id, year)
	var cached ScoreResponse
	if hit, _ := h.cache.Get(r.Context(), cache.ScopeScores, cacheID, &cached); hit {
		w.Header().Set("X-Cache", "HIT")
		WriteJSON(w, http.StatusOK, cached)
		return
	}

	years, err := h.scores.ListYears(r.Context(), id)
	if err != nil {
		WriteFault(w, err)
		return
	}
	if year == 0 {
		if len(years) == 0 {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("no scores for company %d", id))
			return
		}
		year = years[0] // newest first
		cacheID = fmt.Sprintf("%d:%d", id, year)
	}

	score, err := h.scores.Get(r.Context(), id, year)
	if err != nil {
		h.logger.Error().Err(err).Int64("company_id", id).Int("year", year).Msg("Score lookup failed")
		WriteFault(w, err)
		return
	}
	if score == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("no score for company %d in %d", id, year))
		return
	}

	resp := ScoreResponse{Score: score, Years: years}
	h.cache.Set(r.Context(), cache.ScopeScores, cacheID, resp, h.ttl.Scores)
	w.Header().Set("X-Cache", "MISS")
	WriteJSON(w, http.StatusOK, resp)
}

// ReportHandler handles GET /api/companies/{id}/report?year=, streaming the
// score breakdown as a PDF.
func (h *ScoreHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.companyID(w, r)
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	company, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		WriteFault(w, err)
		return
	}
	if company == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("company %d not found", id))
		return
	}

	if year == 0 {
		years, err := h.scores.ListYears(r.Context(), id)
		if err != nil {
			WriteFault(w, err)
			return
		}
		if len(years) == 0 {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("no scores for company %d", id))
			return
		}
		year = years[0]
	}

	score, err := h.scores.Get(r.Context(), id, year)
	if err != nil {
		WriteFault(w, err)
		return
	}
	if score == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("no score for company %d in %d", id, year))
		return
	}

	pdfBytes, err := h.renderer.ScoreReport(company, score)
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", company.Symbol).Int("year", year).Msg("Report render failed")
		WriteFault(w, err)
		return
	}

	filename := fmt.Sprintf("%s_%d_esg_report.pdf", company.Symbol, year)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

func (h *ScoreHandler) companyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid company id %q", raw))
		return 0, false
	}
	return id, true
}

// yearParam returns 0 when the query has no year, meaning "latest".
func (h *ScoreHandler) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid year %q", raw))
		return 0, false
	}
	return year, true
}
