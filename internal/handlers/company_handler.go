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

// CompanyHandler serves the company catalog endpoints.
type CompanyHandler struct {
	catalog       interfaces.CatalogStore
	announcements interfaces.AnnouncementStore
	cache         interfaces.CacheService
	ttl           common.CacheTTLConfig
	logger        arbor.ILogger
}

func NewCompanyHandler(
	catalog interfaces.CatalogStore,
	announcements interfaces.AnnouncementStore,
	cacheSvc interfaces.CacheService,
	ttl common.CacheTTLConfig,
	logger arbor.ILogger,
) *CompanyHandler {
	return &CompanyHandler{
		catalog:       catalog,
		announcements: announcements,
		cache:         cacheSvc,
		ttl:           ttl,
		logger:        logger,
	}
}

// CompanyListResponse is the paginated catalog listing.
type CompanyListResponse struct {
	Companies  []*models.Company  `json:"companies"`
	Pagination PaginationResponse `json:"pagination"`
}

// ListHandler handles GET /api/companies with optional search and paging.
func (h *CompanyHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	page, limit := GetPaginationParams(r)

	cacheID := fmt.Sprintf("q=%s&page=%d&limit=%d", query, page, limit)
	var cached CompanyListResponse
	if hit, _ := h.cache.Get(r.Context(), cache.ScopeCompanies, cacheID, &cached); hit {
		w.Header().Set("X-Cache", "HIT")
		WriteJSON(w, http.StatusOK, cached)
		return
	}

	offset := (page - 1) * limit
	companies, total, err := h.catalog.List(r.Context(), query, offset, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Company list failed")
		WriteFault(w, err)
		return
	}
	if companies == nil {
		companies = []*models.Company{}
	}

	resp := CompanyListResponse{
		Companies: companies,
		Pagination: PaginationResponse{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
			TotalPages: totalPages(total, limit),
		},
	}
	h.cache.Set(r.Context(), cache.ScopeCompanies, cacheID, resp, h.ttl.Companies)
	w.Header().Set("X-Cache", "MISS")
	WriteJSON(w, http.StatusOK, resp)
}

// GetHandler handles GET /api/companies/{id}.
func (h *CompanyHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.companyID(w, r)
	if !ok {
		return
	}

	cacheID := strconv.FormatInt(id, 10)
	var cached models.Company
	if hit, _ := h.cache.Get(r.Context(), cache.ScopeCompany, cacheID, &cached); hit {
		w.Header().Set("X-Cache", "HIT")
		WriteJSON(w, http.StatusOK, cached)
		return
	}

	company, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Int64("company_id", id).Msg("Company lookup failed")
		WriteFault(w, err)
		return
	}
	if company == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("company %d not found", id))
		return
	}

	h.cache.Set(r.Context(), cache.ScopeCompany, cacheID, company, h.ttl.Company)
	w.Header().Set("X-Cache", "MISS")
	WriteJSON(w, http.StatusOK, company)
}

// AnnouncementsHandler handles GET /api/companies/{id}/announcements.
func (h *CompanyHandler) AnnouncementsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.companyID(w, r)
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

	rows, err := h.announcements.ListBySymbol(r.Context(), company.Symbol, 50)
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", company.Symbol).Msg("Announcement list failed")
		WriteFault(w, err)
		return
	}
	if rows == nil {
		rows = []models.Announcement{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":        company.Symbol,
		"announcements": rows,
	})
}

func (h *CompanyHandler) companyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid company id %q", raw))
		return 0, false
	}
	return id, true
}
