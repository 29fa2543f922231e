package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/services/cache"
)

// noopCache returns a disabled cache service: every read misses, every
// write is dropped.
func noopCache() interfaces.CacheService {
	return cache.NewService(common.CacheConfig{Enabled: false}, arbor.NewLogger())
}

// liveCache returns a cache service backed by an in-process Redis.
func liveCache(t *testing.T) interfaces.CacheService {
	t.Helper()
	srv := miniredis.RunT(t)
	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)

	svc := cache.NewService(common.CacheConfig{
		Host:    srv.Host(),
		Port:    port,
		Enabled: true,
	}, arbor.NewLogger())
	t.Cleanup(func() { svc.Close() })
	return svc
}

type fakeCatalog struct {
	byID     map[int64]*models.Company
	bySymbol map[string]*models.Company
	list     []*models.Company
	total    int
	err      error
}

func (f *fakeCatalog) Reconcile(ctx context.Context, rows []models.CatalogRow) (models.SyncResult, error) {
	return models.SyncResult{}, nil
}

func (f *fakeCatalog) GetBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	return f.bySymbol[symbol], f.err
}

func (f *fakeCatalog) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	return f.byID[id], f.err
}

func (f *fakeCatalog) List(ctx context.Context, query string, offset, limit int) ([]*models.Company, int, error) {
	return f.list, f.total, f.err
}

type fakeAnnouncements struct {
	rows []models.Announcement
	err  error
}

func (f *fakeAnnouncements) Upsert(ctx context.Context, rows []models.Announcement) (int, error) {
	return 0, nil
}

func (f *fakeAnnouncements) ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.Announcement, error) {
	return f.rows, f.err
}

type fakeScores struct {
	scores map[string]*models.ESGScore // "id:year"
	years  []int
	err    error
}

func scoreKey(id int64, year int) string {
	b, _ := json.Marshal([2]int64{id, int64(year)})
	return string(b)
}

func (f *fakeScores) Upsert(ctx context.Context, score *models.ESGScore) error { return nil }

func (f *fakeScores) Get(ctx context.Context, companyID int64, year int) (*models.ESGScore, error) {
	return f.scores[scoreKey(companyID, year)], f.err
}

func (f *fakeScores) ListYears(ctx context.Context, companyID int64) ([]int, error) {
	return f.years, f.err
}

type fakeIndicators struct {
	grouped map[int][]models.Indicator
	err     error
}

func (f *fakeIndicators) EnsureSeeded(ctx context.Context, indicators []models.Indicator) error {
	return nil
}

func (f *fakeIndicators) ListByAttribute(ctx context.Context) (map[int][]models.Indicator, error) {
	return f.grouped, f.err
}

var (
	_ interfaces.CatalogStore      = (*fakeCatalog)(nil)
	_ interfaces.AnnouncementStore = (*fakeAnnouncements)(nil)
	_ interfaces.ScoreStore        = (*fakeScores)(nil)
	_ interfaces.IndicatorStore    = (*fakeIndicators)(nil)
)

func testCompany() *models.Company {
	return &models.Company{
		ID:       7,
		Symbol:   "RELIANCE",
		Name:     "Reliance Industries Limited",
		Industry: "Oil & Gas",
		Series:   "EQ",
		ISIN:     "INE002A01018",
	}
}

func companyRouter(h *CompanyHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/companies", h.ListHandler)
	r.Get("/api/companies/{id}", h.GetHandler)
	r.Get("/api/companies/{id}/announcements", h.AnnouncementsHandler)
	return r
}

func TestCompanyListHandler(t *testing.T) {
	catalog := &fakeCatalog{list: []*models.Company{testCompany()}, total: 41}
	h := NewCompanyHandler(catalog, &fakeAnnouncements{}, noopCache(), common.CacheTTLConfig{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/companies?q=reliance&page=2&limit=20", nil)
	rec := httptest.NewRecorder()
	companyRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CompanyListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Companies, 1)
	assert.Equal(t, "RELIANCE", resp.Companies[0].Symbol)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 41, resp.Pagination.TotalItems)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
}

func TestCompanyListHandlerEmpty(t *testing.T) {
	h := NewCompanyHandler(&fakeCatalog{}, &fakeAnnouncements{}, noopCache(), common.CacheTTLConfig{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/companies", nil)
	rec := httptest.NewRecorder()
	companyRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"companies":[]`,
		"an empty catalog must serialize as an array, not null")
}

func TestCompanyGetHandler(t *testing.T) {
	catalog := &fakeCatalog{byID: map[int64]*models.Company{7: testCompany()}}
	h := NewCompanyHandler(catalog, &fakeAnnouncements{}, noopCache(), common.CacheTTLConfig{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/companies/7", nil)
	rec := httptest.NewRecorder()
	companyRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "INE002A01018", got.ISIN)
}

func TestCompanyGetHandlerNotFound(t *testing.T) {
	h := NewCompanyHandler(&fakeCatalog{}, &fakeAnnouncements{}, noopCache(), common.CacheTTLConfig{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/companies/99", nil)
	rec := httptest.NewRecorder()
	companyRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompanyGetHandlerBadID(t *testing.T) {
	h := NewCompanyHandler(&fakeCatalog{}, &fakeAnnouncements{}, noopCache(), common.CacheTTLConfig{}, arbor.NewLogger())

	for _, raw := range []string{"abc", "-3", "0"} {
		req := httptest.NewRequest("GET", "/api/companies/"+raw, nil)
		rec := httptest.NewRecorder()
		companyRouter(h).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id %q", raw)
	}
}

func TestCompanyGetHandlerCacheHeader(t *testing.T) {
	catalog := &fakeCatalog{byID: map[int64]*models.Company{7: testCompany()}}
	h := NewCompanyHandler(catalog, &fakeAnnouncements{}, liveCache(t),
		common.CacheTTLConfig{Company: time.Minute}, arbor.NewLogger())
	router := companyRouter(h)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest("GET", "/api/companies/7", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest("GET", "/api/companies/7", nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	var got models.Company
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &got))
	assert.Equal(t, "RELIANCE", got.Symbol)
}

func TestAnnouncementsHandler(t *testing.T) {
	catalog := &fakeCatalog{byID: map[int64]*models.Company{7: testCompany()}}
	announcements := &fakeAnnouncements{rows: []models.Announcement{
		{Symbol: "RELIANCE", Subject: "Business Responsibility and Sustainability Report", BroadcastAt: time.Now()},
	}}
	h := NewCompanyHandler(catalog, announcements, noopCache(), common.CacheTTLConfig{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/companies/7/announcements", nil)
	rec := httptest.NewRecorder()
	companyRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Business Responsibility")
}

func TestIndicatorDefinitionsHandler(t *testing.T) {
	store := &fakeIndicators{grouped: map[int][]models.Indicator{
		1: {{Code: "E1_GHG_SCOPE1", Attribute: 1, ParameterName: "Scope 1 emissions"}},
		6: {{Code: "S2_LTIFR", Attribute: 6, ParameterName: "Lost time injury frequency rate"}},
	}}
	h := NewIndicatorHandler(store, noopCache(), common.CacheTTLConfig{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/indicators/definitions", nil)
	rec := httptest.NewRecorder()
	h.DefinitionsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Attributes map[int][]models.Indicator `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Attributes, 2)
	assert.Equal(t, "E1_GHG_SCOPE1", resp.Attributes[1][0].Code)
}
