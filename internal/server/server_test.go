package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/handlers"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/services/auth"
	"github.com/greenarc/esgpipe/internal/services/cache"
)

type stubCatalog struct{}

func (stubCatalog) Reconcile(ctx context.Context, rows []models.CatalogRow) (models.SyncResult, error) {
	return models.SyncResult{}, nil
}
func (stubCatalog) GetBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	return nil, nil
}
func (stubCatalog) GetByID(ctx context.Context, id int64) (*models.Company, error) { return nil, nil }
func (stubCatalog) List(ctx context.Context, query string, offset, limit int) ([]*models.Company, int, error) {
	return []*models.Company{{ID: 1, Symbol: "RELIANCE", Name: "Reliance Industries Limited"}}, 1, nil
}

type stubAnnouncements struct{}

func (stubAnnouncements) Upsert(ctx context.Context, rows []models.Announcement) (int, error) {
	return 0, nil
}
func (stubAnnouncements) ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.Announcement, error) {
	return nil, nil
}

type stubScores struct{}

func (stubScores) Upsert(ctx context.Context, score *models.ESGScore) error { return nil }
func (stubScores) Get(ctx context.Context, companyID int64, year int) (*models.ESGScore, error) {
	return nil, nil
}
func (stubScores) ListYears(ctx context.Context, companyID int64) ([]int, error) { return nil, nil }

type stubIndicators struct{}

func (stubIndicators) EnsureSeeded(ctx context.Context, indicators []models.Indicator) error {
	return nil
}
func (stubIndicators) ListByAttribute(ctx context.Context) (map[int][]models.Indicator, error) {
	return map[int][]models.Indicator{}, nil
}

type stubTelemetry struct{}

func (stubTelemetry) Append(ctx context.Context, snapshot *models.TelemetrySnapshot) error {
	return nil
}
func (stubTelemetry) Latest(ctx context.Context, companyName string) (*models.TelemetrySnapshot, error) {
	return nil, nil
}
func (stubTelemetry) LatestSince(ctx context.Context, companyName string, since time.Time) (*models.TelemetrySnapshot, error) {
	return nil, nil
}

type stubUsers struct{}

func (stubUsers) CreateUser(ctx context.Context, user *models.User) error { return nil }
func (stubUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (stubUsers) CreateAPIKey(ctx context.Context, key *models.APIKey) error { return nil }
func (stubUsers) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	return nil, nil
}

type stubIngestion struct{}

func (stubIngestion) Upsert(ctx context.Context, rec *models.IngestionRecord) error { return nil }
func (stubIngestion) Get(ctx context.Context, objectKey string) (*models.IngestionRecord, error) {
	return nil, nil
}
func (stubIngestion) SetStatus(ctx context.Context, objectKey, status, errMsg string) error {
	return nil
}
func (stubIngestion) ListByStatus(ctx context.Context, status string, limit int) ([]*models.IngestionRecord, error) {
	return nil, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, q string, body []byte) error { return nil }

type stubRenderer struct{}

func (stubRenderer) ScoreReport(company *models.Company, score *models.ESGScore) ([]byte, error) {
	return []byte("%PDF"), nil
}

var (
	_ interfaces.CatalogStore      = stubCatalog{}
	_ interfaces.AnnouncementStore = stubAnnouncements{}
	_ interfaces.ScoreStore        = stubScores{}
	_ interfaces.IndicatorStore    = stubIndicators{}
	_ interfaces.TelemetryStore    = stubTelemetry{}
	_ interfaces.UserStore         = stubUsers{}
	_ interfaces.IngestionStore    = stubIngestion{}
	_ interfaces.Publisher         = stubPublisher{}
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := arbor.NewLogger()
	cacheSvc := cache.NewService(common.CacheConfig{Enabled: false}, logger)
	ttl := common.CacheTTLConfig{}

	authCfg := common.AuthConfig{JWTSecret: "routes-test-secret", TokenTTL: time.Hour}
	authSvc := auth.NewService(stubUsers{}, authCfg, logger)

	h := Handlers{
		Health: handlers.NewHealthHandler(map[string]handlers.ComponentPinger{
			"db": func(ctx context.Context) error { return nil },
		}, logger),
		Companies:  handlers.NewCompanyHandler(stubCatalog{}, stubAnnouncements{}, cacheSvc, ttl, logger),
		Indicators: handlers.NewIndicatorHandler(stubIndicators{}, cacheSvc, ttl, logger),
		Scores:     handlers.NewScoreHandler(stubScores{}, stubCatalog{}, stubRenderer{}, cacheSvc, ttl, logger),
		Telemetry:  handlers.NewTelemetryHandler(stubTelemetry{}, cacheSvc, ttl, logger),
		Auth:       handlers.NewAuthHandler(authSvc, logger),
		Admin:      handlers.NewAdminHandler(cacheSvc, stubIngestion{}, stubPublisher{}, logger),
		Middleware: handlers.NewMiddleware(authSvc, auth.NewLimiter(authCfg), logger),
	}

	return New(common.ServerConfig{Host: "127.0.0.1", Port: 8085}, h, logger)
}

func TestRouteDispatch(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", "GET", "/health", http.StatusOK},
		{"companies list", "GET", "/api/companies", http.StatusOK},
		{"company missing", "GET", "/api/companies/42", http.StatusNotFound},
		{"indicator definitions", "GET", "/api/indicators/definitions", http.StatusOK},
		{"scores missing", "GET", "/api/companies/42/scores", http.StatusNotFound},
		{"telemetry needs company", "GET", "/api/telemetry/latest", http.StatusBadRequest},
		{"unknown api route", "GET", "/api/nope", http.StatusNotFound},
		{"protected without auth", "POST", "/api/reports/trigger-processing", http.StatusUnauthorized},
		{"cache invalidate without auth", "POST", "/api/cache/invalidate/scores", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHealthBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"db":"ok"`)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/companies", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitHeaderOnProtectedRoute(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/cache/invalidate/scores", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	// Unauthenticated requests never reach the limiter.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
