package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
	"github.com/greenarc/esgpipe/internal/services/auth"
)

type fakeUserStore struct {
	users  map[string]*models.User
	keys   map[string]*models.APIKey
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: make(map[string]*models.User),
		keys:  make(map[string]*models.APIKey),
	}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.users[user.Email] = user
	return nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.users[email], nil
}

func (f *fakeUserStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	f.nextID++
	key.ID = f.nextID
	f.keys[key.KeyHash] = key
	return nil
}

func (f *fakeUserStore) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	return f.keys[keyHash], nil
}

var _ interfaces.UserStore = (*fakeUserStore)(nil)

func newTestAuthService() *auth.Service {
	cfg := common.AuthConfig{
		JWTSecret: "handler-test-secret",
		TokenTTL:  time.Hour,
	}
	return auth.NewService(newFakeUserStore(), cfg, arbor.NewLogger())
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegisterHandler(t *testing.T) {
	h := NewAuthHandler(newTestAuthService(), arbor.NewLogger())

	rec := postJSON(h.RegisterHandler, "/api/auth/register",
		`{"email":"analyst@example.com","password":"s3cret-pass"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		User   models.User `json:"user"`
		APIKey string      `json:"api_key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "analyst@example.com", resp.User.Email)
	assert.True(t, strings.HasPrefix(resp.APIKey, "esg_"),
		"the plaintext key is returned exactly once at registration")
}

func TestRegisterHandlerRejectsBadInput(t *testing.T) {
	h := NewAuthHandler(newTestAuthService(), arbor.NewLogger())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"email": `},
		{"missing email", `{"password":"s3cret-pass"}`},
		{"short password", `{"email":"a@b.com","password":"short"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(h.RegisterHandler, "/api/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	svc := newTestAuthService()
	h := NewAuthHandler(svc, arbor.NewLogger())

	rec := postJSON(h.RegisterHandler, "/api/auth/register",
		`{"email":"analyst@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(h.LoginHandler, "/api/auth/login",
		`{"email":"analyst@example.com","password":"s3cret-pass"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
		ExpiresAt string `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)

	expires, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)
}

func TestLoginHandlerWrongPassword(t *testing.T) {
	svc := newTestAuthService()
	h := NewAuthHandler(svc, arbor.NewLogger())

	postJSON(h.RegisterHandler, "/api/auth/register",
		`{"email":"analyst@example.com","password":"s3cret-pass"}`)

	rec := postJSON(h.LoginHandler, "/api/auth/login",
		`{"email":"analyst@example.com","password":"wrong-pass"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
