package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
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

func newTestService(store *fakeUserStore) *Service {
	return NewService(store, common.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}, arbor.NewLogger())
}

func TestRegister(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)

	user, rawKey, err := svc.Register(context.Background(), " Analyst@Example.COM ", "correct horse battery")
	require.NoError(t, err)

	assert.Equal(t, "analyst@example.com", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse battery")))

	require.True(t, strings.HasPrefix(rawKey, "esg_"))
	assert.Len(t, rawKey, len("esg_")+keyRandomBytes*2)

	sum := sha256.Sum256([]byte(rawKey))
	stored := store.keys[hex.EncodeToString(sum[:])]
	require.NotNil(t, stored, "only the hash of the raw key may be stored")
	assert.Equal(t, rawKey[:8], stored.Prefix)
	assert.Equal(t, user.ID, stored.UserID)
	assert.True(t, stored.Active)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "ANALYST@example.com", "another password 4 me")
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "correct horse battery"},
		{"email without at sign", "analyst.example.com", "correct horse battery"},
		{"short password", "analyst@example.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newFakeUserStore())

			_, _, err := svc.Register(context.Background(), tt.email, tt.password)

			require.Error(t, err)
			assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
		})
	}
}

func TestLoginAndVerifyToken(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)

	token, expiresAt, err := svc.Login(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	principal, err := svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "analyst@example.com", principal.Email)
	assert.Equal(t, "token", principal.Via)
}

func TestLoginWrongCredentials(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "analyst@example.com", "wrong password here")
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
	wrongPassword := err.Error()

	_, _, err = svc.Login(ctx, "nobody@example.com", "correct horse battery")
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
	assert.Equal(t, wrongPassword, err.Error(), "unknown email and wrong password must report identically")
}

func TestLoginWithoutSecret(t *testing.T) {
	svc := NewService(newFakeUserStore(), common.AuthConfig{}, arbor.NewLogger())

	_, _, err := svc.Login(context.Background(), "analyst@example.com", "correct horse battery")

	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentSystem, common.KindOf(err))
}

func TestVerifyTokenExpired(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.Login(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.VerifyToken(ctx, token)
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}

func TestVerifyTokenTampered(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.VerifyToken(ctx, token+"x")
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}

func TestVerifyAPIKey(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	user, rawKey, err := svc.Register(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)

	principal, err := svc.VerifyAPIKey(ctx, rawKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "api_key", principal.Via)
}

func TestVerifyAPIKeyRejected(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{"missing prefix", "sk-0123456789abcdef"},
		{"unknown key", "esg_0123456789abcdef0123456789abcdef0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyAPIKey(ctx, tt.key)

			require.Error(t, err)
			assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
		})
	}
}

func TestVerifyAPIKeyExpired(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, rawKey, err := svc.Register(ctx, "analyst@example.com", "correct horse battery")
	require.NoError(t, err)

	expired := time.Now().Add(-time.Hour)
	sum := sha256.Sum256([]byte(rawKey))
	store.keys[hex.EncodeToString(sum[:])].ExpiresAt = &expired

	_, err = svc.VerifyAPIKey(ctx, rawKey)
	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}
