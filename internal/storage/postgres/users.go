package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

// ErrDuplicateEmail is returned when registering an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore persists users and their API keys.
type UserStore struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

var _ interfaces.UserStore = (*UserStore)(nil)

func NewUserStore(pool *pgxpool.Pool, logger arbor.ILogger) *UserStore {
	return &UserStore{pool: pool, logger: logger}
}

func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		strings.ToLower(user.Email), user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.PermanentInput(ErrDuplicateEmail)
		}
		return common.Transient(fmt.Errorf("failed to create user: %w", err))
	}
	return nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = $1`,
		strings.ToLower(email)).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to load user: %w", err))
	}
	return &u, nil
}

func (s *UserStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO api_keys (user_id, prefix, key_hash, active, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		key.UserID, key.Prefix, key.KeyHash, key.Active, key.ExpiresAt).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to create api key: %w", err))
	}
	return nil
}

func (s *UserStore) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var k models.APIKey
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, prefix, key_hash, active, expires_at, created_at
		FROM api_keys WHERE key_hash = $1`,
		keyHash).Scan(&k.ID, &k.UserID, &k.Prefix, &k.KeyHash, &k.Active, &k.ExpiresAt, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to load api key: %w", err))
	}
	return &k, nil
}
