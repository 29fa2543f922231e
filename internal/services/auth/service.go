// Package auth issues and verifies API credentials: bcrypt passwords
// exchanged for short-lived JWTs, and long-lived API keys handed out once at
// registration and stored only as hashes.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
	"github.com/greenarc/esgpipe/internal/models"
)

const (
	keyPrefix      = "esg_"
	keyRandomBytes = 24
	prefixLen      = 8
	minPasswordLen = 8
	tokenIssuer    = "esgpipe"
)

// Service manages users, API keys, and JWT session tokens.
type Service struct {
	users  interfaces.UserStore
	cfg    common.AuthConfig
	logger arbor.ILogger
	now    func() time.Time
}

// Principal identifies an authenticated caller. Email is empty for API-key
// callers; the key row does not carry it.
type Principal struct {
	UserID int64
	Email  string
	Via    string // "token" or "api_key"
}

// Key returns the identity string rate limits bucket on.
func (p Principal) Key() string {
	return "user:" + strconv.FormatInt(p.UserID, 10)
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewService creates an auth service backed by the given user store.
func NewService(users interfaces.UserStore, cfg common.AuthConfig, logger arbor.ILogger) *Service {
	return &Service{
		users:  users,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a user and issues their API key. The returned key is the
// only time the plaintext exists outside the caller: storage keeps a SHA-256
// hash and an 8-character display prefix.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", common.PermanentInput(fmt.Errorf("a valid email is required"))
	}
	if len(password) < minPasswordLen {
		return nil, "", common.PermanentInput(fmt.Errorf("password must be at least %d characters", minPasswordLen))
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, "", common.PermanentInput(fmt.Errorf("email is already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	rawKey, apiKey, err := s.issueKey(user.ID)
	if err != nil {
		return nil, "", err
	}
	if err := s.users.CreateAPIKey(ctx, apiKey); err != nil {
		return nil, "", fmt.Errorf("failed to store API key: %w", err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("email", email).
		Str("key_prefix", apiKey.Prefix).
		Msg("User registered")
	return user, rawKey, nil
}

// issueKey mints a fresh API key. The raw key lives in memory just long
// enough to hand back to the caller.
func (s *Service) issueKey(userID int64) (string, *models.APIKey, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, common.PermanentSystem(fmt.Errorf("failed to generate API key: %w", err))
	}

	raw := keyPrefix + hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(raw))
	return raw, &models.APIKey{
		UserID:    userID,
		Prefix:    raw[:prefixLen],
		KeyHash:   hex.EncodeToString(sum[:]),
		Active:    true,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Login checks the password and returns a signed JWT with its expiry.
// Unknown emails and wrong passwords report identically so the endpoint
// never confirms which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	if s.cfg.JWTSecret == "" {
		return "", time.Time{}, common.PermanentSystem(fmt.Errorf("JWT secret is not configured"))
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", time.Time{}, common.PermanentInput(fmt.Errorf("invalid email or password"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, common.PermanentInput(fmt.Errorf("invalid email or password"))
	}

	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := tokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti lets individual sessions be traced in access logs.
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, common.PermanentSystem(fmt.Errorf("failed to sign token: %w", err))
	}

	return signed, expiresAt, nil
}

// VerifyToken validates a bearer token and returns its principal. Expiry and
// signature checks are jwt's; only HS256 tokens are accepted.
func (s *Service) VerifyToken(ctx context.Context, raw string) (*Principal, error) {
	if s.cfg.JWTSecret == "" {
		return nil, common.PermanentSystem(fmt.Errorf("JWT secret is not configured"))
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, common.PermanentInput(fmt.Errorf("invalid token: %w", err))
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, common.PermanentInput(fmt.Errorf("invalid token subject: %w", err))
	}
	return &Principal{UserID: userID, Email: claims.Email, Via: "token"}, nil
}

// VerifyAPIKey validates a raw API key against its stored hash.
func (s *Service) VerifyAPIKey(ctx context.Context, raw string) (*Principal, error) {
	if !strings.HasPrefix(raw, keyPrefix) {
		return nil, common.PermanentInput(fmt.Errorf("malformed API key"))
	}

	sum := sha256.Sum256([]byte(raw))
	key, err := s.users.GetAPIKeyByHash(ctx, hex.EncodeToString(sum[:]))
	if err != nil {
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}
	if key == nil || !key.Active {
		return nil, common.PermanentInput(fmt.Errorf("unknown API key"))
	}
	if key.Expired(s.now()) {
		return nil, common.PermanentInput(fmt.Errorf("API key expired"))
	}

	return &Principal{UserID: key.UserID, Via: "api_key"}, nil
}
