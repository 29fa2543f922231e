package models

import "time"

// User is a registered API consumer. PasswordHash is bcrypt; the plaintext
// is never stored.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// APIKey is the stored form of an issued key: only the SHA-256 hash and a
// short prefix for identification. The plaintext key is returned exactly
// once at issue time.
type APIKey struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Prefix    string     `json:"prefix"` // first 8 chars of the raw key
	KeyHash   string     `json:"-"`      // sha256 hex of the raw key
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the key is past its expiry, if it has one.
func (k APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
