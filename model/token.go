package model

import "time"

// RefreshToken holds the data for a refresh token in the database.
// Only the hash of the raw token is stored; rows are revoked, never deleted.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"` // The hash is not exposed in JSON responses.
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsValid reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
