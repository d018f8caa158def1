package models

import "time"

// AuthorizationSession is one in-flight OAuth PKCE handshake.
type AuthorizationSession struct {
	State         string    `json:"state"`
	PlatformID    string    `json:"platform_id"`
	UserID        int64     `json:"user_id"`
	CodeVerifier  string    `json:"code_verifier"`
	CodeChallenge string    `json:"code_challenge"`
	CreatedAt     time.Time `json:"created_at"`
}

// PlatformCredential holds the tokens for one (user, platform) pair.
type PlatformCredential struct {
	UserID       int64     `db:"user_id" json:"user_id"`
	PlatformID   string    `db:"platform_id" json:"platform"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the access token is past its expiry. A zero
// ExpiresAt means the platform issued a non-expiring token.
func (c *PlatformCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
