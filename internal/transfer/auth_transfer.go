package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type ConnectionResponse struct {
	Platform    string     `json:"platform"`
	DisplayName string     `json:"displayName"`
	Connected   bool       `json:"connected"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}
