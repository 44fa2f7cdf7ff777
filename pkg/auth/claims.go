package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims represents the typed JWT the identity provider issues to
// clients. The service only verifies tokens; it never mints them in
// production paths.
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
