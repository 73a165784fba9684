package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller as seen by the services
type Principal struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// IsAdmin reports whether the principal has the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Token types carried in the "typ" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims represents the JWT claims issued by the auth service.
// The subject carries the numeric user id.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
	Type  string `json:"typ"`
}

// GetUserID parses the user ID from the JWT subject claim.
func (c *TokenClaims) GetUserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // Access token lifetime in seconds
}

// Session is the login/refresh response: the user plus fresh tokens
type Session struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}
