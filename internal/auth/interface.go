package auth

import (
	"time"

	"cloudsyncpro/internal/domain/models"
)

// JWTVerifier defines the interface for access token verification.
// This abstraction keeps the middleware agnostic to signing details.
type JWTVerifier interface {
	// VerifyToken validates an access token and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.TokenClaims, error)

	// Close releases any resources held by the verifier (e.g. the JWKS refresh goroutine).
	Close() error
}

// TokenIssuer mints the access/refresh pair handed out at login and refresh
type TokenIssuer interface {
	IssueAccessToken(user *models.User) (string, error)

	// IssueRefreshToken returns the signed token and its expiry
	IssueRefreshToken(user *models.User) (string, time.Time, error)

	// ParseRefreshToken validates a refresh token's signature, expiry and type
	ParseRefreshToken(tokenString string) (*models.TokenClaims, error)

	// AccessTTL is the access token lifetime, reported to clients as expires_in
	AccessTTL() time.Duration
}
