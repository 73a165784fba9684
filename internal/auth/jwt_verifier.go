package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenConfig configures TokenManager
type TokenConfig struct {
	Secret     string
	JWKSURL    string // optional: also accept RS256/ES256 access tokens signed by these keys
	JWKSIssuer string // required with JWKSURL: the iss those tokens must carry
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager issues HS256 tokens and verifies them. When a JWKS URL is
// configured, RS256/ES256 access tokens from that key set are accepted too,
// but only for identity: they always carry the user role.
type TokenManager struct {
	secret     []byte
	jwks       keyfunc.Keyfunc
	jwksIssuer string
	cancelJWKS context.CancelFunc
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewTokenManager creates a token manager. The JWKS key set, if any, is
// cached and refreshed in the background until Close.
func NewTokenManager(cfg TokenConfig, logger *slog.Logger) (*TokenManager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("JWT secret must be at least 32 bytes")
	}

	m := &TokenManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
		logger:     logger,
	}

	if cfg.JWKSURL != "" {
		if cfg.JWKSIssuer == "" {
			return nil, errors.New("JWKS verification needs the expected issuer")
		}
		m.jwksIssuer = cfg.JWKSIssuer

		ctx, cancel := context.WithCancel(context.Background())
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create JWKS client: %w", err)
		}
		m.jwks = jwks
		m.cancelJWKS = cancel
		logger.Info("JWKS verification enabled", "jwks_url", cfg.JWKSURL, "issuer", cfg.JWKSIssuer)
	}

	return m, nil
}

func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// IssueAccessToken signs a short-lived access token
func (m *TokenManager) IssueAccessToken(user *models.User) (string, error) {
	token, _, err := m.sign(user, models.TokenTypeAccess, m.accessTTL)
	return token, err
}

// IssueRefreshToken signs a refresh token. Each carries a random jti so that
// two tokens issued in the same second still hash differently.
func (m *TokenManager) IssueRefreshToken(user *models.User) (string, time.Time, error) {
	return m.sign(user, models.TokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) sign(user *models.User, typ string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)

	claims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", user.ID),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Role:  user.Role,
		Type:  typ,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

// VerifyToken validates an access token
func (m *TokenManager) VerifyToken(tokenString string) (*models.TokenClaims, error) {
	methods := []string{"HS256"}
	if m.jwks != nil {
		methods = append(methods, "RS256", "ES256")
	}

	claims, external, err := m.parse(tokenString, methods)
	if err != nil {
		return nil, err
	}

	if external {
		// Roles are granted locally; a foreign role claim is ignored
		claims.Role = models.RoleUser
	}

	// Externally issued tokens may omit typ; ours always set it
	if claims.Type == models.TokenTypeRefresh {
		m.logger.Debug("refresh token presented as access token", "sub", claims.Subject)
		return nil, domain.ErrUnauthorized
	}
	if claims.Role == "" {
		claims.Role = models.RoleUser
	}
	if !claims.Role.IsValid() {
		m.logger.Warn("token has unknown role", "role", claims.Role, "sub", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// ParseRefreshToken validates a refresh token; only locally signed tokens qualify
func (m *TokenManager) ParseRefreshToken(tokenString string) (*models.TokenClaims, error) {
	claims, _, err := m.parse(tokenString, []string{"HS256"})
	if err != nil {
		return nil, err
	}
	if claims.Type != models.TokenTypeRefresh {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// parse verifies signature, expiry and issuer. external reports a token
// signed by the JWKS key set rather than our own secret.
func (m *TokenManager) parse(tokenString string, methods []string) (*models.TokenClaims, bool, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, m.keyFor,
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		m.logger.Debug("token parse failed", "error", err)
		return nil, false, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok {
		m.logger.Error("failed to extract claims from token")
		return nil, false, domain.ErrUnauthorized
	}

	_, hmac := token.Method.(*jwt.SigningMethodHMAC)
	external := !hmac

	expectedIssuer := m.issuer
	if external {
		expectedIssuer = m.jwksIssuer
	}
	if expectedIssuer != "" && claims.Issuer != expectedIssuer {
		m.logger.Debug("token issuer mismatch", "iss", claims.Issuer, "external", external)
		return nil, false, domain.ErrUnauthorized
	}

	if _, err := claims.GetUserID(); err != nil {
		m.logger.Debug("token subject is not a user id", "sub", claims.Subject)
		return nil, false, domain.ErrUnauthorized
	}

	return claims, external, nil
}

// keyFor selects the verification key by signing method
func (m *TokenManager) keyFor(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		return m.secret, nil
	}
	if m.jwks == nil {
		return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
	}
	return m.jwks.Keyfunc(token)
}

// Close stops the JWKS background refresh
func (m *TokenManager) Close() error {
	if m.cancelJWKS != nil {
		m.cancelJWKS()
	}
	m.logger.Info("token manager closed")
	return nil
}
