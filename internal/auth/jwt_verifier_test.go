package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(TokenConfig{
		Secret:     testSecret,
		Issuer:     "cloudsyncpro",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

var testUser = &models.User{ID: 42, Email: "ana@example.com", Role: models.RoleAdmin}

func TestNewTokenManager_ShortSecret(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{Secret: "short"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.IssueAccessToken(testUser)
	require.NoError(t, err)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)

	id, err := claims.GetUserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := newTestManager(t)

	refresh, expiresAt, err := m.IssueRefreshToken(testUser)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	_, err = m.VerifyToken(refresh)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	claims, err := m.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, claims.Type)

	access, err := m.IssueAccessToken(testUser)
	require.NoError(t, err)
	_, err = m.ParseRefreshToken(access)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m := newTestManager(t)

	a, _, err := m.IssueRefreshToken(testUser)
	require.NoError(t, err)
	b, _, err := m.IssueRefreshToken(testUser)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyToken_Rejects(t *testing.T) {
	m := newTestManager(t)

	expired := func() string {
		m.now = func() time.Time { return time.Now().Add(-time.Hour) }
		defer func() { m.now = time.Now }()
		token, err := m.IssueAccessToken(testUser)
		require.NoError(t, err)
		return token
	}()

	valid, err := m.IssueAccessToken(testUser)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	otherKey := func() string {
		claims := &models.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "42",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Type: models.TokenTypeAccess,
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-secret-another-secret-xx"))
		require.NoError(t, err)
		return token
	}()

	otherIssuer := func() string {
		claims := &models.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "42",
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Type: models.TokenTypeAccess,
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}()

	badSubject := func() string {
		claims := &models.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "cloudsyncpro",
				Subject:   "not-a-number",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}()

	noExpiry := func() string {
		claims := &models.TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42", Issuer: "cloudsyncpro"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}()

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not.a.token"},
		{name: "expired", token: expired},
		{name: "tampered signature", token: tampered},
		{name: "signed with another key", token: otherKey},
		{name: "issued by someone else", token: otherIssuer},
		{name: "non-numeric subject", token: badSubject},
		{name: "missing expiry", token: noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.VerifyToken(tt.token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestVerifyToken_DefaultsMissingRole(t *testing.T) {
	m := newTestManager(t)

	claims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "cloudsyncpro",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	got, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, got.Role)
}

func TestNewTokenManager_JWKSNeedsIssuer(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{
		Secret:  testSecret,
		JWKSURL: "https://id.example.com/.well-known/jwks.json",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

// withExternalKeys points m at a one-key JWKS and returns the private key
func withExternalKeys(t *testing.T, m *TokenManager, issuer string) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	set, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "ext-1",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	require.NoError(t, err)

	m.jwks, err = keyfunc.NewJWKSetJSON(set)
	require.NoError(t, err)
	m.jwksIssuer = issuer
	return key
}

func signExternal(t *testing.T, key *rsa.PrivateKey, issuer string, role models.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	})
	token.Header["kid"] = "ext-1"
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifyToken_ExternalTokens(t *testing.T) {
	m := newTestManager(t)
	key := withExternalKeys(t, m, "https://id.example.com")

	claims, err := m.VerifyToken(signExternal(t, key, "https://id.example.com", models.RoleAdmin))
	require.NoError(t, err)
	id, err := claims.GetUserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, models.RoleUser, claims.Role, "foreign role claims are not honoured")

	_, err = m.VerifyToken(signExternal(t, key, "https://evil.example.com", models.RoleUser))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Our own issuer name does not help a foreign key
	_, err = m.VerifyToken(signExternal(t, key, "cloudsyncpro", models.RoleUser))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Foreign keys never mint refresh tokens
	_, err = m.ParseRefreshToken(signExternal(t, key, "https://id.example.com", models.RoleUser))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
