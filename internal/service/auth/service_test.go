package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cloudsyncpro/internal/auth"
	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"
	"cloudsyncpro/internal/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[int64]*models.User)} }

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return &domain.ConflictError{Message: "an account with this email already exists", ResourceType: "user"}
		}
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "user not found"}
	}
	out := *u
	return &out, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "user not found"}
}

func (r *memUsers) List(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for id := int64(1); id <= r.nextID; id++ {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUsers) UpdateStatus(ctx context.Context, id int64, status models.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return &domain.NotFoundError{Message: "user not found"}
	}
	u.Status = status
	return nil
}

func (r *memUsers) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return &domain.NotFoundError{Message: "user not found"}
	}
	u.Role = role
	return nil
}

type memTokens struct {
	mu     sync.Mutex
	nextID int64
	tokens map[int64]*models.RefreshToken
}

func newMemTokens() *memTokens { return &memTokens{tokens: make(map[int64]*models.RefreshToken)} }

func (r *memTokens) Create(ctx context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	token.ID = r.nextID
	stored := *token
	r.tokens[token.ID] = &stored
	return nil
}

func (r *memTokens) GetByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			out := *t
			return &out, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "refresh token not found"}
}

func (r *memTokens) Revoke(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.RevokedAt != nil {
		return &domain.NotFoundError{Message: "refresh token not found or already revoked"}
	}
	t.RevokedAt = &at
	return nil
}

func (r *memTokens) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &at
		}
	}
	return nil
}

func (r *memTokens) active(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}

// staleTokens serves lookups from a snapshot taken before any revocation,
// the view a second concurrent refresh has of the same token
type staleTokens struct {
	*memTokens
}

func (r staleTokens) GetByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	token, err := r.memTokens.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	token.RevokedAt = nil
	return token, nil
}

type passthroughTx struct{}

func (passthroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

type authFixture struct {
	users   *memUsers
	tokens  *memTokens
	manager *auth.TokenManager
	service *Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	manager, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		Issuer:     "cloudsyncpro",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	}, discardLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	f := &authFixture{users: newMemUsers(), tokens: newMemTokens(), manager: manager}
	f.service = NewService(f.users, f.tokens, manager, passthroughTx{}, discardLogger)
	f.service.cost = bcrypt.MinCost
	return f
}

func (f *authFixture) register(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.service.Register(context.Background(), &services.RegisterRequest{
		Name:     "Ana",
		Email:    email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	user := f.register(t, "  Ana@Example.COM ")
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err := f.service.Register(ctx, &services.RegisterRequest{Name: "Other", Email: "ana@example.com", Password: "another one"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.service.Register(ctx, &services.RegisterRequest{Name: "x", Email: "not-an-email", Password: "short"})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Len(t, validationErr.Fields, 2)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.register(t, "ana@example.com")

	session, err := f.service.Login(ctx, &services.LoginRequest{Email: "ANA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.Equal(t, "Bearer", session.Tokens.TokenType)
	assert.Equal(t, int64(900), session.Tokens.ExpiresIn)
	assert.Equal(t, 1, f.tokens.active(user.ID))

	claims, err := f.manager.VerifyToken(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, claims.Role)

	_, err = f.service.Login(ctx, &services.LoginRequest{Email: "ana@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.service.Login(ctx, &services.LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_InactiveAccounts(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	for _, status := range []models.UserStatus{models.StatusBanned, models.StatusInactive} {
		t.Run(string(status), func(t *testing.T) {
			user := f.register(t, string(status)+"@example.com")
			require.NoError(t, f.users.UpdateStatus(ctx, user.ID, status))

			_, err := f.service.Login(ctx, &services.LoginRequest{Email: user.Email, Password: "correct horse"})
			assert.ErrorIs(t, err, domain.ErrForbidden)
		})
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.register(t, "ana@example.com")

	session, err := f.service.Login(ctx, &services.LoginRequest{Email: user.Email, Password: "correct horse"})
	require.NoError(t, err)
	first := session.Tokens.RefreshToken

	rotated, err := f.service.Refresh(ctx, first)
	require.NoError(t, err)
	assert.NotEqual(t, first, rotated.Tokens.RefreshToken)
	assert.Equal(t, 1, f.tokens.active(user.ID))

	// The presented token is single use
	_, err = f.service.Refresh(ctx, first)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.service.Refresh(ctx, rotated.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_SingleUseUnderRace(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.register(t, "ana@example.com")

	session, err := f.service.Login(ctx, &services.LoginRequest{Email: user.Email, Password: "correct horse"})
	require.NoError(t, err)
	token := session.Tokens.RefreshToken

	_, err = f.service.Refresh(ctx, token)
	require.NoError(t, err)

	// The losing caller read the token before it was revoked
	racing := NewService(f.users, staleTokens{f.tokens}, f.manager, passthroughTx{}, discardLogger)
	_, err = racing.Refresh(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 1, f.tokens.active(user.ID))
}

func TestRefresh_Rejects(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.register(t, "ana@example.com")

	session, err := f.service.Login(ctx, &services.LoginRequest{Email: user.Email, Password: "correct horse"})
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, session.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "access tokens cannot refresh")

	_, err = f.service.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Signed but never persisted
	unknown, _, err := f.manager.IssueRefreshToken(user)
	require.NoError(t, err)
	_, err = f.service.Refresh(ctx, unknown)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.users.UpdateStatus(ctx, user.ID, models.StatusBanned))
	_, err = f.service.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.register(t, "ana@example.com")

	session, err := f.service.Login(ctx, &services.LoginRequest{Email: user.Email, Password: "correct horse"})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, session.Tokens.RefreshToken))
	assert.Equal(t, 0, f.tokens.active(user.ID))
	assert.NoError(t, f.service.Logout(ctx, session.Tokens.RefreshToken))

	_, err = f.service.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.NoError(t, f.service.Logout(ctx, "unknown-token"))
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "ana@example.com")

	me, err := f.service.Me(context.Background(), user.Principal())
	require.NoError(t, err)
	assert.Equal(t, user.Email, me.Email)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
