package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloudsyncpro/internal/auth"
	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"
	"cloudsyncpro/internal/domain/services"

	"golang.org/x/crypto/bcrypt"
)

// invalidCredentials is shared by every login failure that could reveal whether an email exists
const invalidCredentials = "invalid email or password"

// Service implements services.AuthService
type Service struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.RefreshTokenRepository
	tokens    auth.TokenIssuer
	txManager repositories.TransactionManager
	logger    *slog.Logger
	now       func() time.Time
	cost      int
}

// NewService creates a new auth service
func NewService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.RefreshTokenRepository,
	tokens auth.TokenIssuer,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		tokens:    tokens,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
		cost:      bcrypt.DefaultCost,
	}
}

var _ services.AuthService = (*Service)(nil)

// Register creates an active account with the user role
func (s *Service) Register(ctx context.Context, req *services.RegisterRequest) (*models.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, services.ToValidationError(err)
	}

	user, err := s.NewUser(req.Name, req.Email, req.Password, models.RoleUser)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// NewUser hashes the password and returns an unsaved active user
func (s *Service) NewUser(name, email, password string, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.StatusActive,
	}, nil
}

// Login checks credentials and issues a token pair
func (s *Service) Login(ctx context.Context, req *services.LoginRequest) (*models.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, services.ToValidationError(err)
	}

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.UnauthorizedError{Message: invalidCredentials}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &domain.UnauthorizedError{Message: invalidCredentials}
	}

	if err := checkActive(user); err != nil {
		return nil, err
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return session, nil
}

// Refresh rotates a refresh token. The presented token is revoked and a new
// pair issued; a revoked, expired or unknown token is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, &domain.UnauthorizedError{Message: "invalid refresh token"}
	}

	var session *models.Session
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		stored, err := s.tokenRepo.GetByHash(txCtx, HashToken(refreshToken))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.UnauthorizedError{Message: "invalid refresh token"}
			}
			return err
		}

		now := s.now()
		if !stored.IsUsable(now) {
			return &domain.UnauthorizedError{Message: "refresh token has been revoked or expired"}
		}

		userID, _ := claims.GetUserID()
		if userID != stored.UserID {
			return &domain.UnauthorizedError{Message: "invalid refresh token"}
		}

		user, err := s.userRepo.GetByID(txCtx, stored.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.UnauthorizedError{Message: "invalid refresh token"}
			}
			return err
		}
		if err := checkActive(user); err != nil {
			return err
		}

		if err := s.tokenRepo.Revoke(txCtx, stored.ID, now); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.UnauthorizedError{Message: "refresh token has been revoked or expired"}
			}
			return err
		}

		session, err = s.issue(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Logout revokes a refresh token. Unknown or already revoked tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.tokenRepo.GetByHash(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.tokenRepo.Revoke(ctx, stored.ID, s.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	s.logger.Info("user logged out", "user_id", stored.UserID)
	return nil
}

// Me returns the principal's account
func (s *Service) Me(ctx context.Context, principal models.Principal) (*models.User, error) {
	return s.userRepo.GetByID(ctx, principal.ID)
}

// issue mints a token pair and persists the refresh token hash
func (s *Service) issue(ctx context.Context, user *models.User) (*models.Session, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refresh, expiresAt, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.tokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken(refresh),
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, err
	}

	return &models.Session{
		User: user,
		Tokens: &models.TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		},
	}, nil
}

// HashToken returns the hex SHA-256 of a token, the only form stored at rest
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func checkActive(user *models.User) error {
	switch user.Status {
	case models.StatusActive:
		return nil
	case models.StatusBanned:
		return &domain.ForbiddenError{Message: "account is banned"}
	default:
		return &domain.ForbiddenError{Message: "account is inactive"}
	}
}
