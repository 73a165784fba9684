package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"
	"cloudsyncpro/internal/domain/services"
)

// UserAdminService implements services.UserAdminService
type UserAdminService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.RefreshTokenRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewUserAdminService creates the admin account manager
func NewUserAdminService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.RefreshTokenRepository,
	logger *slog.Logger,
) *UserAdminService {
	return &UserAdminService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		logger:    logger,
		now:       time.Now,
	}
}

var _ services.UserAdminService = (*UserAdminService)(nil)

func (s *UserAdminService) ListUsers(ctx context.Context, principal models.Principal) ([]models.User, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}

// UpdateStatus changes an account's status. Leaving the active state revokes
// every refresh token; the revocation is applied after the status update and
// is not atomic with it.
func (s *UserAdminService) UpdateStatus(ctx context.Context, principal models.Principal, userID int64, status models.UserStatus) (*models.User, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", "must be one of active, banned, inactive")
	}
	if userID == principal.ID && status != models.StatusActive {
		return nil, &domain.InvalidOperationError{Message: "admins cannot deactivate their own account"}
	}

	if err := s.userRepo.UpdateStatus(ctx, userID, status); err != nil {
		return nil, err
	}

	if status != models.StatusActive {
		if err := s.tokenRepo.RevokeAllForUser(ctx, userID, s.now()); err != nil {
			s.logger.Warn("failed to revoke refresh tokens", "user_id", userID, "error", err)
		}
	}

	s.logger.Info("user status updated", "user_id", userID, "status", status, "by", principal.ID)
	return s.userRepo.GetByID(ctx, userID)
}

func (s *UserAdminService) UpdateRole(ctx context.Context, principal models.Principal, userID int64, role models.Role) (*models.User, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, domain.NewValidationError("role", "must be one of user, admin")
	}
	if userID == principal.ID && role != models.RoleAdmin {
		return nil, &domain.InvalidOperationError{Message: "admins cannot remove their own admin role"}
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}

	s.logger.Info("user role updated", "user_id", userID, "role", role, "by", principal.ID)
	return s.userRepo.GetByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
