package services

import (
	"context"
	"strings"

	"cloudsyncpro/internal/config"
	"cloudsyncpro/internal/domain/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// AuthService handles accounts and token lifecycles
type AuthService interface {
	// Register creates an active account with the user role
	Register(ctx context.Context, req *RegisterRequest) (*models.User, error)

	// Login checks credentials and issues a token pair
	Login(ctx context.Context, req *LoginRequest) (*models.Session, error)

	// Refresh rotates a refresh token: the presented token is revoked and a new pair issued
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)

	// Logout revokes a refresh token
	Logout(ctx context.Context, refreshToken string) error

	// Me returns the principal's account
	Me(ctx context.Context, principal models.Principal) (*models.User, error)
}

// UserAdminService exposes admin-only account management
type UserAdminService interface {
	ListUsers(ctx context.Context, principal models.Principal) ([]models.User, error)
	UpdateStatus(ctx context.Context, principal models.Principal, userID int64, status models.UserStatus) (*models.User, error)
	UpdateRole(ctx context.Context, principal models.Principal, userID int64, role models.Role) (*models.User, error)
}

// ResourceAuthorizer is the access policy evaluator used by services
type ResourceAuthorizer interface {
	// CanModify returns a ForbiddenError unless the principal owns the resource or is an admin
	CanModify(principal models.Principal, ownerID int64, resource string) error
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.By(notBlank),
			validation.By(trimmedLength(1, config.MaxUserNameLength)),
		),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(config.MinPasswordLength, 72)),
	)
}

// Normalize trims the name and lowercases the email
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *RefreshRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

type UpdateStatusRequest struct {
	Status models.UserStatus `json:"status"`
}

func (r *UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required,
			validation.In(models.StatusActive, models.StatusBanned, models.StatusInactive)),
	)
}

type UpdateRoleRequest struct {
	Role models.Role `json:"role"`
}

func (r *UpdateRoleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Role, validation.Required, validation.In(models.RoleUser, models.RoleAdmin)),
	)
}
