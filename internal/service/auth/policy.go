package auth

import (
	"fmt"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/services"
)

// IsOwnerOrAdmin reports whether principal may act on a resource owned by ownerID
func IsOwnerOrAdmin(principal models.Principal, ownerID int64) bool {
	return principal.IsAdmin() || principal.ID == ownerID
}

// OwnerOrAdminAuthorizer implements ResourceAuthorizer with the owner-or-admin rule.
// It holds no state; every decision depends only on its arguments.
type OwnerOrAdminAuthorizer struct{}

// NewOwnerOrAdminAuthorizer creates the default resource authorizer
func NewOwnerOrAdminAuthorizer() services.ResourceAuthorizer {
	return OwnerOrAdminAuthorizer{}
}

// CanModify returns a ForbiddenError unless the principal owns the resource or is an admin
func (OwnerOrAdminAuthorizer) CanModify(principal models.Principal, ownerID int64, resource string) error {
	if IsOwnerOrAdmin(principal, ownerID) {
		return nil
	}
	return &domain.ForbiddenError{
		Message: fmt.Sprintf("you do not have permission to access this %s", resource),
	}
}

// RequireAdmin returns a ForbiddenError for non-admin principals
func RequireAdmin(principal models.Principal) error {
	if principal.IsAdmin() {
		return nil
	}
	return &domain.ForbiddenError{Message: "admin access required"}
}
