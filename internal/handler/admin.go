package handler

import (
	"log/slog"
	"net/http"

	"cloudsyncpro/internal/domain/services"
	"cloudsyncpro/internal/httputil"
)

// AdminHandler exposes account management to admins
type AdminHandler struct {
	userService services.UserAdminService
	logger      *slog.Logger
}

func NewAdminHandler(userService services.UserAdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		logger:      logger,
	}
}

// ListUsers GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	users, err := h.userService.ListUsers(r.Context(), principal)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Users retrieved successfully", users)
}

// UpdateStatus PATCH /api/admin/users/{id}/status
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req services.UpdateStatusRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, r, h.logger, services.ToValidationError(err))
		return
	}

	user, err := h.userService.UpdateStatus(r.Context(), principal, id, req.Status)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "User status updated", user)
}

// UpdateRole PATCH /api/admin/users/{id}/role
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req services.UpdateRoleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, r, h.logger, services.ToValidationError(err))
		return
	}

	user, err := h.userService.UpdateRole(r.Context(), principal, id, req.Role)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "User role updated", user)
}
