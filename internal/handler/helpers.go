package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/httputil"
)

// handleError converts domain errors to HTTP responses. Anything that is not
// a domain error is logged and answered with a generic 500.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validationErr *domain.ValidationError
	var notEmptyErr *domain.NotEmptyError
	var httpErr domain.HTTPError

	switch {
	case errors.As(err, &validationErr):
		httputil.RespondErrorWithExtras(w, validationErr.StatusCode(), validationErr.Code(), validationErr.Message,
			map[string]interface{}{"errors": validationErr.Fields})
	case errors.As(err, &notEmptyErr):
		httputil.RespondErrorWithExtras(w, notEmptyErr.StatusCode(), notEmptyErr.Code(), notEmptyErr.Message,
			map[string]interface{}{"subfolders": notEmptyErr.Subfolders, "files": notEmptyErr.Files})
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Code(), httpErr.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
	default:
		logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httputil.GetRequestID(r),
		)
		httputil.RespondError(w, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
	}
}

// requirePrincipal returns the authenticated principal or answers 401
func requirePrincipal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	principal, ok := httputil.GetPrincipal(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "authentication required")
	}
	return principal, ok
}
