package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"cloudsyncpro/internal/auth"
	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/httputil"
)

// publicPaths are served without a bearer token
var publicPaths = map[string]bool{
	"/health":            true,
	"/metrics":           true,
	"/api/auth/register": true,
	"/api/auth/login":    true,
	"/api/auth/refresh":  true,
	"/api/auth/logout":   true,
}

// AuthMiddleware verifies the bearer token and stores the principal in the
// request context. CORS pre-flight requests and public paths pass through.
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || publicPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/uploads/") {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid or expired token")
				return
			}

			userID, _ := claims.GetUserID()
			r = httputil.WithPrincipal(r, models.Principal{ID: userID, Role: claims.Role})
			next.ServeHTTP(w, r)
		})
	}
}
