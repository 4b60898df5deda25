package middleware

import (
	"net/http"

	"storefront-api/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the principal holds the admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(domain.RoleAdmin, logger)
}

// RequireRole middleware ensures the principal is authorized for the given role
func RequireRole(required domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				logger.Warn("Principal not found in context")
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if !principal.Authorize(required) {
				logger.Warn("User role not authorized",
					zap.String("user_id", principal.UserID.String()),
					zap.String("role", string(principal.Role())),
					zap.String("required_role", string(required)),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
