package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront-api/internal/domain"
	"storefront-api/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// Authenticator resolves a bearer token into the principal it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

// AuthMiddleware validates bearer tokens and stores the resolved principal in the request context
func AuthMiddleware(authenticator Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), parts[1])
			if err != nil {
				switch {
				case errors.Is(err, service.ErrTokenExpired):
					logger.Debug("Token expired")
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				case errors.Is(err, service.ErrAccountDeactivated):
					logger.Debug("Token issued to an inactive account")
					RespondWithError(w, http.StatusUnauthorized, "account is deactivated")
				case errors.Is(err, domain.ErrUnauthorized):
					logger.Debug("Token validation failed", zap.Error(err))
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				default:
					logger.Error("Failed to authenticate request", zap.Error(err))
					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", principal.UserID.String()),
				zap.String("role", string(principal.Role())),
			)

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal extracts the authenticated principal from request context
func GetPrincipal(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*domain.Principal)
	return p, ok && p != nil
}
