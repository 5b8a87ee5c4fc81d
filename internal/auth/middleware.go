package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/models"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// AccountContextKey is the key for storing token claims in context
	AccountContextKey contextKey = "account"
)

// AccountFetcher loads the current account state for a token
type AccountFetcher interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// AuthMiddleware validates the bearer token and rejects tokens of accounts
// that are no longer active, that changed their password after issue, or
// whose session was logged out or replaced since issue
func AuthMiddleware(tm *TokenManager, accounts AccountFetcher, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			a, err := accounts.GetByID(r.Context(), claims.AccountID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "account not found")
					return
				}
				logger.Error("failed to load account for token",
					slog.String("account_id", claims.AccountID),
					slog.Any("error", err),
				)
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if a.Status != models.StatusActive {
				pkghttp.WriteUnauthorized(w, "account is not active")
				return
			}
			if claims.IssuedAt != nil && account.ChangedPasswordAfter(a, claims.IssuedAt.Time) {
				pkghttp.WriteUnauthorized(w, "token issued before password change")
				return
			}
			if claims.IssuedAt != nil && account.SessionRevokedToken(a, claims.IssuedAt.Time) {
				pkghttp.WriteUnauthorized(w, "session has ended")
				return
			}

			// Role comes from the stored account, not the token
			claims.Role = a.Role

			ctx := context.WithValue(r.Context(), AccountContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates a middleware that enforces role-based access control.
// Must be used after AuthMiddleware.
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			pkghttp.WriteForbidden(w, "insufficient permissions")
		})
	}
}

// GetClaimsFromContext extracts token claims from request context
func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(AccountContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithClaims returns a context carrying claims; used by tests and internal
// callers that bypass the middleware
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, AccountContextKey, claims)
}
