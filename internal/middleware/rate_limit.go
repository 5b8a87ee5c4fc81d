package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/courier/internal/auth"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultAuthRateLimit returns the login limit: 5 requests per minute per IP
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 5,
		Window:   time.Minute,
	}
}

// DefaultAccountRateLimit bounds authenticated writes per account
func DefaultAccountRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 120,
		Window:   time.Minute,
	}
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// It complements the per-account lockout, which cannot see attacks spread
// over many accounts.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitByAccount rate limits authenticated requests by account ID,
// falling back to the client IP when no claims are present
func RateLimitByAccount(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := auth.GetClaimsFromContext(r); claims != nil && claims.AccountID != "" {
				return "account:" + claims.AccountID, nil
			}
			return httprate.KeyByRealIP(r)
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}
