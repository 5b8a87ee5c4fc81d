package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a HealthHandler over the named dependencies.
// Nil checkers are skipped.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	filtered := make(map[string]HealthChecker, len(checks))
	for name, c := range checks {
		if c != nil {
			filtered[name] = c
		}
	}
	return &HealthHandler{checks: filtered}
}

// HealthResponse reports the overall and per-dependency status
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Dependencies = make(map[string]string, len(h.checks))
	}
	for name, c := range h.checks {
		if err := c.HealthCheck(ctx); err != nil {
			resp.Dependencies[name] = "down"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "up"
	}

	writeJSON(w, status, resp)
}
