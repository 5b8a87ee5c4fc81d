package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/courier/internal/services"
)

// DashboardStatsSource tallies the account population for operators
type DashboardStatsSource interface {
	GetDashboardStats(ctx context.Context) (*services.DashboardStatsResponse, error)
}

// AdminHandler serves the operator dashboard. Routes are admin-only.
type AdminHandler struct {
	stats DashboardStatsSource
}

func NewAdminHandler(stats DashboardStatsSource) *AdminHandler {
	return &AdminHandler{stats: stats}
}

// GetDashboardStats handles GET /admin/dashboard/stats
//
// @Summary Account dashboard statistics
// @Produce json
// @Success 200 {object} services.DashboardStatsResponse
// @Router /admin/dashboard/stats [get]
func (h *AdminHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetDashboardStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Counts change with every login
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stats)
}
