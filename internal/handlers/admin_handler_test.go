package handlers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/courier/internal/handlers"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/services"
	"github.com/stretchr/testify/assert"
)

type statsFunc func(ctx context.Context) (*services.DashboardStatsResponse, error)

func (f statsFunc) GetDashboardStats(ctx context.Context) (*services.DashboardStatsResponse, error) {
	return f(ctx)
}

func serveStats(f statsFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handlers.NewAdminHandler(f).GetDashboardStats(w, httptest.NewRequest("GET", "/admin/dashboard/stats", nil))
	return w
}

func TestAdminHandler_GetDashboardStats(t *testing.T) {
	w := serveStats(func(ctx context.Context) (*services.DashboardStatsResponse, error) {
		return &services.DashboardStatsResponse{
			TotalAccounts:  100,
			OnlineAccounts: 12,
			LockedAccounts: 2,
			NewToday:       7,
			StatusCounts:   map[string]int64{"active": 95, "suspended": 5},
			PlanCounts:     map[string]int64{"free": 80, "enterprise": 20},
			RoleCounts:     map[string]int64{"admin": 3, "user": 97},
			FeatureUsers:   map[string]int64{"aiChat": 40},
		}, nil
	})

	var resp services.DashboardStatsResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, int64(100), resp.TotalAccounts)
	assert.Equal(t, int64(12), resp.OnlineAccounts)
	assert.Equal(t, int64(2), resp.LockedAccounts)
	assert.Equal(t, int64(5), resp.StatusCounts["suspended"])
	assert.Equal(t, int64(40), resp.FeatureUsers["aiChat"])
}

func TestAdminHandler_GetDashboardStats_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"store failure", errors.New("database connection lost"), 500, "internal_error"},
		{"forbidden", models.ErrForbidden, 403, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveStats(func(ctx context.Context) (*services.DashboardStatsResponse, error) {
				return nil, tt.err
			})
			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}
