package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/models"
)

const statsPageSize = 200

// AccountLister pages through every account
type AccountLister interface {
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
}

// DashboardStatsResponse contains aggregate admin metrics
type DashboardStatsResponse struct {
	TotalAccounts  int64            `json:"total_accounts"`
	OnlineAccounts int64            `json:"online_accounts"`
	LockedAccounts int64            `json:"locked_accounts"`
	NewToday       int64            `json:"new_today"`
	StatusCounts   map[string]int64 `json:"status_counts"`
	PlanCounts     map[string]int64 `json:"plan_counts"`
	RoleCounts     map[string]int64 `json:"role_counts"`
	FeatureUsers   map[string]int64 `json:"feature_users"`
}

// AdminService aggregates data for admin dashboard endpoints
type AdminService struct {
	accounts AccountLister
	clock    account.Clock
	logger   *slog.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(accounts AccountLister, clock account.Clock, logger *slog.Logger) *AdminService {
	return &AdminService{
		accounts: accounts,
		clock:    clock,
		logger:   logger,
	}
}

// GetDashboardStats walks every account once and tallies status, plan, role,
// lock and session state as of a single instant
func (s *AdminService) GetDashboardStats(ctx context.Context) (*DashboardStatsResponse, error) {
	now := s.clock.Now()
	today := now.UTC().Truncate(24 * time.Hour)

	stats := &DashboardStatsResponse{
		StatusCounts: make(map[string]int64),
		PlanCounts:   make(map[string]int64),
		RoleCounts:   make(map[string]int64),
		FeatureUsers: make(map[string]int64),
	}

	for offset := 0; ; offset += statsPageSize {
		page, err := s.accounts.List(ctx, statsPageSize, offset)
		if err != nil {
			s.logger.ErrorContext(ctx, "dashboard: failed to list accounts",
				slog.Int("offset", offset), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		for _, a := range page {
			stats.TotalAccounts++
			stats.StatusCounts[string(a.Status)]++
			stats.PlanCounts[string(a.Plan)]++
			stats.RoleCounts[a.Role]++
			if account.IsOnline(a) {
				stats.OnlineAccounts++
			}
			if account.IsAccountLocked(a, now) {
				stats.LockedAccounts++
			}
			if !a.CreatedAt.Before(today) {
				stats.NewToday++
			}
			for f, stat := range a.Features {
				if stat.Used {
					stats.FeatureUsers[string(f)]++
				}
			}
		}

		if len(page) < statsPageSize {
			return stats, nil
		}
	}
}
