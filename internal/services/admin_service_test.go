package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_GetDashboardStats(t *testing.T) {
	now := t0.Add(12 * time.Hour)
	lockUntil := now.Add(time.Hour)
	started := now.Add(-time.Minute)

	online := NewTestAccount("a1", "a1@example.com", "x", t0)
	online.Session.Started = &started
	online.Features[models.FeatureAIChat] = models.FeatureStat{Used: true, Count: 3}

	locked := NewTestAccount("a2", "a2@example.com", "x", t0.Add(-48*time.Hour))
	locked.Lock = models.LockState{LoginAttempts: 5, LockUntil: &lockUntil}
	locked.Plan = models.PlanEnterprise

	suspended := NewTestAccount("a3", "a3@example.com", "x", t0.Add(-48*time.Hour))
	suspended.Status = models.StatusSuspended
	suspended.Role = models.RoleAdmin
	suspended.Session.Started = &started

	repo := &MockAccountRepository{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.Account, error) {
			if offset > 0 {
				return nil, nil
			}
			return []*models.Account{online, locked, suspended}, nil
		},
	}
	svc := NewAdminService(repo, account.NewManualClock(now), discardLogger())

	stats, err := svc.GetDashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalAccounts)
	assert.Equal(t, int64(1), stats.OnlineAccounts)
	assert.Equal(t, int64(1), stats.LockedAccounts)
	assert.Equal(t, int64(1), stats.NewToday)
	assert.Equal(t, int64(2), stats.StatusCounts["active"])
	assert.Equal(t, int64(1), stats.StatusCounts["suspended"])
	assert.Equal(t, int64(1), stats.PlanCounts["enterprise"])
	assert.Equal(t, int64(1), stats.RoleCounts["admin"])
	assert.Equal(t, int64(1), stats.FeatureUsers["aiChat"])
}

func TestAdminService_GetDashboardStats_Pages(t *testing.T) {
	calls := 0
	repo := &MockAccountRepository{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.Account, error) {
			calls++
			if offset >= 2*limit {
				return []*models.Account{}, nil
			}
			page := make([]*models.Account, limit)
			for i := range page {
				page[i] = NewTestAccount("id", "x@example.com", "x", t0)
			}
			return page, nil
		},
	}
	svc := NewAdminService(repo, account.NewManualClock(t0), discardLogger())

	stats, err := svc.GetDashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(2*statsPageSize), stats.TotalAccounts)
}

func TestAdminService_GetDashboardStats_Error(t *testing.T) {
	repo := &MockAccountRepository{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.Account, error) {
			return nil, errors.New("timeout")
		},
	}
	svc := NewAdminService(repo, account.NewManualClock(t0), discardLogger())

	_, err := svc.GetDashboardStats(context.Background())
	assert.ErrorIs(t, err, models.ErrInternalServer)
}
