//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/models"
)

func TestAccountRepository_CreateAndLoad(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repos := InitializeRepositories(testDB.DB)
	now := time.Now().UTC().Truncate(time.Microsecond)

	email, password := TestCredentials("create")
	created, err := SeedAccount(ctx, repos.Accounts, email, password, models.RoleUser, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	loaded, err := repos.Accounts.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, models.StatusActive, loaded.Status)
	assert.Len(t, loaded.Features, len(models.Features()))
	require.Len(t, loaded.AuditLog, 1)
	assert.Equal(t, models.AuditActionAccountCreated, loaded.AuditLog[0].Action)

	_, err = SeedAccount(ctx, repos.Accounts, email, password, models.RoleUser, now)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAccountRepository_StaleVersionIsRejected(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repos := InitializeRepositories(testDB.DB)
	machine := account.NewMachine(account.DefaultPolicy())
	now := time.Now().UTC().Truncate(time.Microsecond)

	email, password := TestCredentials("stale")
	created, err := SeedAccount(ctx, repos.Accounts, email, password, models.RoleUser, now)
	require.NoError(t, err)

	first, err := repos.Accounts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	second, err := repos.Accounts.GetByID(ctx, created.ID)
	require.NoError(t, err)

	next, err := machine.TrackUsage(first, models.FeatureAIChat, 10, now)
	require.NoError(t, err)
	written, err := repos.Accounts.Update(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written.Version)

	other, err := machine.TrackUsage(second, models.FeatureAIChat, 5, now)
	require.NoError(t, err)
	_, err = repos.Accounts.Update(ctx, other)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)

	stored, err := repos.Accounts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Features[models.FeatureAIChat].Total)
	assert.Equal(t, int64(1), stored.Features[models.FeatureAIChat].Count)

	missing := stored.Clone()
	missing.ID = "00000000-0000-0000-0000-000000000000"
	_, err = repos.Accounts.Update(ctx, missing)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuditLogRepository_AppendsOnlyNewEntries(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repos := InitializeRepositories(testDB.DB)
	machine := account.NewMachine(account.DefaultPolicy())
	now := time.Now().UTC().Truncate(time.Microsecond)

	email, password := TestCredentials("audit")
	created, err := SeedAccount(ctx, repos.Accounts, email, password, models.RoleUser, now)
	require.NoError(t, err)

	a := created
	for i := 0; i < 3; i++ {
		a = machine.RecordFailedAttempt(a, nil, now.Add(time.Duration(i)*time.Second))
		a, err = repos.Accounts.Update(ctx, a)
		require.NoError(t, err)
	}

	entries, err := repos.AuditLog.Query(ctx, created.ID, models.AuditFilter{}, 50, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}

	failed, err := repos.AuditLog.Query(ctx, created.ID, models.AuditFilter{
		Actions: []models.AuditAction{models.AuditActionLoginFailed},
	}, 50, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 3)

	counts, err := repos.AuditLog.CountByAction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.AuditActionAccountCreated])
	assert.Equal(t, int64(3), counts[models.AuditActionLoginFailed])
}

func TestLoginAttemptRepository_RecordListAndPurge(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repos := InitializeRepositories(testDB.DB)
	now := time.Now().UTC()

	email, _ := TestCredentials("attempts")
	require.NoError(t, repos.LoginAttempts.RecordAttempt(ctx, &models.LoginAttempt{
		Email:         email,
		AttemptTime:   now.Add(-2 * time.Hour),
		Success:       false,
		FailureReason: strPtr(models.FailureInvalidCredentials),
		ExpiresAt:     now.Add(-time.Hour),
	}))
	require.NoError(t, repos.LoginAttempts.RecordAttempt(ctx, &models.LoginAttempt{
		Email:       email,
		AttemptTime: now,
		Success:     true,
		ExpiresAt:   now.Add(time.Hour),
	}))

	recent, err := repos.LoginAttempts.ListRecent(ctx, email, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].Success)

	deleted, err := repos.LoginAttempts.DeleteExpiredAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	recent, err = repos.LoginAttempts.ListRecent(ctx, email, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func strPtr(s string) *string {
	return &s
}
