package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/courier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

func TestMemoryAccountRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()

	created, err := repo.Create(ctx, models.NewAccount("ops@example.com", "Op", "Erator", "hash", testNow))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	byEmail, err := repo.GetByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.Create(ctx, models.NewAccount("ops@example.com", "Op", "Two", "hash", testNow))
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryAccountRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	created, err := repo.Create(ctx, models.NewAccount("ops@example.com", "Op", "Erator", "hash", testNow))
	require.NoError(t, err)

	created.FirstName = "Changed"
	created.Features[models.FeatureAIChat] = models.FeatureStat{Count: 99}

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Op", stored.FirstName)
	assert.Equal(t, int64(0), stored.Features[models.FeatureAIChat].Count)
}

func TestMemoryAccountRepository_VersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	created, err := repo.Create(ctx, models.NewAccount("ops@example.com", "Op", "Erator", "hash", testNow))
	require.NoError(t, err)

	first, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	first.Metrics.LoginCount = 1
	saved, err := repo.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	second.Metrics.LoginCount = 7
	_, err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Metrics.LoginCount)
}

func TestMemoryAccountRepository_RejectsTruncatedAuditLog(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	created, err := repo.Create(ctx, models.NewAccount("ops@example.com", "Op", "Erator", "hash", testNow))
	require.NoError(t, err)

	created.AuditLog = nil
	_, err = repo.Update(ctx, created)

	assert.ErrorIs(t, err, models.ErrConcurrentModification)
}

func TestMemoryContactRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContactRepository()
	name := "Grace"

	contacts := []*models.Contact{
		{PhoneNumber: "+15550001", FirstName: &name, Tags: []string{"vip"}, Status: models.ContactActive, CreatedBy: "owner", CreatedAt: testNow},
		{PhoneNumber: "+15550002", Status: models.ContactBlocked, CreatedBy: "owner", CreatedAt: testNow.Add(time.Minute)},
		{PhoneNumber: "+15550003", Status: models.ContactActive, CreatedBy: "other", CreatedAt: testNow},
	}
	for _, c := range contacts {
		_, err := repo.Create(ctx, c)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, "owner", models.ContactFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "+15550002", all[0].PhoneNumber)

	vip, err := repo.List(ctx, "owner", models.ContactFilter{Tag: "vip"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, vip, 1)

	search, err := repo.List(ctx, "owner", models.ContactFilter{Search: "grace"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "+15550001", search[0].PhoneNumber)

	_, err = repo.Create(ctx, &models.Contact{PhoneNumber: "+15550001", CreatedBy: "owner"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestMemoryContactRepository_HidesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContactRepository()

	c, err := repo.Create(ctx, &models.Contact{PhoneNumber: "+15550001", Status: models.ContactActive, CreatedBy: "owner"})
	require.NoError(t, err)

	c.SoftDelete(testNow)
	_, err = repo.Update(ctx, c)
	require.NoError(t, err)

	visible, err := repo.List(ctx, "owner", models.ContactFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, visible)

	withDeleted, err := repo.List(ctx, "owner", models.ContactFilter{IncludeDeleted: true}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, withDeleted, 1)
}

func TestMemoryLoginAttemptRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLoginAttemptRepository(func() time.Time { return testNow })

	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@example.com", ExpiresAt: testNow.Add(-time.Hour)}))
	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@example.com", ExpiresAt: testNow.Add(time.Hour)}))

	deleted, err := repo.DeleteExpiredAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	recent, err := repo.ListRecent(ctx, "a@example.com", 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{3, 4}, paginate(items, 2, 2))
	assert.Equal(t, []int{5}, paginate(items, 10, 4))
	assert.Empty(t, paginate(items, 2, 9))
	assert.Equal(t, items, paginate(items, 0, 0))
}
