package account_test

import (
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/courier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackUsage_CountsEachUse(t *testing.T) {
	m := newTestMachine()
	a := newTestAccount()
	second := t0.Add(time.Minute)

	a, err := m.TrackUsage(a, models.FeatureScheduling, 0, t0)
	require.NoError(t, err)
	a, err = m.TrackUsage(a, models.FeatureScheduling, 0, second)
	require.NoError(t, err)

	stat := a.Features[models.FeatureScheduling]
	assert.True(t, stat.Used)
	assert.Equal(t, int64(2), stat.Count)
	require.NotNil(t, stat.LastUsed)
	assert.Equal(t, second, *stat.LastUsed)
	assert.Equal(t, second, *a.Metrics.LastActivity)

	// other features untouched, no audit entry
	assert.Equal(t, models.FeatureStat{}, a.Features[models.FeatureTemplates])
	assert.Len(t, a.AuditLog, 1)
}

func TestTrackUsage_RunningTotals(t *testing.T) {
	m := newTestMachine()
	a := newTestAccount()

	a, err := m.TrackUsage(a, models.FeatureMediaUpload, 2048, t0)
	require.NoError(t, err)
	a, err = m.TrackUsage(a, models.FeatureMediaUpload, 1024, t0)
	require.NoError(t, err)
	a, err = m.TrackUsage(a, models.FeatureAIChat, 300, t0)
	require.NoError(t, err)

	assert.Equal(t, int64(3072), a.Features[models.FeatureMediaUpload].Total)
	assert.Equal(t, int64(2), a.Features[models.FeatureMediaUpload].Count)
	assert.Equal(t, int64(300), a.Features[models.FeatureAIChat].Total)
}

func TestTrackUsage_Rejections(t *testing.T) {
	m := newTestMachine()
	a := newTestAccount()

	tests := []struct {
		name      string
		feature   models.Feature
		increment int64
		check     func(t *testing.T, err error)
	}{
		{
			name:    "unknown feature",
			feature: models.Feature("teleport"),
			check: func(t *testing.T, err error) {
				var unknown *models.UnknownFeatureError
				require.True(t, errors.As(err, &unknown))
				assert.Equal(t, "teleport", unknown.Name)
			},
		},
		{
			name:      "negative increment",
			feature:   models.FeatureMediaUpload,
			increment: -1,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, models.ErrInvalidIncrement)
			},
		},
		{
			name:      "increment on feature without a total",
			feature:   models.FeatureBulkMessaging,
			increment: 10,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, models.ErrInvalidIncrement)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := m.TrackUsage(a, tt.feature, tt.increment, t0)
			require.Error(t, err)
			tt.check(t, err)
			assert.Same(t, a, next)
		})
	}
}

func TestSetFeatureEnabled_KeepsUsage(t *testing.T) {
	m := newTestMachine()
	a, err := m.TrackUsage(newTestAccount(), models.FeatureTemplates, 0, t0)
	require.NoError(t, err)

	a, err = m.SetFeatureEnabled(a, models.FeatureTemplates, true, strPtr("10.1.1.1"), t0)
	require.NoError(t, err)
	assert.True(t, a.Features[models.FeatureTemplates].Enabled)
	assert.Equal(t, int64(1), a.Features[models.FeatureTemplates].Count)

	a, err = m.SetFeatureEnabled(a, models.FeatureTemplates, false, nil, t0)
	require.NoError(t, err)
	assert.False(t, a.Features[models.FeatureTemplates].Enabled)
	assert.True(t, a.Features[models.FeatureTemplates].Used)

	assert.Equal(t, []models.AuditAction{
		models.AuditActionAccountCreated,
		models.AuditActionFeatureEnabled,
		models.AuditActionFeatureDisabled,
	}, actionsOf(a))
	assert.Equal(t, "templates", *a.AuditLog[1].Details)
}

func TestSetFeatureEnabled_UnknownFeature(t *testing.T) {
	m := newTestMachine()
	a := newTestAccount()

	_, err := m.SetFeatureEnabled(a, models.Feature("nope"), true, nil, t0)

	var unknown *models.UnknownFeatureError
	assert.ErrorAs(t, err, &unknown)
}
