package account

import (
	"time"

	"github.com/BradenHooton/courier/internal/models"
)

// TrackUsage records one use of a feature. increment adds to the feature's
// running total (bytes for mediaUpload, tokens for aiChat) and must be zero
// for features without one.
func (m *Machine) TrackUsage(a *models.Account, feature models.Feature, increment int64, now time.Time) (*models.Account, error) {
	if !feature.Valid() {
		return a, &models.UnknownFeatureError{Name: string(feature)}
	}
	if increment < 0 || (increment != 0 && feature.TotalUnit() == "") {
		return a, models.ErrInvalidIncrement
	}

	next := a.Clone()
	if next.Features == nil {
		next.Features = models.NewFeatureUsage()
	}

	stat := next.Features[feature]
	stat.Used = true
	stat.Count++
	used := now
	stat.LastUsed = &used
	stat.Total += increment
	next.Features[feature] = stat

	next.Metrics.LastActivity = advance(next.Metrics.LastActivity, now)

	return next, nil
}

// SetFeatureEnabled toggles a feature without touching its usage history
func (m *Machine) SetFeatureEnabled(a *models.Account, feature models.Feature, enabled bool, ip *string, now time.Time) (*models.Account, error) {
	if !feature.Valid() {
		return a, &models.UnknownFeatureError{Name: string(feature)}
	}

	next := a.Clone()
	if next.Features == nil {
		next.Features = models.NewFeatureUsage()
	}

	stat := next.Features[feature]
	stat.Enabled = enabled
	next.Features[feature] = stat

	action := models.AuditActionFeatureDisabled
	if enabled {
		action = models.AuditActionFeatureEnabled
	}
	appendEntry(next, action, string(feature), ip, now)

	return next, nil
}
