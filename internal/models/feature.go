package models

import "time"

// Feature is the closed set of optional capabilities tracked per account
type Feature string

const (
	FeatureBulkMessaging      Feature = "bulkMessaging"
	FeatureScheduling         Feature = "scheduling"
	FeatureTemplates          Feature = "templates"
	FeatureInteractiveButtons Feature = "interactiveButtons"
	FeatureMediaUpload        Feature = "mediaUpload"
	FeatureAIChat             Feature = "aiChat"
)

var features = []Feature{
	FeatureBulkMessaging,
	FeatureScheduling,
	FeatureTemplates,
	FeatureInteractiveButtons,
	FeatureMediaUpload,
	FeatureAIChat,
}

// Features returns every member of the feature set
func Features() []Feature {
	out := make([]Feature, len(features))
	copy(out, features)
	return out
}

// Valid reports whether the feature belongs to the closed set
func (f Feature) Valid() bool {
	for _, known := range features {
		if f == known {
			return true
		}
	}
	return false
}

// TotalUnit names the feature-specific running total, or "" when the feature
// has none. mediaUpload sums bytes, aiChat sums tokens.
func (f Feature) TotalUnit() string {
	switch f {
	case FeatureMediaUpload:
		return "bytes"
	case FeatureAIChat:
		return "tokens"
	default:
		return ""
	}
}

// ParseFeature converts a string into a Feature
func ParseFeature(s string) (Feature, error) {
	f := Feature(s)
	if !f.Valid() {
		return "", &UnknownFeatureError{Name: s}
	}
	return f, nil
}

// FeatureStat is the usage ledger entry for a single feature.
// Used implies Count >= 1.
type FeatureStat struct {
	Enabled  bool       `json:"enabled"`
	Used     bool       `json:"used"`
	Count    int64      `json:"count"`
	LastUsed *time.Time `json:"last_used,omitempty"`
	Total    int64      `json:"total"`
}

// FeatureUsage maps every feature to its ledger entry
type FeatureUsage map[Feature]FeatureStat

// NewFeatureUsage returns a ledger with every feature present and zeroed
func NewFeatureUsage() FeatureUsage {
	usage := make(FeatureUsage, len(features))
	for _, f := range features {
		usage[f] = FeatureStat{}
	}
	return usage
}
