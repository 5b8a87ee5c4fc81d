package models

import "time"

// AuditAction is the closed set of audit entry kinds
type AuditAction string

const (
	AuditActionLogin           AuditAction = "login"
	AuditActionLogout          AuditAction = "logout"
	AuditActionAccountCreated  AuditAction = "account_created"
	AuditActionContactAdded    AuditAction = "contact_added"
	AuditActionMessageSent     AuditAction = "message_sent"
	AuditActionCampaignCreated AuditAction = "campaign_created"
	AuditActionTemplateCreated AuditAction = "template_created"
	AuditActionFeatureEnabled  AuditAction = "feature_enabled"
	AuditActionFeatureDisabled AuditAction = "feature_disabled"
	AuditActionPlanUpgraded    AuditAction = "plan_upgraded"
	AuditActionPlanDowngraded  AuditAction = "plan_downgraded"
	AuditActionSettingsChanged AuditAction = "settings_changed"
	AuditActionPasswordChanged AuditAction = "password_changed"
	AuditActionAdminNoteAdded  AuditAction = "admin_note_added"
	AuditActionStatusChanged   AuditAction = "status_changed"

	// Security transitions recorded by the credential guard and session tracker
	AuditActionLoginFailed    AuditAction = "login_failed"
	AuditActionAccountLocked  AuditAction = "account_locked"
	AuditActionSessionStarted AuditAction = "session_started"
)

var auditActions = []AuditAction{
	AuditActionLogin,
	AuditActionLogout,
	AuditActionAccountCreated,
	AuditActionContactAdded,
	AuditActionMessageSent,
	AuditActionCampaignCreated,
	AuditActionTemplateCreated,
	AuditActionFeatureEnabled,
	AuditActionFeatureDisabled,
	AuditActionPlanUpgraded,
	AuditActionPlanDowngraded,
	AuditActionSettingsChanged,
	AuditActionPasswordChanged,
	AuditActionAdminNoteAdded,
	AuditActionStatusChanged,
	AuditActionLoginFailed,
	AuditActionAccountLocked,
	AuditActionSessionStarted,
}

// AuditActions returns every member of the action set
func AuditActions() []AuditAction {
	out := make([]AuditAction, len(auditActions))
	copy(out, auditActions)
	return out
}

// Valid reports whether the action belongs to the closed set
func (a AuditAction) Valid() bool {
	for _, known := range auditActions {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAuditAction converts a string into an AuditAction
func ParseAuditAction(s string) (AuditAction, error) {
	a := AuditAction(s)
	if !a.Valid() {
		return "", &UnknownAuditActionError{Action: s}
	}
	return a, nil
}

// AuditEntry is one immutable record in an account's audit log
type AuditEntry struct {
	Seq       int64       `json:"seq"`
	Action    AuditAction `json:"action"`
	Details   *string     `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	IPAddress *string     `json:"ip_address,omitempty"`
}

// AuditFilter narrows an audit query. Zero value matches everything.
type AuditFilter struct {
	Actions []AuditAction
	From    *time.Time // inclusive
	To      *time.Time // exclusive
}

// Matches reports whether the entry satisfies the filter
func (f AuditFilter) Matches(e AuditEntry) bool {
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.Timestamp.Before(*f.To) {
		return false
	}
	return true
}
