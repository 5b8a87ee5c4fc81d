package account

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BradenHooton/courier/internal/models"
)

// ChangeStatus moves the account to a new status. Setting the current status
// again is a no-op and appends nothing.
func (m *Machine) ChangeStatus(a *models.Account, status models.Status, ip *string, now time.Time) (*models.Account, error) {
	if _, err := models.ParseStatus(string(status)); err != nil {
		return a, err
	}

	next := a.Clone()
	if next.Status == status {
		return next, nil
	}

	details := fmt.Sprintf("%s -> %s", next.Status, status)
	next.Status = status
	appendEntry(next, models.AuditActionStatusChanged, details, ip, now)
	return next, nil
}

// ChangePlan switches the subscription plan and restarts the subscription
// period. The audit kind follows plan rank.
func (m *Machine) ChangePlan(a *models.Account, plan models.Plan, end *time.Time, now time.Time) (*models.Account, error) {
	if _, err := models.ParsePlan(string(plan)); err != nil {
		return a, err
	}

	next := a.Clone()
	if next.Plan == plan {
		return next, nil
	}

	action := models.AuditActionPlanUpgraded
	if plan.Rank() < next.Plan.Rank() {
		action = models.AuditActionPlanDowngraded
	}
	details := fmt.Sprintf("%s -> %s", next.Plan, plan)

	next.Plan = plan
	started := now
	next.SubscriptionStart = &started
	next.SubscriptionEnd = nil
	if end != nil {
		e := *end
		next.SubscriptionEnd = &e
	}
	appendEntry(next, action, details, nil, now)
	return next, nil
}

// AddAdminNote replaces the admin notes
func (m *Machine) AddAdminNote(a *models.Account, note string, now time.Time) (*models.Account, error) {
	if utf8.RuneCountInString(note) > MaxAdminNoteLength {
		return a, &models.ValidationError{
			Errors: []string{fmt.Sprintf("admin notes exceed %d characters", MaxAdminNoteLength)},
		}
	}

	next := a.Clone()
	n := note
	next.AdminNotes = &n
	appendEntry(next, models.AuditActionAdminNoteAdded, "", nil, now)
	return next, nil
}

// RecordActivity counts a domain action (contact added, message sent, ...)
func (m *Machine) RecordActivity(a *models.Account, action models.AuditAction, details string, ip *string, now time.Time) (*models.Account, error) {
	next := a.Clone()

	switch action {
	case models.AuditActionAccountCreated:
		next.Activity.AccountsCreated++
	case models.AuditActionContactAdded:
		next.Activity.ContactsAdded++
	case models.AuditActionMessageSent:
		next.Activity.MessagesSent++
	case models.AuditActionCampaignCreated:
		next.Activity.CampaignsCreated++
	case models.AuditActionTemplateCreated:
		next.Activity.TemplatesCreated++
	default:
		return a, &models.InvalidValueError{Field: "activity", Value: string(action)}
	}

	next.Metrics.LastActivity = advance(next.Metrics.LastActivity, now)
	appendEntry(next, action, details, ip, now)
	return next, nil
}

// UpdateProfile changes the account's display names
func (m *Machine) UpdateProfile(a *models.Account, firstName, lastName string, ip *string, now time.Time) (*models.Account, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return a, &models.ValidationError{Errors: []string{"first and last name are required"}}
	}

	next := a.Clone()
	next.FirstName = firstName
	next.LastName = lastName
	next.Metrics.LastActivity = advance(next.Metrics.LastActivity, now)
	appendEntry(next, models.AuditActionSettingsChanged, "profile updated", ip, now)
	return next, nil
}
