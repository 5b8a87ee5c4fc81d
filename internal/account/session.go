package account

import (
	"time"

	"github.com/BradenHooton/courier/internal/models"
)

// HasOpenSession reports whether a session was started and not yet ended
func HasOpenSession(a *models.Account) bool {
	return a.Session.Started != nil && a.Session.Ended == nil
}

// IsOnline reports whether the account holds a live session
func IsOnline(a *models.Account) bool {
	return HasOpenSession(a) && a.Status == models.StatusActive
}

// SessionRevokedToken reports whether a token issued at issuedAt outlived its
// session: the session was ended at or after issue, or a later login replaced
// it. Compared at second precision, as tokens carry seconds.
func SessionRevokedToken(a *models.Account, issuedAt time.Time) bool {
	iat := issuedAt.Unix()
	if a.Session.Ended != nil && iat <= a.Session.Ended.Unix() {
		return true
	}
	return a.Session.Started != nil && iat < a.Session.Started.Unix()
}

// StartSession opens a new session. Starting while another session is open
// fails with ErrSessionAlreadyOpen; callers that want to replace a session end
// it first.
func (m *Machine) StartSession(a *models.Account, device models.DeviceInfo, location models.Location, now time.Time) (*models.Account, error) {
	if HasOpenSession(a) {
		return a, models.ErrSessionAlreadyOpen
	}
	if device.DeviceType == "" {
		device.DeviceType = models.DeviceUnknown
	}

	next := a.Clone()
	started := now
	next.Session = models.Session{Started: &started}
	next.Device = device
	next.Location = location
	next.Metrics.LastActivity = advance(next.Metrics.LastActivity, now)

	details := string(device.DeviceType)
	if device.UserAgent != nil && *device.UserAgent != "" {
		details += " " + *device.UserAgent
	}
	appendEntry(next, models.AuditActionSessionStarted, details, device.IPAddress, now)

	return next, nil
}

// EndSession closes the open session and folds its duration into the
// aggregate session metrics
func (m *Machine) EndSession(a *models.Account, now time.Time) (*models.Account, error) {
	if !HasOpenSession(a) {
		return a, models.ErrNoOpenSession
	}

	next := a.Clone()
	ended := now
	duration := ended.Sub(*next.Session.Started)
	if duration < 0 {
		duration = 0
	}
	next.Session.Ended = &ended
	next.Session.Duration = &duration

	next.Metrics.SessionCount++
	next.Metrics.TotalSessionTime += duration
	next.Metrics.AverageSessionDuration = next.Metrics.TotalSessionTime / time.Duration(next.Metrics.SessionCount)
	next.Metrics.LastActivity = advance(next.Metrics.LastActivity, now)

	appendEntry(next, models.AuditActionLogout, "session ended after "+duration.String(), next.Device.IPAddress, now)

	return next, nil
}
