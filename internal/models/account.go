package models

import (
	"strings"
	"time"
)

// Status governs whether an account may hold a live session
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// ParseStatus converts a string into a Status
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusInactive, StatusSuspended, StatusDeleted:
		return st, nil
	}
	return "", &InvalidValueError{Field: "status", Value: s}
}

// Plan is the subscription tier of an account
type Plan string

const (
	PlanFree         Plan = "free"
	PlanBasic        Plan = "basic"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
	PlanCustom       Plan = "custom"
)

var planRank = map[Plan]int{
	PlanFree:         0,
	PlanBasic:        1,
	PlanProfessional: 2,
	PlanEnterprise:   3,
	PlanCustom:       4,
}

// ParsePlan converts a string into a Plan
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := planRank[p]; !ok {
		return "", &InvalidValueError{Field: "plan", Value: s}
	}
	return p, nil
}

// Rank orders plans from free (0) to custom (4)
func (p Plan) Rank() int {
	return planRank[p]
}

// Role values
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// DeviceType classifies the client that opened a session
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceUnknown DeviceType = "unknown"
)

// ParseDeviceType converts a string into a DeviceType; empty maps to unknown
func ParseDeviceType(s string) (DeviceType, error) {
	switch dt := DeviceType(strings.ToLower(s)); dt {
	case "":
		return DeviceUnknown, nil
	case DeviceDesktop, DeviceMobile, DeviceTablet, DeviceUnknown:
		return dt, nil
	}
	return "", &InvalidValueError{Field: "device type", Value: s}
}

// NameVersion is a software name and version pair (browser, OS)
type NameVersion struct {
	Name    *string `json:"name,omitempty"`
	Version *string `json:"version,omitempty"`
}

// DeviceInfo describes the client of the current session
type DeviceInfo struct {
	UserAgent  *string     `json:"user_agent,omitempty"`
	IPAddress  *string     `json:"ip_address,omitempty"`
	Browser    NameVersion `json:"browser"`
	OS         NameVersion `json:"os"`
	DeviceType DeviceType  `json:"device_type"`
}

// Coordinates is a latitude/longitude pair
type Coordinates struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Location is the approximate origin of the current session
type Location struct {
	Country     *string     `json:"country,omitempty"`
	City        *string     `json:"city,omitempty"`
	State       *string     `json:"state,omitempty"`
	Timezone    *string     `json:"timezone,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// LockState is the credential guard's failure counter and lock window.
// LockUntil is only set once LoginAttempts reached the threshold.
type LockState struct {
	LoginAttempts int        `json:"login_attempts"`
	LockUntil     *time.Time `json:"lock_until,omitempty"`
}

// Session is the current (or most recent) usage session.
// Duration is nil unless both Started and Ended are set.
type Session struct {
	Started  *time.Time     `json:"started,omitempty"`
	Ended    *time.Time     `json:"ended,omitempty"`
	Duration *time.Duration `json:"duration,omitempty"`
}

// Metrics are aggregate counters. Counters never decrease; LastLogin and
// LastActivity only move forward.
type Metrics struct {
	LoginCount             int64         `json:"login_count"`
	LastLogin              *time.Time    `json:"last_login,omitempty"`
	LastActivity           *time.Time    `json:"last_activity,omitempty"`
	SessionCount           int64         `json:"session_count"`
	AverageSessionDuration time.Duration `json:"average_session_duration"`
	TotalSessionTime       time.Duration `json:"total_session_time"`
	FailedLoginAttempts    int64         `json:"failed_login_attempts"`
	PasswordChanges        int64         `json:"password_changes"`
	LastPasswordChange     *time.Time    `json:"last_password_change,omitempty"`
}

// Activity counts domain actions performed by the account
type Activity struct {
	AccountsCreated  int64 `json:"accounts_created"`
	ContactsAdded    int64 `json:"contacts_added"`
	MessagesSent     int64 `json:"messages_sent"`
	CampaignsCreated int64 `json:"campaigns_created"`
	TemplatesCreated int64 `json:"templates_created"`
}

// Account is the aggregate for one authenticated principal. All security and
// activity state lives here and is written as one unit guarded by Version.
type Account struct {
	ID                string
	Email             string
	FirstName         string
	LastName          string
	Role              string
	PasswordHash      string
	PasswordChangedAt *time.Time
	IsVerified        bool
	IsSuperAdmin      bool
	Status            Status

	Plan              Plan
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time

	Lock     LockState
	Session  Session
	Device   DeviceInfo
	Location Location
	Metrics  Metrics
	Activity Activity
	Features FeatureUsage
	AuditLog []AuditEntry

	AdminNotes *string

	// Version is the optimistic concurrency token; bumped on every write
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Clone returns a deep copy of the account
func (a *Account) Clone() *Account {
	c := *a
	c.PasswordChangedAt = cloneTime(a.PasswordChangedAt)
	c.SubscriptionStart = cloneTime(a.SubscriptionStart)
	c.SubscriptionEnd = cloneTime(a.SubscriptionEnd)
	c.Lock.LockUntil = cloneTime(a.Lock.LockUntil)
	c.Session.Started = cloneTime(a.Session.Started)
	c.Session.Ended = cloneTime(a.Session.Ended)
	if a.Session.Duration != nil {
		d := *a.Session.Duration
		c.Session.Duration = &d
	}
	c.Device = cloneDevice(a.Device)
	c.Location = cloneLocation(a.Location)
	c.Metrics.LastLogin = cloneTime(a.Metrics.LastLogin)
	c.Metrics.LastActivity = cloneTime(a.Metrics.LastActivity)
	c.Metrics.LastPasswordChange = cloneTime(a.Metrics.LastPasswordChange)
	c.AdminNotes = cloneString(a.AdminNotes)

	if a.Features != nil {
		c.Features = make(FeatureUsage, len(a.Features))
		for f, stat := range a.Features {
			stat.LastUsed = cloneTime(stat.LastUsed)
			c.Features[f] = stat
		}
	}

	// Entries are immutable once appended, so sharing pointer fields is safe;
	// the slice header itself must not alias the original.
	if a.AuditLog != nil {
		c.AuditLog = make([]AuditEntry, len(a.AuditLog), len(a.AuditLog)+4)
		copy(c.AuditLog, a.AuditLog)
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneDevice(d DeviceInfo) DeviceInfo {
	return DeviceInfo{
		UserAgent:  cloneString(d.UserAgent),
		IPAddress:  cloneString(d.IPAddress),
		Browser:    NameVersion{Name: cloneString(d.Browser.Name), Version: cloneString(d.Browser.Version)},
		OS:         NameVersion{Name: cloneString(d.OS.Name), Version: cloneString(d.OS.Version)},
		DeviceType: d.DeviceType,
	}
}

func cloneLocation(l Location) Location {
	return Location{
		Country:  cloneString(l.Country),
		City:     cloneString(l.City),
		State:    cloneString(l.State),
		Timezone: cloneString(l.Timezone),
		Coordinates: Coordinates{
			Latitude:  cloneFloat(l.Coordinates.Latitude),
			Longitude: cloneFloat(l.Coordinates.Longitude),
		},
	}
}

// NewAccount provisions a fresh account: active, free plan, zero counters,
// every feature present, and a single account_created audit entry.
func NewAccount(email, firstName, lastName, passwordHash string, now time.Time) *Account {
	created := now
	return &Account{
		Email:             strings.ToLower(strings.TrimSpace(email)),
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Role:              RoleUser,
		PasswordHash:      passwordHash,
		PasswordChangedAt: &created,
		Status:            StatusActive,
		Plan:              PlanFree,
		Device:            DeviceInfo{DeviceType: DeviceUnknown},
		Features:          NewFeatureUsage(),
		AuditLog: []AuditEntry{{
			Seq:       1,
			Action:    AuditActionAccountCreated,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
