package models

import (
	"regexp"
	"strings"
	"time"
)

// ContactStatus values
type ContactStatus string

const (
	ContactActive   ContactStatus = "active"
	ContactInactive ContactStatus = "inactive"
	ContactBlocked  ContactStatus = "blocked"
	ContactArchived ContactStatus = "archived"
)

var (
	e164Pattern         = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	contactEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Contact is a messaging contact owned by the account that created it
type Contact struct {
	ID             string
	PhoneNumber    string
	FirstName      *string
	LastName       *string
	DisplayName    *string
	Email          *string
	ProfilePicture *string
	Status         ContactStatus
	IsWhatsAppUser bool
	LastSeen       *time.Time
	IsFavorite     bool
	Tags           []string
	Notes          string
	CustomFields   map[string]string
	CreatedBy      string
	UpdatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// Normalize trims inputs, lowercases the email and fills DisplayName
func (c *Contact) Normalize() {
	c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
	c.FirstName = trimmed(c.FirstName)
	c.LastName = trimmed(c.LastName)
	c.DisplayName = trimmed(c.DisplayName)
	if c.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*c.Email))
		c.Email = &e
		if e == "" {
			c.Email = nil
		}
	}
	for i, t := range c.Tags {
		c.Tags[i] = strings.TrimSpace(t)
	}
	if c.Status == "" {
		c.Status = ContactActive
	}
	if c.DisplayName == nil || *c.DisplayName == "" {
		name := c.FullName()
		c.DisplayName = &name
	}
}

// Validate checks phone (E.164), email and status
func (c *Contact) Validate() error {
	var errs []string
	if !e164Pattern.MatchString(c.PhoneNumber) {
		errs = append(errs, "invalid phone number format, use E.164 (e.g. +1234567890)")
	}
	if c.Email != nil && *c.Email != "" && !contactEmailPattern.MatchString(*c.Email) {
		errs = append(errs, "invalid email format")
	}
	switch c.Status {
	case ContactActive, ContactInactive, ContactBlocked, ContactArchived:
	default:
		errs = append(errs, "invalid status")
	}
	if c.CreatedBy == "" {
		errs = append(errs, "created_by is required")
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// FullName falls back to the display name, then the phone number
func (c *Contact) FullName() string {
	name := strings.TrimSpace(deref(c.FirstName) + " " + deref(c.LastName))
	if name != "" {
		return name
	}
	if c.DisplayName != nil && *c.DisplayName != "" {
		return *c.DisplayName
	}
	return c.PhoneNumber
}

// SoftDelete archives the contact
func (c *Contact) SoftDelete(now time.Time) {
	c.DeletedAt = &now
	c.Status = ContactArchived
	c.UpdatedAt = now
}

// Restore reverses SoftDelete
func (c *Contact) Restore(now time.Time) {
	c.DeletedAt = nil
	c.Status = ContactActive
	c.UpdatedAt = now
}

// IsDeleted reports whether the contact was soft deleted
func (c *Contact) IsDeleted() bool {
	return c.DeletedAt != nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ContactFilter narrows a contact listing. Soft-deleted contacts are hidden
// unless IncludeDeleted is set.
type ContactFilter struct {
	Status         ContactStatus
	Tag            string
	Search         string
	FavoritesOnly  bool
	IncludeDeleted bool
}

// Matches reports whether the contact satisfies the filter
func (f ContactFilter) Matches(c *Contact) bool {
	if !f.IncludeDeleted && c.IsDeleted() {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.FavoritesOnly && !c.IsFavorite {
		return false
	}
	if f.Tag != "" && !containsString(c.Tags, f.Tag) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(c.FullName() + " " + c.PhoneNumber + " " + deref(c.Email))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
