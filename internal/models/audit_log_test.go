package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseAuditAction(t *testing.T) {
	for _, a := range AuditActions() {
		got, err := ParseAuditAction(string(a))
		if err != nil {
			t.Errorf("ParseAuditAction(%q) returned error: %v", a, err)
		}
		if got != a {
			t.Errorf("ParseAuditAction(%q) = %q", a, got)
		}
	}

	_, err := ParseAuditAction("password_reset")
	var unknown *UnknownAuditActionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownAuditActionError, got %v", err)
	}
	if unknown.Action != "password_reset" {
		t.Errorf("expected action password_reset, got %q", unknown.Action)
	}
}

func TestAuditActions_ReturnsCopy(t *testing.T) {
	actions := AuditActions()
	actions[0] = "mutated"
	if AuditActions()[0] == "mutated" {
		t.Error("AuditActions exposed its backing array")
	}
}

func TestAuditFilter_Matches(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	from := base
	to := base.Add(time.Hour)

	tests := []struct {
		name   string
		filter AuditFilter
		entry  AuditEntry
		want   bool
	}{
		{
			name:  "zero filter matches everything",
			entry: AuditEntry{Action: AuditActionLogin, Timestamp: base},
			want:  true,
		},
		{
			name:   "action in set",
			filter: AuditFilter{Actions: []AuditAction{AuditActionLogout, AuditActionLogin}},
			entry:  AuditEntry{Action: AuditActionLogin, Timestamp: base},
			want:   true,
		},
		{
			name:   "action not in set",
			filter: AuditFilter{Actions: []AuditAction{AuditActionLogout}},
			entry:  AuditEntry{Action: AuditActionLogin, Timestamp: base},
			want:   false,
		},
		{
			name:   "from is inclusive",
			filter: AuditFilter{From: &from},
			entry:  AuditEntry{Action: AuditActionLogin, Timestamp: base},
			want:   true,
		},
		{
			name:   "before from",
			filter: AuditFilter{From: &from},
			entry:  AuditEntry{Action: AuditActionLogin, Timestamp: base.Add(-time.Second)},
			want:   false,
		},
		{
			name:   "to is exclusive",
			filter: AuditFilter{To: &to},
			entry:  AuditEntry{Action: AuditActionLogin, Timestamp: to},
			want:   false,
		},
		{
			name:   "inside window",
			filter: AuditFilter{From: &from, To: &to},
			entry:  AuditEntry{Action: AuditActionLogin, Timestamp: base.Add(30 * time.Minute)},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.entry); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
