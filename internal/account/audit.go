package account

import (
	"iter"
	"time"

	"github.com/BradenHooton/courier/internal/models"
)

// Append adds an entry to the audit log. Prior entries are never touched.
func (m *Machine) Append(a *models.Account, action models.AuditAction, details, ip *string, now time.Time) (*models.Account, error) {
	if !action.Valid() {
		return a, &models.UnknownAuditActionError{Action: string(action)}
	}

	next := a.Clone()
	var d string
	if details != nil {
		d = *details
	}
	appendEntry(next, action, d, ip, now)
	return next, nil
}

// Query yields the entries matching filter in insertion order. The sequence
// is lazy and can be ranged over any number of times.
func Query(a *models.Account, filter models.AuditFilter) iter.Seq[models.AuditEntry] {
	entries := a.AuditLog
	return func(yield func(models.AuditEntry) bool) {
		for _, e := range entries {
			if !filter.Matches(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// appendEntry stamps and appends an entry. The timestamp never precedes the
// previous entry so the log stays ordered even if the clock steps back.
func appendEntry(a *models.Account, action models.AuditAction, details string, ip *string, now time.Time) {
	ts := now
	var seq int64 = 1
	if n := len(a.AuditLog); n > 0 {
		last := a.AuditLog[n-1]
		if last.Timestamp.After(ts) {
			ts = last.Timestamp
		}
		seq = last.Seq + 1
	}

	entry := models.AuditEntry{
		Seq:       seq,
		Action:    action,
		Timestamp: ts,
	}
	if details != "" {
		d := details
		entry.Details = &d
	}
	if ip != nil && *ip != "" {
		addr := *ip
		entry.IPAddress = &addr
	}

	a.AuditLog = append(a.AuditLog, entry)
}
