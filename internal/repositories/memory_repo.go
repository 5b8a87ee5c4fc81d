package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/courier/internal/models"
	"github.com/google/uuid"
)

// MemoryAccountRepository keeps accounts in process. It applies the same
// version check as AccountRepository and hands out deep copies only.
type MemoryAccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string
}

// NewMemoryAccountRepository creates an empty in-memory account store
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryAccountRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryAccountRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *MemoryAccountRepository) List(_ context.Context, limit, offset int) ([]*models.Account, error) {
	r.mu.RLock()
	all := make([]*models.Account, 0, len(r.byID))
	for _, a := range r.byID {
		c := a.Clone()
		c.AuditLog = nil
		all = append(all, c)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset), nil
}

func (r *MemoryAccountRepository) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[account.Email]; taken {
		return nil, models.ErrConflict
	}

	created := account.Clone()
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if _, taken := r.byID[created.ID]; taken {
		return nil, models.ErrConflict
	}
	created.Version = 1

	r.byID[created.ID] = created
	r.byEmail[created.Email] = created.ID
	return created.Clone(), nil
}

func (r *MemoryAccountRepository) Update(_ context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[account.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if stored.Version != account.Version {
		return nil, models.ErrConcurrentModification
	}
	// The log is append-only: the incoming log must extend the stored one
	if len(account.AuditLog) < len(stored.AuditLog) {
		return nil, models.ErrConcurrentModification
	}

	updated := account.Clone()
	updated.Version = stored.Version + 1
	if updated.Email != stored.Email {
		delete(r.byEmail, stored.Email)
		r.byEmail[updated.Email] = updated.ID
	}
	r.byID[updated.ID] = updated
	return updated.Clone(), nil
}

// MemoryContactRepository keeps contacts in process
type MemoryContactRepository struct {
	mu       sync.RWMutex
	contacts map[string]*models.Contact
}

func NewMemoryContactRepository() *MemoryContactRepository {
	return &MemoryContactRepository{contacts: make(map[string]*models.Contact)}
}

func (r *MemoryContactRepository) Create(_ context.Context, contact *models.Contact) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.contacts {
		if c.CreatedBy == contact.CreatedBy && c.PhoneNumber == contact.PhoneNumber {
			return nil, models.ErrConflict
		}
	}

	created := cloneContact(contact)
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	r.contacts[created.ID] = created
	return cloneContact(created), nil
}

func (r *MemoryContactRepository) GetByID(_ context.Context, ownerID, id string) (*models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contacts[id]
	if !ok || c.CreatedBy != ownerID {
		return nil, models.ErrNotFound
	}
	return cloneContact(c), nil
}

func (r *MemoryContactRepository) List(_ context.Context, ownerID string, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error) {
	r.mu.RLock()
	matches := make([]*models.Contact, 0)
	for _, c := range r.contacts {
		if c.CreatedBy == ownerID && filter.Matches(c) {
			matches = append(matches, cloneContact(c))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return paginate(matches, limit, offset), nil
}

func (r *MemoryContactRepository) Update(_ context.Context, contact *models.Contact) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.contacts[contact.ID]
	if !ok || stored.CreatedBy != contact.CreatedBy {
		return nil, models.ErrNotFound
	}
	updated := cloneContact(contact)
	r.contacts[updated.ID] = updated
	return cloneContact(updated), nil
}

func cloneContact(c *models.Contact) *models.Contact {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	if c.CustomFields != nil {
		out.CustomFields = make(map[string]string, len(c.CustomFields))
		for k, v := range c.CustomFields {
			out.CustomFields[k] = v
		}
	}
	return &out
}

// MemoryTemplateRepository keeps templates in process
type MemoryTemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*models.Template
}

func NewMemoryTemplateRepository() *MemoryTemplateRepository {
	return &MemoryTemplateRepository{templates: make(map[string]*models.Template)}
}

func (r *MemoryTemplateRepository) Create(_ context.Context, t *models.Template) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := cloneTemplate(t)
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	r.templates[created.ID] = created
	return cloneTemplate(created), nil
}

func (r *MemoryTemplateRepository) GetByID(_ context.Context, ownerID, id string) (*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok || t.CreatedBy != ownerID {
		return nil, models.ErrNotFound
	}
	return cloneTemplate(t), nil
}

func (r *MemoryTemplateRepository) List(_ context.Context, ownerID, status string, limit, offset int) ([]*models.Template, error) {
	r.mu.RLock()
	matches := make([]*models.Template, 0)
	for _, t := range r.templates {
		if t.CreatedBy == ownerID && (status == "" || t.Status == status) {
			matches = append(matches, cloneTemplate(t))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return paginate(matches, limit, offset), nil
}

// cloneTemplate copies the slices callers may mutate; the interactive
// payload is replaced wholesale, never edited in place
func cloneTemplate(t *models.Template) *models.Template {
	out := *t
	out.Tags = append([]string(nil), t.Tags...)
	out.Variables = append([]models.TemplateVariable(nil), t.Variables...)
	return &out
}

// MemoryLoginAttemptRepository keeps login attempts in process
type MemoryLoginAttemptRepository struct {
	mu       sync.Mutex
	attempts []models.LoginAttempt
	now      func() time.Time
}

func NewMemoryLoginAttemptRepository(now func() time.Time) *MemoryLoginAttemptRepository {
	return &MemoryLoginAttemptRepository{now: now}
}

func (r *MemoryLoginAttemptRepository) RecordAttempt(_ context.Context, attempt *models.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *MemoryLoginAttemptRepository) ListRecent(_ context.Context, email string, limit int) ([]*models.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.LoginAttempt, 0)
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.attempts[i].Email == email {
			a := r.attempts[i]
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r *MemoryLoginAttemptRepository) DeleteExpiredAttempts(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.attempts[:0]
	var deleted int64
	for _, a := range r.attempts {
		if a.ExpiresAt.After(now) {
			kept = append(kept, a)
			continue
		}
		deleted++
	}
	r.attempts = kept
	return deleted, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
