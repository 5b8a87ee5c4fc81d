package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BradenHooton/courier/internal/events"
	"github.com/BradenHooton/courier/internal/models"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.Account, error)
	ListFunc       func(ctx context.Context, limit, offset int) ([]*models.Account, error)
	CreateFunc     func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateFunc     func(ctx context.Context, account *models.Account) (*models.Account, error)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

// MockLoginAttemptRepository records attempts in memory for assertions
type MockLoginAttemptRepository struct {
	mu       sync.Mutex
	Attempts []models.LoginAttempt

	RecordAttemptFunc func(ctx context.Context, attempt *models.LoginAttempt) error
}

func (m *MockLoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	m.mu.Lock()
	m.Attempts = append(m.Attempts, *attempt)
	m.mu.Unlock()
	return nil
}

// Recorded returns a snapshot of the recorded attempts
func (m *MockLoginAttemptRepository) Recorded() []models.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LoginAttempt(nil), m.Attempts...)
}

// MockPublisher captures published audit events
type MockPublisher struct {
	mu     sync.Mutex
	Events []events.AuditEvent

	PublishFunc func(ctx context.Context, events ...events.AuditEvent) error
}

func (m *MockPublisher) Publish(ctx context.Context, evs ...events.AuditEvent) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, evs...)
	}
	m.mu.Lock()
	m.Events = append(m.Events, evs...)
	m.mu.Unlock()
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// Published returns a snapshot of the captured events
func (m *MockPublisher) Published() []events.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.AuditEvent(nil), m.Events...)
}

// MockLockoutNotifier counts lockout notices
type MockLockoutNotifier struct {
	mu    sync.Mutex
	Calls []string

	NotifyAccountLockedFunc func(ctx context.Context, account *models.Account, until time.Time) error
}

func (m *MockLockoutNotifier) NotifyAccountLocked(ctx context.Context, account *models.Account, until time.Time) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, account.ID)
	m.mu.Unlock()
	if m.NotifyAccountLockedFunc != nil {
		return m.NotifyAccountLockedFunc(ctx, account, until)
	}
	return nil
}

// Notified returns the account IDs notified so far
func (m *MockLockoutNotifier) Notified() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

var errPasswordMismatch = errors.New("password mismatch")

// PlainHasher is a PasswordHasher without key stretching, for tests only
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) {
	return "plain:" + password, nil
}

func (PlainHasher) Compare(hashedPassword, password string) error {
	if hashedPassword != "plain:"+password {
		return errPasswordMismatch
	}
	return nil
}

// NewTestAccount creates an active account with a PlainHasher password hash
func NewTestAccount(id, email, password string, now time.Time) *models.Account {
	hash, _ := PlainHasher{}.Hash(password)
	a := models.NewAccount(email, "Test", "User", hash, now)
	a.ID = id
	return a
}
