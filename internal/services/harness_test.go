package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/locking"
	"github.com/BradenHooton/courier/internal/repositories"
	pkglogger "github.com/BradenHooton/courier/pkg/logger"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	clock     *account.ManualClock
	repo      *repositories.MemoryAccountRepository
	attempts  *MockLoginAttemptRepository
	publisher *MockPublisher
	notifier  *MockLockoutNotifier
	tm        *auth.TokenManager
	accounts  *AccountService
	auth      *AuthService
}

// newHarness wires the services over the in-memory store with a frozen clock
func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := discardLogger()
	h := &harness{
		clock:     account.NewManualClock(t0),
		repo:      repositories.NewMemoryAccountRepository(),
		attempts:  &MockLoginAttemptRepository{},
		publisher: &MockPublisher{},
		notifier:  &MockLockoutNotifier{},
	}
	h.tm = auth.NewTokenManager(testSecret, 15*time.Minute).WithClock(h.clock.Now)

	audit := NewAuditService(NewAggregateAuditStore(h.repo), h.publisher, pkglogger.NewAuditLogger(logger), logger)
	h.accounts = NewAccountService(h.repo, account.NewMachine(account.DefaultPolicy()), h.clock,
		PlainHasher{}, locking.NewLocalLocker(), audit, 3, logger)
	h.auth = NewAuthService(h.accounts, h.repo, h.attempts, h.tm, h.notifier, 30*24*time.Hour,
		logger, pkglogger.NewAuditLogger(logger)).WithFailureDelay(auth.FailureDelay{})
	return h
}

func strPtr(s string) *string {
	return &s
}
