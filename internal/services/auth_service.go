package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/models"
	pkgauth "github.com/BradenHooton/courier/pkg/auth"
	pkglogger "github.com/BradenHooton/courier/pkg/logger"
)

// LoginAttemptRepository stores the forensic login history
type LoginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
}

// AuthService handles authentication on top of the account aggregate
type AuthService struct {
	accounts         *AccountService
	repo             AccountRepository
	attempts         LoginAttemptRepository
	tm               *auth.TokenManager
	notifier         LockoutNotifier
	delay            auth.FailureDelay
	attemptRetention time.Duration
	logger           *slog.Logger
	auditLogger      *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService. notifier may be nil.
func NewAuthService(
	accounts *AccountService,
	repo AccountRepository,
	attempts LoginAttemptRepository,
	tm *auth.TokenManager,
	notifier LockoutNotifier,
	attemptRetention time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		accounts:         accounts,
		repo:             repo,
		attempts:         attempts,
		tm:               tm,
		notifier:         notifier,
		delay:            auth.FailureDelay{Base: 250 * time.Millisecond, Jitter: 100 * time.Millisecond},
		attemptRetention: attemptRetention,
		logger:           logger,
		auditLogger:      auditLogger,
	}
}

// WithFailureDelay overrides the padding applied to failed logins
func (s *AuthService) WithFailureDelay(d auth.FailureDelay) *AuthService {
	s.delay = d
	return s
}

// LoginInput carries the credentials and the client context of a login
type LoginInput struct {
	Email    string
	Password string
	Device   models.DeviceInfo
	Location models.Location
}

// AuthResponse is returned by a successful login or password change
type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     *AccountSummary `json:"account"`
}

// AccountSummary is the public view of an account returned with a token
type AccountSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Plan      string `json:"plan"`
}

func summarize(a *models.Account) *AccountSummary {
	return &AccountSummary{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
		Status:    string(a.Status),
		Plan:      string(a.Plan),
	}
}

// Login authenticates an account. The order is fixed: status check, lock
// check, then password comparison. A wrong password is counted by the
// credential guard; a correct one clears it, ends any open session and
// starts a new one.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	start := time.Now()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	ip := in.Device.IPAddress

	if email == "" || in.Password == "" {
		s.logger.WarnContext(ctx, "login attempt with empty credentials")
		s.delay.WaitFrom(ctx, start)
		return nil, models.ErrUnauthorized
	}

	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.InfoContext(ctx, "login failed: invalid credentials")
			s.recordAttempt(ctx, nil, email, in.Device, false, models.FailureInvalidCredentials)
			s.delay.WaitFrom(ctx, start)
			return nil, models.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountStatus(a); err != nil {
		s.logger.InfoContext(ctx, "login blocked due to account status",
			slog.String("account_id", a.ID),
			slog.String("status", string(a.Status)))
		s.recordAttempt(ctx, &a.ID, email, in.Device, false, models.FailureAccountBlocked)
		return nil, err
	}

	if account.IsAccountLocked(a, s.accounts.Now()) {
		s.logger.InfoContext(ctx, "login blocked: account locked", slog.String("account_id", a.ID))
		s.recordAttempt(ctx, &a.ID, email, in.Device, false, models.FailureAccountLocked)
		return nil, models.ErrAccountLocked
	}

	if err := s.accounts.hasher.Compare(a.PasswordHash, in.Password); err != nil {
		s.recordAttempt(ctx, &a.ID, email, in.Device, false, models.FailureInvalidCredentials)
		s.registerFailure(ctx, a.ID, ip)
		s.delay.WaitFrom(ctx, start)
		return nil, models.ErrUnauthorized
	}

	updated, err := s.accounts.mutate(ctx, a.ID, "login", func(current *models.Account, now time.Time) (*models.Account, error) {
		next, err := s.accounts.machine.RecordSuccessfulLogin(current, ip, now)
		if err != nil {
			return nil, err
		}
		if account.HasOpenSession(next) {
			if next, err = s.accounts.machine.EndSession(next, now); err != nil {
				return nil, err
			}
		}
		return s.accounts.machine.StartSession(next, in.Device, in.Location, now)
	})
	if err != nil {
		if errors.Is(err, models.ErrAccountLocked) {
			// Locked by a concurrent failure between the check and the write
			s.recordAttempt(ctx, &a.ID, email, in.Device, false, models.FailureAccountLocked)
		}
		return nil, err
	}

	token, expiresAt, err := s.tm.GenerateAccessToken(updated)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate access token",
			slog.String("account_id", updated.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.recordAttempt(ctx, &updated.ID, email, in.Device, true, "")
	s.logger.InfoContext(ctx, "account logged in", slog.String("account_id", updated.ID))

	return &AuthResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Account:     summarize(updated),
	}, nil
}

// registerFailure counts the failed attempt on the aggregate and notifies the
// owner when this attempt tripped the lock
func (s *AuthService) registerFailure(ctx context.Context, id string, ip *string) {
	var wasLocked bool
	updated, err := s.accounts.mutate(ctx, id, "login_failed", func(current *models.Account, now time.Time) (*models.Account, error) {
		wasLocked = account.IsAccountLocked(current, now)
		return s.accounts.machine.RecordFailedAttempt(current, ip, now), nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record failed login",
			slog.String("account_id", id), slog.Any("error", err))
		return
	}

	s.logger.InfoContext(ctx, "login failed: invalid credentials",
		slog.String("account_id", id),
		slog.Int("attempts", updated.Lock.LoginAttempts))

	if wasLocked || updated.Lock.LockUntil == nil {
		return
	}

	s.logger.WarnContext(ctx, "account locked after repeated failures",
		slog.String("account_id", id),
		slog.Time("lock_until", *updated.Lock.LockUntil))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     "account_locked",
		AccountID:     id,
		FailureReason: models.FailureAccountLocked,
	})

	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAccountLocked(ctx, updated, *updated.Lock.LockUntil); err != nil {
		s.logger.ErrorContext(ctx, "failed to send lockout notification",
			slog.String("account_id", id), slog.Any("error", err))
	}
}

func (s *AuthService) recordAttempt(ctx context.Context, accountID *string, email string, device models.DeviceInfo, success bool, reason string) {
	event := pkglogger.AuditEvent{
		EventType:     "login_failed",
		Email:         email,
		Success:       success,
		FailureReason: reason,
	}
	if success {
		event.EventType = "login_success"
	}
	if accountID != nil {
		event.AccountID = *accountID
	}
	if device.IPAddress != nil {
		event.IPAddress = *device.IPAddress
	}
	if device.UserAgent != nil {
		event.UserAgent = *device.UserAgent
	}
	s.auditLogger.LogAuthAttempt(ctx, event)

	if s.attempts == nil {
		return
	}

	now := s.accounts.Now()
	attempt := &models.LoginAttempt{
		AccountID:   accountID,
		Email:       email,
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		AttemptTime: now,
		Success:     success,
		ExpiresAt:   now.Add(s.attemptRetention),
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.ErrorContext(ctx, "failed to record login attempt", slog.Any("error", err))
	}
}

// Logout ends the account's open session
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	_, err := s.accounts.mutate(ctx, accountID, "logout", func(current *models.Account, now time.Time) (*models.Account, error) {
		return s.accounts.machine.EndSession(current, now)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "account logged out", slog.String("account_id", accountID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "logout",
		AccountID: accountID,
		Success:   true,
	})
	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// returns a fresh token. Tokens issued before the change stop validating.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string, ip *string) (*AuthResponse, error) {
	a, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var ipAddress string
	if ip != nil {
		ipAddress = *ip
	}

	if err := s.accounts.hasher.Compare(a.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogPasswordChange(ctx, accountID, ipAddress, false)
		return nil, models.ErrUnauthorized
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return nil, passwordPolicyViolation(err)
	}

	hash, err := s.accounts.hasher.Hash(newPassword)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	updated, err := s.accounts.mutate(ctx, accountID, "change_password", func(current *models.Account, now time.Time) (*models.Account, error) {
		if current.PasswordHash != a.PasswordHash {
			// Password changed concurrently
			return nil, models.ErrConcurrentModification
		}
		return s.accounts.machine.ChangePassword(current, hash, ip, now), nil
	})
	if err != nil {
		return nil, err
	}
	s.auditLogger.LogPasswordChange(ctx, accountID, ipAddress, true)

	token, expiresAt, err := s.tm.GenerateAccessToken(updated)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate access token",
			slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Account:     summarize(updated),
	}, nil
}

// validateAccountStatus maps a non-active status to its error
func validateAccountStatus(a *models.Account) error {
	switch a.Status {
	case models.StatusActive:
		return nil
	case models.StatusSuspended:
		return models.ErrAccountSuspended
	case models.StatusDeleted:
		return models.ErrAccountDeleted
	default:
		return models.ErrAccountInactive
	}
}
