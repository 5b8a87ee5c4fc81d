package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/locking"
	"github.com/BradenHooton/courier/internal/models"
	pkgauth "github.com/BradenHooton/courier/pkg/auth"
)

// AccountReader is the read side of the account store
type AccountReader interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// AccountRepository persists the account aggregate. Update is a conditional
// write on Version and fails with models.ErrConcurrentModification when
// another writer got there first.
type AccountRepository interface {
	AccountReader
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

// Transition derives the next account state from current at now. Returning
// an error aborts the write.
type Transition func(current *models.Account, now time.Time) (*models.Account, error)

// AccountService runs every state change of the account aggregate as
// read, transition, conditional write. Writers of one account are serialized
// by the locker; a lost write race is retried on fresh state.
type AccountService struct {
	repo    AccountRepository
	machine *account.Machine
	clock   account.Clock
	hasher  PasswordHasher
	locker  locking.Locker
	audit   *AuditService
	retries int
	logger  *slog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	repo AccountRepository,
	machine *account.Machine,
	clock account.Clock,
	hasher PasswordHasher,
	locker locking.Locker,
	audit *AuditService,
	retries int,
	logger *slog.Logger,
) *AccountService {
	if retries < 1 {
		retries = 1
	}
	return &AccountService{
		repo:    repo,
		machine: machine,
		clock:   clock,
		hasher:  hasher,
		locker:  locker,
		audit:   audit,
		retries: retries,
		logger:  logger,
	}
}

// Machine exposes the transition rules in use
func (s *AccountService) Machine() *account.Machine {
	return s.machine
}

// Now reads the service clock
func (s *AccountService) Now() time.Time {
	return s.clock.Now()
}

// Mutate applies fn to the latest stored state of the account and writes the
// result. On models.ErrConcurrentModification the whole cycle is repeated,
// up to the configured number of attempts. Audit entries appended by fn are
// dispatched once the write commits.
func (s *AccountService) Mutate(ctx context.Context, id string, fn Transition) (*models.Account, error) {
	if s.locker != nil {
		release, err := s.locker.Lock(ctx, locking.AccountKey(id))
		if err != nil {
			s.logger.WarnContext(ctx, "failed to acquire account lock",
				slog.String("account_id", id),
				slog.Any("error", err))
			return nil, fmt.Errorf("lock account %s: %w", id, err)
		}
		defer release()
	}

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		next, err := fn(current, now)
		if err != nil {
			return nil, err
		}
		next.UpdatedAt = now

		saved, err := s.repo.Update(ctx, next)
		if err == nil {
			s.audit.Dispatch(ctx, id, committedEntries(current, saved))
			return saved, nil
		}
		if !errors.Is(err, models.ErrConcurrentModification) {
			return nil, err
		}

		lastErr = err
		s.logger.DebugContext(ctx, "account write lost a race, retrying",
			slog.String("account_id", id),
			slog.Int("attempt", attempt))
	}

	s.logger.WarnContext(ctx, "account write retries exhausted",
		slog.String("account_id", id),
		slog.Int("attempts", s.retries))
	return nil, lastErr
}

// mutate wraps Mutate with the service error contract: domain errors pass
// through, storage failures are logged and collapsed to ErrInternalServer.
func (s *AccountService) mutate(ctx context.Context, id, op string, fn Transition) (*models.Account, error) {
	a, err := s.Mutate(ctx, id, fn)
	if err != nil {
		return nil, s.mapError(ctx, id, op, err)
	}
	return a, nil
}

func (s *AccountService) mapError(ctx context.Context, id, op string, err error) error {
	var (
		unknownFeature *models.UnknownFeatureError
		unknownAction  *models.UnknownAuditActionError
		invalidValue   *models.InvalidValueError
		validation     *models.ValidationError
	)
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrAccountLocked),
		errors.Is(err, models.ErrNoOpenSession),
		errors.Is(err, models.ErrSessionAlreadyOpen),
		errors.Is(err, models.ErrInvalidIncrement),
		errors.Is(err, models.ErrConcurrentModification),
		errors.As(err, &unknownFeature),
		errors.As(err, &unknownAction),
		errors.As(err, &invalidValue),
		errors.As(err, &validation):
		return err
	case errors.Is(err, locking.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		s.logger.WarnContext(ctx, "account operation timed out",
			slog.String("account_id", id),
			slog.String("operation", op))
		return models.ErrConcurrentModification
	}

	s.logger.ErrorContext(ctx, "account operation failed",
		slog.String("account_id", id),
		slog.String("operation", op),
		slog.Any("error", err))
	return models.ErrInternalServer
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.InfoContext(ctx, "account not found", slog.String("account_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get account", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return a, nil
}

// ListAccounts retrieves accounts with pagination
func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list accounts",
			slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return accounts, nil
}

// ProvisionInput describes a new account
type ProvisionInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
	Plan      models.Plan
}

// Provision creates an account. When actorID is set, the creating admin is
// credited with an accounts_created activity.
func (s *AccountService) Provision(ctx context.Context, in ProvisionInput, actorID string, ip *string) (*models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, &models.ValidationError{Errors: []string{"email, first name and last name are required"}}
	}
	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, passwordPolicyViolation(err)
	}

	role := in.Role
	switch role {
	case "":
		role = models.RoleUser
	case models.RoleUser, models.RoleAdmin, models.RoleModerator:
	default:
		return nil, &models.InvalidValueError{Field: "role", Value: role}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.clock.Now()
	a := models.NewAccount(email, in.FirstName, in.LastName, hash, now)
	a.Role = role
	if in.Plan != "" && in.Plan != models.PlanFree {
		next, err := s.machine.ChangePlan(a, in.Plan, nil, now)
		if err != nil {
			return nil, err
		}
		a = next
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.InfoContext(ctx, "account email already registered")
			return nil, models.ErrConflict
		}
		s.logger.ErrorContext(ctx, "failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	s.audit.Dispatch(ctx, created.ID, created.AuditLog)
	s.logger.InfoContext(ctx, "account provisioned",
		slog.String("account_id", created.ID),
		slog.String("role", created.Role))

	if actorID != "" {
		details := "created account " + created.ID
		if _, err := s.RecordActivity(ctx, actorID, models.AuditActionAccountCreated, details, ip); err != nil {
			s.logger.WarnContext(ctx, "failed to credit account creation",
				slog.String("actor_id", actorID),
				slog.Any("error", err))
		}
	}
	return created, nil
}

// TrackUsage counts increment uses of feature. It writes no audit entry.
func (s *AccountService) TrackUsage(ctx context.Context, id string, feature models.Feature, increment int64) (*models.Account, error) {
	return s.mutate(ctx, id, "track_usage", func(a *models.Account, now time.Time) (*models.Account, error) {
		return s.machine.TrackUsage(a, feature, increment, now)
	})
}

// SetFeatureEnabled toggles a feature and records the change
func (s *AccountService) SetFeatureEnabled(ctx context.Context, id string, feature models.Feature, enabled bool, ip *string) (*models.Account, error) {
	return s.mutate(ctx, id, "set_feature", func(a *models.Account, now time.Time) (*models.Account, error) {
		return s.machine.SetFeatureEnabled(a, feature, enabled, ip, now)
	})
}

// ChangeStatus moves the account to a new status. Leaving active ends any
// open session at the same instant.
func (s *AccountService) ChangeStatus(ctx context.Context, id string, status models.Status, ip *string) (*models.Account, error) {
	return s.mutate(ctx, id, "change_status", func(a *models.Account, now time.Time) (*models.Account, error) {
		next, err := s.machine.ChangeStatus(a, status, ip, now)
		if err != nil {
			return nil, err
		}
		if status != models.StatusActive && account.HasOpenSession(next) {
			return s.machine.EndSession(next, now)
		}
		return next, nil
	})
}

// ChangePlan switches the subscription plan
func (s *AccountService) ChangePlan(ctx context.Context, id string, plan models.Plan, end *time.Time) (*models.Account, error) {
	return s.mutate(ctx, id, "change_plan", func(a *models.Account, now time.Time) (*models.Account, error) {
		return s.machine.ChangePlan(a, plan, end, now)
	})
}

// AddAdminNote replaces the admin notes of an account
func (s *AccountService) AddAdminNote(ctx context.Context, id, note string) (*models.Account, error) {
	return s.mutate(ctx, id, "add_admin_note", func(a *models.Account, now time.Time) (*models.Account, error) {
		return s.machine.AddAdminNote(a, note, now)
	})
}

// RecordActivity counts a domain action performed by the account
func (s *AccountService) RecordActivity(ctx context.Context, id string, action models.AuditAction, details string, ip *string) (*models.Account, error) {
	return s.mutate(ctx, id, "record_activity", func(a *models.Account, now time.Time) (*models.Account, error) {
		return s.machine.RecordActivity(a, action, details, ip, now)
	})
}

// UpdateProfile changes the account's names
func (s *AccountService) UpdateProfile(ctx context.Context, id, firstName, lastName string, ip *string) (*models.Account, error) {
	return s.mutate(ctx, id, "update_profile", func(a *models.Account, now time.Time) (*models.Account, error) {
		return s.machine.UpdateProfile(a, firstName, lastName, ip, now)
	})
}

// AppendAudit adds a bare audit entry without touching any counter
func (s *AccountService) AppendAudit(ctx context.Context, id string, action models.AuditAction, details, ip *string) (*models.Account, error) {
	return s.mutate(ctx, id, "append_audit", func(a *models.Account, now time.Time) (*models.Account, error) {
		return s.machine.Append(a, action, details, ip, now)
	})
}

// AuditTrail returns the account's audit entries matching filter
func (s *AccountService) AuditTrail(ctx context.Context, id string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	return s.audit.Trail(ctx, id, filter, limit, offset)
}

// passwordPolicyViolation turns a policy failure into a validation error
// that names each broken rule
func passwordPolicyViolation(err error) error {
	var policyErr *pkgauth.PasswordPolicyError
	if !errors.As(err, &policyErr) {
		return &models.ValidationError{Errors: []string{err.Error()}}
	}
	problems := make([]string, 0, len(policyErr.Problems))
	for _, p := range policyErr.Problems {
		problems = append(problems, "password: "+p)
	}
	return &models.ValidationError{Errors: problems}
}
