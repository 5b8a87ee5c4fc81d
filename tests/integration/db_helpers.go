package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/BradenHooton/courier/internal/database"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/repositories"
	"github.com/BradenHooton/courier/pkg/auth"
)

// TestHasher hashes at the minimum bcrypt cost to keep seeding fast
var TestHasher = auth.BcryptHasher{Cost: bcrypt.MinCost}

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  *postgres.PostgresContainer
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// Repositories bundles every postgres repository
type Repositories struct {
	Accounts      *repositories.AccountRepository
	AuditLog      *repositories.AuditLogRepository
	LoginAttempts *repositories.LoginAttemptRepository
	Contacts      *repositories.ContactRepository
	Templates     *repositories.TemplateRepository
}

// SetupTestDatabase starts a disposable Postgres, applies the embedded
// migrations and returns the handle. Partial setups are torn down on error.
func SetupTestDatabase(ctx context.Context) (_ *TestDB, err error) {
	tdb := &TestDB{}
	defer func() {
		if err != nil {
			_ = tdb.Teardown(ctx)
		}
	}()

	tdb.Container, err = postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("courier"),
		postgres.WithUsername("courier"),
		postgres.WithPassword("courier"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	if tdb.ConnString, err = tdb.Container.ConnectionString(ctx, "sslmode=disable"); err != nil {
		return nil, fmt.Errorf("connection string: %w", err)
	}
	if tdb.Pool, err = pgxpool.New(ctx, tdb.ConnString); err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err = tdb.Pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	tdb.DB = database.NewFromPool(tdb.Pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	goose.SetLogger(log.New(io.Discard, "", 0))
	if err = database.Migrate(ctx, tdb.DB, nil); err != nil {
		return nil, err
	}
	return tdb, nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables empties every table so each test starts from a blank schema
func (db *TestDB) CleanupTables(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx,
		`TRUNCATE TABLE login_attempts, templates, contacts, account_audit_log, accounts RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) Repositories {
	return Repositories{
		Accounts:      repositories.NewAccountRepository(db),
		AuditLog:      repositories.NewAuditLogRepository(db),
		LoginAttempts: repositories.NewLoginAttemptRepository(db),
		Contacts:      repositories.NewContactRepository(db),
		Templates:     repositories.NewTemplateRepository(db),
	}
}

// SeedAccount inserts an account provisioned at now with the given role
func SeedAccount(ctx context.Context, repo *repositories.AccountRepository, email, password, role string, now time.Time) (*models.Account, error) {
	hash, err := TestHasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	a := models.NewAccount(email, "Test", "Account", hash, now)
	a.Role = role

	created, err := repo.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	return created, nil
}
