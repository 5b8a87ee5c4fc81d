package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/background"
	"github.com/BradenHooton/courier/internal/config"
	"github.com/BradenHooton/courier/internal/database"
	"github.com/BradenHooton/courier/internal/events"
	"github.com/BradenHooton/courier/internal/handlers"
	"github.com/BradenHooton/courier/internal/locking"
	middlewareCustom "github.com/BradenHooton/courier/internal/middleware"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/repositories"
	"github.com/BradenHooton/courier/internal/routes"
	"github.com/BradenHooton/courier/internal/services"
	pkgauth "github.com/BradenHooton/courier/pkg/auth"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
	pkglogger "github.com/BradenHooton/courier/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// storage groups the repositories of one backend
type storage struct {
	accounts  services.AccountRepository
	audit     services.AuditEntryStore
	attempts  loginAttemptStore
	contacts  services.ContactRepository
	templates services.TemplateRepository
	health    handlers.HealthChecker
	close     func()
}

type loginAttemptStore interface {
	services.LoginAttemptRepository
	background.AttemptPurger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("storage", cfg.Storage.Backend))

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := openStorage(startCtx, cfg, logger)
	if err != nil {
		startCancel()
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.close()

	// Per-account serialization: redis when configured, in-process otherwise
	var locker locking.Locker = locking.NewLocalLocker()
	var redisHealth handlers.HealthChecker
	if cfg.Redis.Enabled() {
		client, err := locking.Connect(startCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			startCancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()
		redisLocker := locking.NewRedisLocker(client, cfg.Redis.LockTTL, logger)
		locker = redisLocker
		redisHealth = redisLocker
	}

	// Audit fan-out: kafka when configured, structured log otherwise
	var publisher events.Publisher = events.NewLoggingPublisher(logger)
	if cfg.Kafka.Enabled() {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			startCancel()
			logger.Error("failed to initialize kafka publisher", slog.Any("error", err))
			os.Exit(1)
		}
		publisher = kafkaPublisher
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close audit publisher", slog.Any("error", err))
		}
	}()

	var notifier services.LockoutNotifier
	if cfg.Email.Enabled() && cfg.Security.NotifyOnLock {
		sesNotifier, err := services.NewSESNotifier(startCtx, cfg.Email.Region, cfg.Email.FromAddress, logger)
		if err != nil {
			startCancel()
			logger.Error("failed to initialize email notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}
	startCancel()

	clock := account.SystemClock{}
	machine := account.NewMachine(account.Policy{
		MaxFailedAttempts: cfg.Security.MaxFailedAttempts,
		LockDuration:      cfg.Security.LockDuration,
	})
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	auditService := services.NewAuditService(store.audit, publisher, auditLogger, logger)
	accountService := services.NewAccountService(
		store.accounts,
		machine,
		clock,
		pkgauth.BcryptHasher{Cost: pkgauth.BcryptCost},
		locker,
		auditService,
		cfg.Security.WriteRetries,
		logger,
	)
	authService := services.NewAuthService(
		accountService,
		store.accounts,
		store.attempts,
		tokenManager,
		notifier,
		cfg.Auth.AttemptRetention,
		logger,
		auditLogger,
	)
	contactService := services.NewContactService(store.contacts, accountService, logger)
	templateService := services.NewTemplateService(store.templates, accountService, logger)
	adminService := services.NewAdminService(store.accounts, clock, logger)

	// Bootstrap first admin account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(ctx, accountService, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	cancel()

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	if err := ipConfig.Validate(); err != nil {
		logger.Error("invalid TRUSTED_PROXIES", slog.Any("error", err))
		os.Exit(1)
	}
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, ipConfig),
		Accounts:  handlers.NewAccountHandler(accountService, auditService, ipConfig),
		Contacts:  handlers.NewContactHandler(contactService, ipConfig),
		Templates: handlers.NewTemplateHandler(templateService, ipConfig),
		Admin:     handlers.NewAdminHandler(adminService),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthChecker{
			"database": store.health,
			"redis":    redisHealth,
		}),
	}

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Server.Env))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, tokenManager, store.accounts, routes.Limits{
		Login: middlewareCustom.RateLimitConfig{
			Requests: cfg.Security.LoginRateLimit,
			Window:   cfg.Security.LoginRateWindow,
		},
		Account: middlewareCustom.DefaultAccountRateLimit(),
	}, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(logger, cfg.Auth.CleanupInterval, background.ExpiredAttempts(store.attempts))
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", slog.Any("error", err))
	}

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return
	}

	logger.Info("server stopped gracefully")
}

// openStorage connects the configured backend. Postgres is migrated on start.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.Storage.Backend == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		accounts := repositories.NewMemoryAccountRepository()
		return &storage{
			accounts:  accounts,
			audit:     services.NewAggregateAuditStore(accounts),
			attempts:  repositories.NewMemoryLoginAttemptRepository(func() time.Time { return time.Now().UTC() }),
			contacts:  repositories.NewMemoryContactRepository(),
			templates: repositories.NewMemoryTemplateRepository(),
			close:     func() {},
		}, nil
	}

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &storage{
		accounts:  repositories.NewAccountRepository(db),
		audit:     repositories.NewAuditLogRepository(db),
		attempts:  repositories.NewLoginAttemptRepository(db),
		contacts:  repositories.NewContactRepository(db),
		templates: repositories.NewTemplateRepository(db),
		health:    db,
		close:     db.Close,
	}, nil
}

// ensureAdminAccount creates the first admin account if ADMIN_EMAIL and
// ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, accounts *services.AccountService, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	_, err := accounts.Provision(ctx, services.ProvisionInput{
		Email:     adminEmail,
		FirstName: "Admin",
		LastName:  "Account",
		Password:  adminPassword,
		Role:      models.RoleAdmin,
	}, "", nil)
	if errors.Is(err, models.ErrConflict) {
		logger.Info("admin account already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
