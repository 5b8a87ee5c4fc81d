package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/config"
	"github.com/BradenHooton/courier/internal/database"
	"github.com/BradenHooton/courier/internal/events"
	"github.com/BradenHooton/courier/internal/handlers"
	"github.com/BradenHooton/courier/internal/locking"
	middlewareCustom "github.com/BradenHooton/courier/internal/middleware"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/routes"
	"github.com/BradenHooton/courier/internal/services"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
	pkglogger "github.com/BradenHooton/courier/pkg/logger"
)

// LockNotice represents a captured lockout notification
type LockNotice struct {
	AccountID string
	Email     string
	Until     time.Time
}

// MockNotifier captures lockout notifications for test assertions
type MockNotifier struct {
	Notices []LockNotice
	mu      sync.Mutex
}

// NotifyAccountLocked records the notice
func (m *MockNotifier) NotifyAccountLocked(ctx context.Context, a *models.Account, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Notices = append(m.Notices, LockNotice{AccountID: a.ID, Email: a.Email, Until: until})
	return nil
}

// Count returns the number of notices sent
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Notices)
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server   *httptest.Server
	DB       *database.DB
	Repos    Repositories
	Notifier *MockNotifier
	Config   *config.Config
	Clock    *account.ManualClock
}

// NewTestServer initializes a complete HTTP server with a real database,
// a manual clock and a captured notifier
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry: 15 * time.Minute,
			CleanupInterval:   time.Hour,
			AttemptRetention:  24 * time.Hour,
		},
		Security: config.SecurityConfig{
			MaxFailedAttempts: 5,
			LockDuration:      2 * time.Hour,
			WriteRetries:      3,
			LoginRateLimit:    1000,
			LoginRateWindow:   time.Minute,
			NotifyOnLock:      true,
		},
		Server: config.ServerConfig{
			Port: "0",
			Env:  "test",
		},
		Storage: config.StorageConfig{Backend: config.StoragePostgres},
	}

	repos := InitializeRepositories(db)
	notifier := &MockNotifier{}
	clock := account.NewManualClock(time.Now().UTC().Truncate(time.Microsecond))

	machine := account.NewMachine(account.Policy{
		MaxFailedAttempts: cfg.Security.MaxFailedAttempts,
		LockDuration:      cfg.Security.LockDuration,
	})
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry).WithClock(clock.Now)
	auditLogger := pkglogger.NewAuditLogger(logger)

	auditService := services.NewAuditService(repos.AuditLog, events.NewLoggingPublisher(logger), auditLogger, logger)
	accountService := services.NewAccountService(
		repos.Accounts,
		machine,
		clock,
		TestHasher,
		locking.NewLocalLocker(),
		auditService,
		cfg.Security.WriteRetries,
		logger,
	)
	authService := services.NewAuthService(
		accountService,
		repos.Accounts,
		repos.LoginAttempts,
		tokenManager,
		notifier,
		cfg.Auth.AttemptRetention,
		logger,
		auditLogger,
	).WithFailureDelay(auth.FailureDelay{})

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, ipConfig),
		Accounts:  handlers.NewAccountHandler(accountService, auditService, ipConfig),
		Contacts:  handlers.NewContactHandler(services.NewContactService(repos.Contacts, accountService, logger), ipConfig),
		Templates: handlers.NewTemplateHandler(services.NewTemplateService(repos.Templates, accountService, logger), ipConfig),
		Admin:     handlers.NewAdminHandler(services.NewAdminService(repos.Accounts, clock, logger)),
		Health:    handlers.NewHealthHandler(map[string]handlers.HealthChecker{"database": db}),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, h, tokenManager, repos.Accounts, routes.Limits{
		Login: middlewareCustom.RateLimitConfig{
			Requests: cfg.Security.LoginRateLimit,
			Window:   cfg.Security.LoginRateWindow,
		},
		Account: middlewareCustom.RateLimitConfig{Requests: 1000, Window: time.Minute},
	}, logger)

	return &TestServer{
		Server:   httptest.NewServer(r),
		DB:       db,
		Repos:    repos,
		Notifier: notifier,
		Config:   cfg,
		Clock:    clock,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// Login posts credentials and returns the response
func (ts *TestServer) Login(email, password string) (*http.Response, error) {
	return ts.Request(http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
		"device":   map[string]interface{}{"device_type": "desktop"},
	}, nil)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractAccessToken extracts the access token from a login response
func ExtractAccessToken(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	token, ok := authResp["access_token"].(string)
	if !ok || token == "" {
		return "", fmt.Errorf("response carries no access token")
	}
	return token, nil
}

// GetErrorCode extracts the error code from an error response
func GetErrorCode(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if code, ok := errResp["error"].(string); ok {
		return code, nil
	}
	return "", nil
}
