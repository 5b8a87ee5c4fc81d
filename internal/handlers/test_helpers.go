package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/services"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds account claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, accountID, role string) *http.Request {
	claims := &models.TokenClaims{
		AccountID: accountID,
		Email:     accountID + "@example.com",
		Role:      role,
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// WithChiRouteContext sets URL parameters that the chi router would
// normally extract from the path.
//
//	req := httptest.NewRequest("GET", "/accounts/acc-1", nil)
//	req = WithChiRouteContext(req, map[string]string{"id": "acc-1"})
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error)
	LogoutFunc         func(ctx context.Context, accountID string) error
	ChangePasswordFunc func(ctx context.Context, accountID, currentPassword, newPassword string, ip *string) (*services.AuthResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, in)
}

func (m *MockAuthService) Logout(ctx context.Context, accountID string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, accountID)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string, ip *string) (*services.AuthResponse, error) {
	if m.ChangePasswordFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.ChangePasswordFunc(ctx, accountID, currentPassword, newPassword, ip)
}

// MockAccountService implements AccountServiceInterface for testing.
// Unset mutation funcs report ErrNotFound.
type MockAccountService struct {
	Clock                 time.Time
	GetAccountFunc        func(ctx context.Context, id string) (*models.Account, error)
	ListAccountsFunc      func(ctx context.Context, limit, offset int) ([]*models.Account, error)
	ProvisionFunc         func(ctx context.Context, in services.ProvisionInput, actorID string, ip *string) (*models.Account, error)
	TrackUsageFunc        func(ctx context.Context, id string, feature models.Feature, increment int64) (*models.Account, error)
	SetFeatureEnabledFunc func(ctx context.Context, id string, feature models.Feature, enabled bool, ip *string) (*models.Account, error)
	ChangeStatusFunc      func(ctx context.Context, id string, status models.Status, ip *string) (*models.Account, error)
	ChangePlanFunc        func(ctx context.Context, id string, plan models.Plan, end *time.Time) (*models.Account, error)
	AddAdminNoteFunc      func(ctx context.Context, id, note string) (*models.Account, error)
	RecordActivityFunc    func(ctx context.Context, id string, action models.AuditAction, details string, ip *string) (*models.Account, error)
	UpdateProfileFunc     func(ctx context.Context, id, firstName, lastName string, ip *string) (*models.Account, error)
	AuditTrailFunc        func(ctx context.Context, id string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error)
	SummaryFunc           func(ctx context.Context, id string) (map[models.AuditAction]int64, error)
}

func (m *MockAccountService) Now() time.Time {
	if m.Clock.IsZero() {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	}
	return m.Clock
}

func (m *MockAccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if m.GetAccountFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetAccountFunc(ctx, id)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	if m.ListAccountsFunc == nil {
		return []*models.Account{}, nil
	}
	return m.ListAccountsFunc(ctx, limit, offset)
}

func (m *MockAccountService) Provision(ctx context.Context, in services.ProvisionInput, actorID string, ip *string) (*models.Account, error) {
	if m.ProvisionFunc == nil {
		return nil, models.ErrConflict
	}
	return m.ProvisionFunc(ctx, in, actorID, ip)
}

func (m *MockAccountService) TrackUsage(ctx context.Context, id string, feature models.Feature, increment int64) (*models.Account, error) {
	if m.TrackUsageFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.TrackUsageFunc(ctx, id, feature, increment)
}

func (m *MockAccountService) SetFeatureEnabled(ctx context.Context, id string, feature models.Feature, enabled bool, ip *string) (*models.Account, error) {
	if m.SetFeatureEnabledFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SetFeatureEnabledFunc(ctx, id, feature, enabled, ip)
}

func (m *MockAccountService) ChangeStatus(ctx context.Context, id string, status models.Status, ip *string) (*models.Account, error) {
	if m.ChangeStatusFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ChangeStatusFunc(ctx, id, status, ip)
}

func (m *MockAccountService) ChangePlan(ctx context.Context, id string, plan models.Plan, end *time.Time) (*models.Account, error) {
	if m.ChangePlanFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ChangePlanFunc(ctx, id, plan, end)
}

func (m *MockAccountService) AddAdminNote(ctx context.Context, id, note string) (*models.Account, error) {
	if m.AddAdminNoteFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.AddAdminNoteFunc(ctx, id, note)
}

func (m *MockAccountService) RecordActivity(ctx context.Context, id string, action models.AuditAction, details string, ip *string) (*models.Account, error) {
	if m.RecordActivityFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RecordActivityFunc(ctx, id, action, details, ip)
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, id, firstName, lastName string, ip *string) (*models.Account, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileFunc(ctx, id, firstName, lastName, ip)
}

func (m *MockAccountService) AuditTrail(ctx context.Context, id string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	if m.AuditTrailFunc == nil {
		return []models.AuditEntry{}, nil
	}
	return m.AuditTrailFunc(ctx, id, filter, limit, offset)
}

// Summary lets the mock stand in as the AuditSummarizer too
func (m *MockAccountService) Summary(ctx context.Context, id string) (map[models.AuditAction]int64, error) {
	if m.SummaryFunc == nil {
		return map[models.AuditAction]int64{}, nil
	}
	return m.SummaryFunc(ctx, id)
}

// MockContactService implements ContactServiceInterface for testing
type MockContactService struct {
	CreateFunc  func(ctx context.Context, ownerID string, contact *models.Contact, ip *string) (*models.Contact, error)
	GetFunc     func(ctx context.Context, ownerID, id string) (*models.Contact, error)
	ListFunc    func(ctx context.Context, ownerID string, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error)
	DeleteFunc  func(ctx context.Context, ownerID, id string) error
	RestoreFunc func(ctx context.Context, ownerID, id string) (*models.Contact, error)
}

func (m *MockContactService) Create(ctx context.Context, ownerID string, contact *models.Contact, ip *string) (*models.Contact, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrConflict
	}
	return m.CreateFunc(ctx, ownerID, contact, ip)
}

func (m *MockContactService) Get(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, ownerID, id)
}

func (m *MockContactService) List(ctx context.Context, ownerID string, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error) {
	if m.ListFunc == nil {
		return []*models.Contact{}, nil
	}
	return m.ListFunc(ctx, ownerID, filter, limit, offset)
}

func (m *MockContactService) Delete(ctx context.Context, ownerID, id string) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, ownerID, id)
}

func (m *MockContactService) Restore(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	if m.RestoreFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RestoreFunc(ctx, ownerID, id)
}

// MockTemplateService implements TemplateServiceInterface for testing
type MockTemplateService struct {
	CreateFunc func(ctx context.Context, ownerID string, t *models.Template, ip *string) (*models.Template, error)
	GetFunc    func(ctx context.Context, ownerID, id string) (*models.Template, error)
	ListFunc   func(ctx context.Context, ownerID, status string, limit, offset int) ([]*models.Template, error)
	RenderFunc func(ctx context.Context, ownerID, id string, values map[string]string) (string, error)
}

func (m *MockTemplateService) Create(ctx context.Context, ownerID string, t *models.Template, ip *string) (*models.Template, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, ownerID, t, ip)
}

func (m *MockTemplateService) Get(ctx context.Context, ownerID, id string) (*models.Template, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, ownerID, id)
}

func (m *MockTemplateService) List(ctx context.Context, ownerID, status string, limit, offset int) ([]*models.Template, error) {
	if m.ListFunc == nil {
		return []*models.Template{}, nil
	}
	return m.ListFunc(ctx, ownerID, status, limit, offset)
}

func (m *MockTemplateService) Render(ctx context.Context, ownerID, id string, values map[string]string) (string, error) {
	if m.RenderFunc == nil {
		return "", models.ErrNotFound
	}
	return m.RenderFunc(ctx, ownerID, id, values)
}
