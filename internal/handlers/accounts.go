package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/services"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccountServiceInterface defines the account operations exposed over HTTP
type AccountServiceInterface interface {
	Now() time.Time
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error)
	Provision(ctx context.Context, in services.ProvisionInput, actorID string, ip *string) (*models.Account, error)
	TrackUsage(ctx context.Context, id string, feature models.Feature, increment int64) (*models.Account, error)
	SetFeatureEnabled(ctx context.Context, id string, feature models.Feature, enabled bool, ip *string) (*models.Account, error)
	ChangeStatus(ctx context.Context, id string, status models.Status, ip *string) (*models.Account, error)
	ChangePlan(ctx context.Context, id string, plan models.Plan, end *time.Time) (*models.Account, error)
	AddAdminNote(ctx context.Context, id, note string) (*models.Account, error)
	RecordActivity(ctx context.Context, id string, action models.AuditAction, details string, ip *string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName string, ip *string) (*models.Account, error)
	AuditTrail(ctx context.Context, id string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error)
}

// AuditSummarizer tallies audit entries per action
type AuditSummarizer interface {
	Summary(ctx context.Context, accountID string) (map[models.AuditAction]int64, error)
}

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	service  AccountServiceInterface
	audit    AuditSummarizer
	ipConfig *pkghttp.IPConfig
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountServiceInterface, audit AuditSummarizer, ipConfig *pkghttp.IPConfig) *AccountHandler {
	return &AccountHandler{
		service:  service,
		audit:    audit,
		ipConfig: ipConfig,
	}
}

// Request/Response DTOs

// ProvisionAccountRequest represents the request body for creating an account
type ProvisionAccountRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin moderator"`
	Plan      string `json:"plan" validate:"omitempty,plan"`
}

// TrackUsageRequest represents one use of a feature
type TrackUsageRequest struct {
	Increment int64 `json:"increment" validate:"gte=0"`
}

// SetFeatureRequest toggles a feature
type SetFeatureRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ChangeStatusRequest moves an account to a new status
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,account_status"`
}

// ChangePlanRequest switches the subscription plan
type ChangePlanRequest struct {
	Plan            string     `json:"plan" validate:"required,plan"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}

// AdminNoteRequest replaces the admin notes
type AdminNoteRequest struct {
	Note string `json:"note" validate:"max=5000"`
}

// RecordActivityRequest counts a domain action
type RecordActivityRequest struct {
	Action  string `json:"action" validate:"required,oneof=account_created contact_added message_sent campaign_created template_created"`
	Details string `json:"details" validate:"max=500"`
}

// UpdateProfileRequest changes the account names
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
}

// LockResponse is the credential guard view of an account
type LockResponse struct {
	LoginAttempts int        `json:"login_attempts"`
	LockUntil     *time.Time `json:"lock_until,omitempty"`
	IsLocked      bool       `json:"is_locked"`
}

// SessionResponse is the session tracker view of an account
type SessionResponse struct {
	Started    *time.Time `json:"started,omitempty"`
	Ended      *time.Time `json:"ended,omitempty"`
	DurationMS *int64     `json:"duration_ms,omitempty"`
	IsOnline   bool       `json:"is_online"`
}

// MetricsResponse carries the aggregate counters with durations in ms
type MetricsResponse struct {
	LoginCount               int64      `json:"login_count"`
	LastLogin                *time.Time `json:"last_login,omitempty"`
	LastActivity             *time.Time `json:"last_activity,omitempty"`
	SessionCount             int64      `json:"session_count"`
	AverageSessionDurationMS int64      `json:"average_session_duration_ms"`
	TotalSessionTimeMS       int64      `json:"total_session_time_ms"`
	FailedLoginAttempts      int64      `json:"failed_login_attempts"`
	PasswordChanges          int64      `json:"password_changes"`
	LastPasswordChange       *time.Time `json:"last_password_change,omitempty"`
}

// AccountResponse represents an account in the HTTP response
type AccountResponse struct {
	ID                string              `json:"id"`
	Email             string              `json:"email"`
	FirstName         string              `json:"first_name"`
	LastName          string              `json:"last_name"`
	Role              string              `json:"role"`
	Status            models.Status       `json:"status"`
	Plan              models.Plan         `json:"plan"`
	SubscriptionStart *time.Time          `json:"subscription_start,omitempty"`
	SubscriptionEnd   *time.Time          `json:"subscription_end,omitempty"`
	IsVerified        bool                `json:"is_verified"`
	Lock              LockResponse        `json:"lock"`
	Session           SessionResponse     `json:"session"`
	Device            models.DeviceInfo   `json:"device"`
	Location          models.Location     `json:"location"`
	Metrics           MetricsResponse     `json:"metrics"`
	Activity          models.Activity     `json:"activity"`
	Features          models.FeatureUsage `json:"features"`
	AdminNotes        *string             `json:"admin_notes,omitempty"`
	Version           int64               `json:"version"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// ListAccountsResponse represents a page of accounts
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// accountModelToResponse converts the aggregate to its response DTO as of
// now. Admin notes are only shown to admins.
func accountModelToResponse(a *models.Account, now time.Time, isAdmin bool) *AccountResponse {
	resp := &AccountResponse{
		ID:                a.ID,
		Email:             a.Email,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		Role:              a.Role,
		Status:            a.Status,
		Plan:              a.Plan,
		SubscriptionStart: a.SubscriptionStart,
		SubscriptionEnd:   a.SubscriptionEnd,
		IsVerified:        a.IsVerified,
		Lock: LockResponse{
			LoginAttempts: a.Lock.LoginAttempts,
			LockUntil:     a.Lock.LockUntil,
			IsLocked:      account.IsAccountLocked(a, now),
		},
		Session: SessionResponse{
			Started:  a.Session.Started,
			Ended:    a.Session.Ended,
			IsOnline: account.IsOnline(a),
		},
		Device:   a.Device,
		Location: a.Location,
		Metrics: MetricsResponse{
			LoginCount:               a.Metrics.LoginCount,
			LastLogin:                a.Metrics.LastLogin,
			LastActivity:             a.Metrics.LastActivity,
			SessionCount:             a.Metrics.SessionCount,
			AverageSessionDurationMS: a.Metrics.AverageSessionDuration.Milliseconds(),
			TotalSessionTimeMS:       a.Metrics.TotalSessionTime.Milliseconds(),
			FailedLoginAttempts:      a.Metrics.FailedLoginAttempts,
			PasswordChanges:          a.Metrics.PasswordChanges,
			LastPasswordChange:       a.Metrics.LastPasswordChange,
		},
		Activity:  a.Activity,
		Features:  a.Features,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Session.Duration != nil {
		ms := a.Session.Duration.Milliseconds()
		resp.Session.DurationMS = &ms
	}
	if isAdmin {
		resp.AdminNotes = a.AdminNotes
	}
	return resp
}

func isAdmin(r *http.Request) bool {
	claims := auth.GetClaimsFromContext(r)
	return claims != nil && claims.Role == models.RoleAdmin
}

func (h *AccountHandler) respond(w http.ResponseWriter, r *http.Request, status int, a *models.Account) {
	writeJSON(w, status, accountModelToResponse(a, h.service.Now(), isAdmin(r)))
}

// authorize resolves the {id} parameter and checks the caller may act on it
func (h *AccountHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Account ID is required")
		return "", false
	}
	if err := checkAccountAccess(r, id); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Unauthorized")
			return "", false
		}
		pkghttp.WriteForbidden(w, "Forbidden: you cannot access this resource")
		return "", false
	}
	return id, true
}

func (h *AccountHandler) clientIP(r *http.Request) *string {
	return optionalString(pkghttp.ExtractClientIP(r, h.ipConfig))
}

// GetAccount retrieves an account by ID
//
// @Summary Get account by ID
// @Param id path string true "Account ID"
// @Produce json
// @Success 200 {object} AccountResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	a, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}

// ListAccounts retrieves a page of accounts (admin only)
//
// @Summary List accounts
// @Param limit query int false "Limit (default 20)"
// @Param offset query int false "Offset (default 0)"
// @Produce json
// @Success 200 {object} ListAccountsResponse
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r, 20, 100)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	accounts, err := h.service.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := h.service.Now()
	resp := &ListAccountsResponse{Accounts: make([]*AccountResponse, 0, len(accounts))}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, accountModelToResponse(a, now, true))
	}
	resp.Total = len(resp.Accounts)
	writeJSON(w, http.StatusOK, resp)
}

// ProvisionAccount creates an account (admin only)
//
// @Summary Create account
// @Accept json
// @Param request body ProvisionAccountRequest true "Account"
// @Produce json
// @Success 201 {object} AccountResponse
// @Router /accounts [post]
func (h *AccountHandler) ProvisionAccount(w http.ResponseWriter, r *http.Request) {
	var req ProvisionAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var actorID string
	if claims := auth.GetClaimsFromContext(r); claims != nil {
		actorID = claims.AccountID
	}

	a, err := h.service.Provision(r.Context(), services.ProvisionInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Role:      req.Role,
		Plan:      models.Plan(req.Plan),
	}, actorID, h.clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusCreated, a)
}

// TrackUsage records one use of a feature
//
// @Summary Track feature usage
// @Param id path string true "Account ID"
// @Param feature path string true "Feature"
// @Accept json
// @Param request body TrackUsageRequest false "Increment"
// @Produce json
// @Success 200 {object} AccountResponse
// @Router /accounts/{id}/features/{feature}/usage [post]
func (h *AccountHandler) TrackUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req TrackUsageRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.service.TrackUsage(r.Context(), id, models.Feature(chi.URLParam(r, "feature")), req.Increment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}

// SetFeature enables or disables a feature
//
// @Summary Toggle feature
// @Param id path string true "Account ID"
// @Param feature path string true "Feature"
// @Accept json
// @Param request body SetFeatureRequest true "Toggle"
// @Produce json
// @Success 200 {object} AccountResponse
// @Router /accounts/{id}/features/{feature} [put]
func (h *AccountHandler) SetFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req SetFeatureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.service.SetFeatureEnabled(r.Context(), id, models.Feature(chi.URLParam(r, "feature")), *req.Enabled, h.clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}

// RecordActivity counts a domain action performed by the account
//
// @Summary Record activity
// @Router /accounts/{id}/activity [post]
func (h *AccountHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req RecordActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.service.RecordActivity(r.Context(), id, models.AuditAction(req.Action), req.Details, h.clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}

// UpdateProfile changes the account names
//
// @Summary Update profile
// @Router /accounts/{id}/profile [put]
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.service.UpdateProfile(r.Context(), id, req.FirstName, req.LastName, h.clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}

// ChangeStatus moves an account to a new status (admin only)
//
// @Summary Change account status
// @Router /accounts/{id}/status [put]
func (h *AccountHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ChangeStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	// Admins cannot lock themselves out
	if claims := auth.GetClaimsFromContext(r); claims != nil && claims.AccountID == id && req.Status != string(models.StatusActive) {
		pkghttp.WriteForbidden(w, "Cannot change your own status")
		return
	}

	a, err := h.service.ChangeStatus(r.Context(), id, models.Status(req.Status), h.clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}

// ChangePlan switches the subscription plan (admin only)
//
// @Summary Change plan
// @Router /accounts/{id}/plan [put]
func (h *AccountHandler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ChangePlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.service.ChangePlan(r.Context(), id, models.Plan(req.Plan), req.SubscriptionEnd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}

// AddAdminNote replaces the admin notes (admin only)
//
// @Summary Add admin note
// @Router /accounts/{id}/notes [post]
func (h *AccountHandler) AddAdminNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AdminNoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.service.AddAdminNote(r.Context(), id, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}
