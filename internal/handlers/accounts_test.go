package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/courier/internal/handlers"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handlerNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func testAccount(id string) *models.Account {
	a := models.NewAccount(id+"@example.com", "Ada", "Lovelace", "hash", handlerNow.Add(-24*time.Hour))
	a.ID = id
	a.Version = 3
	note := "vip"
	a.AdminNotes = &note
	return a
}

func newAccountHandler(svc *handlers.MockAccountService) *handlers.AccountHandler {
	return handlers.NewAccountHandler(svc, svc, nil)
}

func TestGetAccount_Self(t *testing.T) {
	svc := &handlers.MockAccountService{
		Clock: handlerNow,
		GetAccountFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return testAccount(id), nil
		},
	}
	h := newAccountHandler(svc)

	req := httptest.NewRequest("GET", "/accounts/acc-1", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.GetAccount(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "acc-1", resp.ID)
	assert.Equal(t, models.StatusActive, resp.Status)
	assert.Equal(t, int64(3), resp.Version)
	assert.False(t, resp.Lock.IsLocked)
	assert.False(t, resp.Session.IsOnline)
	assert.Len(t, resp.Features, len(models.Features()))
	assert.Nil(t, resp.AdminNotes, "admin notes are hidden from non-admins")
}

func TestGetAccount_AdminSeesNotesAndLock(t *testing.T) {
	svc := &handlers.MockAccountService{
		Clock: handlerNow,
		GetAccountFunc: func(ctx context.Context, id string) (*models.Account, error) {
			a := testAccount(id)
			until := handlerNow.Add(10 * time.Minute)
			a.Lock = models.LockState{LoginAttempts: 5, LockUntil: &until}
			return a, nil
		},
	}
	h := newAccountHandler(svc)

	req := httptest.NewRequest("GET", "/accounts/acc-1", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1"})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.GetAccount(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.NotNil(t, resp.AdminNotes)
	assert.Equal(t, "vip", *resp.AdminNotes)
	assert.True(t, resp.Lock.IsLocked)
	assert.Equal(t, 5, resp.Lock.LoginAttempts)
}

func TestGetAccount_OtherAccountForbidden(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := httptest.NewRequest("GET", "/accounts/acc-2", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-2"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.GetAccount(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestGetAccount_NotFound(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := httptest.NewRequest("GET", "/accounts/missing", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "missing"})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.GetAccount(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestListAccounts_Pagination(t *testing.T) {
	svc := &handlers.MockAccountService{
		ListAccountsFunc: func(ctx context.Context, limit, offset int) ([]*models.Account, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 20, offset)
			return []*models.Account{testAccount("a"), testAccount("b")}, nil
		},
	}
	h := newAccountHandler(svc)

	req := httptest.NewRequest("GET", "/accounts?limit=10&offset=20", nil)
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.ListAccounts(w, req)

	var resp handlers.ListAccountsResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 2, resp.Total)
}

func TestListAccounts_InvalidLimit(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	for _, q := range []string{"limit=0", "limit=101", "limit=x", "offset=-1"} {
		req := httptest.NewRequest("GET", "/accounts?"+q, nil)
		w := httptest.NewRecorder()
		h.ListAccounts(w, req)
		handlers.AssertErrorResponse(t, w, 400, "bad_request")
	}
}

func TestProvisionAccount(t *testing.T) {
	var gotInput services.ProvisionInput
	var gotActor string
	svc := &handlers.MockAccountService{
		ProvisionFunc: func(ctx context.Context, in services.ProvisionInput, actorID string, ip *string) (*models.Account, error) {
			gotInput = in
			gotActor = actorID
			a := testAccount("new")
			a.Plan = in.Plan
			return a, nil
		},
	}
	h := newAccountHandler(svc)

	req := handlers.NewTestRequest(t, "POST", "/accounts", handlers.ProvisionAccountRequest{
		Email:     "new@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		Password:  "Str0ng!pass",
		Plan:      "professional",
	})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.ProvisionAccount(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, models.PlanProfessional, resp.Plan)
	assert.Equal(t, "admin-1", gotActor)
	assert.Equal(t, models.PlanProfessional, gotInput.Plan)
	assert.Equal(t, "Str0ng!pass", gotInput.Password)
}

func TestProvisionAccount_InvalidPlan(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := handlers.NewTestRequest(t, "POST", "/accounts", handlers.ProvisionAccountRequest{
		Email:     "new@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		Password:  "Str0ng!pass",
		Plan:      "platinum",
	})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.ProvisionAccount(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestProvisionAccount_Duplicate(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := handlers.NewTestRequest(t, "POST", "/accounts", handlers.ProvisionAccountRequest{
		Email:     "taken@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		Password:  "Str0ng!pass",
	})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.ProvisionAccount(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestTrackUsage(t *testing.T) {
	tests := []struct {
		name       string
		feature    string
		body       any
		err        error
		wantStatus int
		wantInc    int64
	}{
		{name: "default increment", feature: "aiChat", wantStatus: 200, wantInc: 0},
		{name: "explicit increment", feature: "aiChat", body: handlers.TrackUsageRequest{Increment: 3}, wantStatus: 200, wantInc: 3},
		{name: "unknown feature", feature: "teleport", err: &models.UnknownFeatureError{Name: "teleport"}, wantStatus: 400},
		{name: "negative increment", feature: "aiChat", body: handlers.TrackUsageRequest{Increment: -1}, wantStatus: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotInc int64 = -99
			svc := &handlers.MockAccountService{
				TrackUsageFunc: func(ctx context.Context, id string, feature models.Feature, increment int64) (*models.Account, error) {
					gotInc = increment
					if tt.err != nil {
						return nil, tt.err
					}
					return testAccount(id), nil
				},
			}
			h := newAccountHandler(svc)

			url := "/accounts/acc-1/features/" + tt.feature + "/usage"
			req := httptest.NewRequest("POST", url, nil)
			if tt.body != nil {
				req = handlers.NewTestRequest(t, "POST", url, tt.body)
			}
			req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1", "feature": tt.feature})
			req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

			w := httptest.NewRecorder()
			h.TrackUsage(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == 200 {
				assert.Equal(t, tt.wantInc, gotInc)
			}
		})
	}
}

func TestSetFeature(t *testing.T) {
	var gotEnabled bool
	svc := &handlers.MockAccountService{
		SetFeatureEnabledFunc: func(ctx context.Context, id string, feature models.Feature, enabled bool, ip *string) (*models.Account, error) {
			gotEnabled = enabled
			a := testAccount(id)
			a.Features[feature] = models.FeatureStat{Enabled: enabled}
			return a, nil
		},
	}
	h := newAccountHandler(svc)

	disabled := false
	req := handlers.NewTestRequest(t, "PUT", "/accounts/acc-1/features/aiChat", handlers.SetFeatureRequest{Enabled: &disabled})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1", "feature": "aiChat"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.SetFeature(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.False(t, gotEnabled)
	assert.False(t, resp.Features[models.FeatureAIChat].Enabled)
}

func TestSetFeature_MissingEnabled(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := handlers.NewTestRequest(t, "PUT", "/accounts/acc-1/features/aiChat", map[string]any{})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1", "feature": "aiChat"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.SetFeature(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestChangeStatus(t *testing.T) {
	svc := &handlers.MockAccountService{
		ChangeStatusFunc: func(ctx context.Context, id string, status models.Status, ip *string) (*models.Account, error) {
			a := testAccount(id)
			a.Status = status
			return a, nil
		},
	}
	h := newAccountHandler(svc)

	req := handlers.NewTestRequest(t, "PUT", "/accounts/acc-2/status", handlers.ChangeStatusRequest{Status: "suspended"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-2"})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.ChangeStatus(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, models.StatusSuspended, resp.Status)
}

func TestChangeStatus_Self(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := handlers.NewTestRequest(t, "PUT", "/accounts/admin-1/status", handlers.ChangeStatusRequest{Status: "inactive"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "admin-1"})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.ChangeStatus(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestChangeStatus_InvalidStatus(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := handlers.NewTestRequest(t, "PUT", "/accounts/acc-2/status", handlers.ChangeStatusRequest{Status: "banned"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-2"})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.ChangeStatus(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestChangePlan(t *testing.T) {
	end := handlerNow.Add(30 * 24 * time.Hour)
	svc := &handlers.MockAccountService{
		ChangePlanFunc: func(ctx context.Context, id string, plan models.Plan, gotEnd *time.Time) (*models.Account, error) {
			require.NotNil(t, gotEnd)
			assert.True(t, end.Equal(*gotEnd))
			a := testAccount(id)
			a.Plan = plan
			a.SubscriptionEnd = gotEnd
			return a, nil
		},
	}
	h := newAccountHandler(svc)

	req := handlers.NewTestRequest(t, "PUT", "/accounts/acc-2/plan", handlers.ChangePlanRequest{Plan: "enterprise", SubscriptionEnd: &end})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-2"})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.ChangePlan(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, models.PlanEnterprise, resp.Plan)
}

func TestAddAdminNote_ConcurrentModification(t *testing.T) {
	svc := &handlers.MockAccountService{
		AddAdminNoteFunc: func(ctx context.Context, id, note string) (*models.Account, error) {
			return nil, models.ErrConcurrentModification
		},
	}
	h := newAccountHandler(svc)

	req := handlers.NewTestRequest(t, "POST", "/accounts/acc-2/notes", handlers.AdminNoteRequest{Note: "called support"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-2"})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.AddAdminNote(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestRecordActivity(t *testing.T) {
	var gotAction models.AuditAction
	svc := &handlers.MockAccountService{
		RecordActivityFunc: func(ctx context.Context, id string, action models.AuditAction, details string, ip *string) (*models.Account, error) {
			gotAction = action
			a := testAccount(id)
			a.Activity.MessagesSent = 1
			return a, nil
		},
	}
	h := newAccountHandler(svc)

	req := handlers.NewTestRequest(t, "POST", "/accounts/acc-1/activity", handlers.RecordActivityRequest{Action: "message_sent"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.RecordActivity(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, models.AuditActionMessageSent, gotAction)
	assert.Equal(t, int64(1), resp.Activity.MessagesSent)
}

func TestRecordActivity_NotAnActivity(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := handlers.NewTestRequest(t, "POST", "/accounts/acc-1/activity", handlers.RecordActivityRequest{Action: "login"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.RecordActivity(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestUpdateProfile(t *testing.T) {
	svc := &handlers.MockAccountService{
		UpdateProfileFunc: func(ctx context.Context, id, first, last string, ip *string) (*models.Account, error) {
			a := testAccount(id)
			a.FirstName, a.LastName = first, last
			return a, nil
		},
	}
	h := newAccountHandler(svc)

	req := handlers.NewTestRequest(t, "PUT", "/accounts/acc-1/profile", handlers.UpdateProfileRequest{FirstName: "Grace", LastName: "Hopper"})
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.UpdateProfile(w, req)

	var resp handlers.AccountResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "Grace", resp.FirstName)
	assert.Equal(t, "Hopper", resp.LastName)
}
