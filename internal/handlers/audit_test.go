package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/courier/internal/handlers"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditTrail_Filters(t *testing.T) {
	var (
		gotFilter models.AuditFilter
		gotLimit  int
		gotOffset int
	)
	svc := &handlers.MockAccountService{
		AuditTrailFunc: func(ctx context.Context, id string, filter models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
			gotFilter, gotLimit, gotOffset = filter, limit, offset
			return []models.AuditEntry{{Seq: 4, Action: models.AuditActionLogin, Timestamp: handlerNow}}, nil
		},
	}
	h := newAccountHandler(svc)

	url := "/accounts/acc-1/audit?action=login,logout&from=2026-03-01T00:00:00Z&to=2026-03-15T00:00:00Z&offset=5"
	req := httptest.NewRequest("GET", url, nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.AuditTrail(w, req)

	var resp handlers.AuditTrailResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, []models.AuditAction{models.AuditActionLogin, models.AuditActionLogout}, gotFilter.Actions)
	require.NotNil(t, gotFilter.From)
	require.NotNil(t, gotFilter.To)
	assert.True(t, gotFilter.From.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 50, gotLimit)
	assert.Equal(t, 5, gotOffset)
}

func TestAuditTrail_BadQuery(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	for _, q := range []string{"action=teleported", "from=yesterday", "to=2026-13-01", "limit=501"} {
		req := httptest.NewRequest("GET", "/accounts/acc-1/audit?"+q, nil)
		req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1"})
		req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

		w := httptest.NewRecorder()
		h.AuditTrail(w, req)

		handlers.AssertErrorResponse(t, w, 400, "bad_request")
	}
}

func TestAuditTrail_Forbidden(t *testing.T) {
	h := newAccountHandler(&handlers.MockAccountService{})

	req := httptest.NewRequest("GET", "/accounts/acc-2/audit", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-2"})
	req = handlers.WithAuthContext(req, "acc-1", models.RoleUser)

	w := httptest.NewRecorder()
	h.AuditTrail(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestAuditSummary(t *testing.T) {
	svc := &handlers.MockAccountService{
		SummaryFunc: func(ctx context.Context, id string) (map[models.AuditAction]int64, error) {
			return map[models.AuditAction]int64{models.AuditActionLogin: 3, models.AuditActionAccountCreated: 1}, nil
		},
	}
	h := newAccountHandler(svc)

	req := httptest.NewRequest("GET", "/accounts/acc-1/audit/summary", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "acc-1"})
	req = handlers.WithAuthContext(req, "admin-1", models.RoleAdmin)

	w := httptest.NewRecorder()
	h.AuditSummary(w, req)

	var resp map[string]int64
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, int64(3), resp["login"])
	assert.Equal(t, int64(1), resp["account_created"])
}
