package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/courier/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"bad request", func(w http.ResponseWriter) { pkghttp.WriteBadRequest(w, "msg") }, 400, "bad_request"},
		{"unauthorized", func(w http.ResponseWriter) { pkghttp.WriteUnauthorized(w, "msg") }, 401, "unauthorized"},
		{"forbidden", func(w http.ResponseWriter) { pkghttp.WriteForbidden(w, "msg") }, 403, "forbidden"},
		{"not found", func(w http.ResponseWriter) { pkghttp.WriteNotFound(w, "msg") }, 404, "not_found"},
		{"conflict", func(w http.ResponseWriter) { pkghttp.WriteConflict(w, "msg") }, 409, "conflict"},
		{"locked", func(w http.ResponseWriter) { pkghttp.WriteLocked(w, "msg") }, 423, "account_locked"},
		{"too many requests", func(w http.ResponseWriter) { pkghttp.WriteTooManyRequests(w, "msg") }, 429, "rate_limit_exceeded"},
		{"internal", func(w http.ResponseWriter) { pkghttp.WriteInternalError(w, "msg") }, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.Equal(t, "msg", resp.Message)
			assert.Empty(t, resp.Details)
		})
	}
}

func TestWriteUnprocessable(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteUnprocessable(w, "Validation failed", "name is required; phone is invalid")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, pkghttp.CodeValidationFailed, resp.Error)
	assert.Equal(t, "name is required; phone is invalid", resp.Details)
}

func TestErrorResponse_OmitsEmptyDetails(t *testing.T) {
	data, err := json.Marshal(pkghttp.ErrorResponse{Error: "conflict", Message: "exists"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"conflict","message":"exists"}`, string(data))
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, http.StatusCreated, map[string]int{"count": 2})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}
