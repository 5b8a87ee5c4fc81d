package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/models"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	pkghttp.WriteJSON(w, status, v)
}

// writeServiceError maps service and domain errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		unknownFeature *models.UnknownFeatureError
		unknownAction  *models.UnknownAuditActionError
		invalidValue   *models.InvalidValueError
		validation     *models.ValidationError
	)

	switch {
	case errors.As(err, &validation):
		pkghttp.WriteUnprocessable(w, "Validation failed", strings.Join(validation.Errors, "; "))
	case errors.As(err, &unknownFeature),
		errors.As(err, &unknownAction),
		errors.As(err, &invalidValue):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrInvalidIncrement), errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Forbidden")
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteLocked(w, "Account is temporarily locked. Please try again later.")
	case errors.Is(err, models.ErrAccountSuspended),
		errors.Is(err, models.ErrAccountInactive),
		errors.Is(err, models.ErrAccountDeleted):
		pkghttp.WriteForbidden(w, err.Error())
	case errors.Is(err, models.ErrNoOpenSession), errors.Is(err, models.ErrSessionAlreadyOpen):
		pkghttp.WriteConflict(w, err.Error())
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrConcurrentModification):
		pkghttp.WriteConflict(w, "The account was modified concurrently. Please retry.")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// normalizer is implemented by requests that clean up their fields before validation
type normalizer interface {
	normalize()
}

// decodeAndValidate reads a JSON body into req and runs struct validation.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// pagination reads limit and offset query parameters
func pagination(r *http.Request, defaultLimit, maxLimit int) (int, int, error) {
	limit := defaultLimit
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > maxLimit {
			return 0, 0, errors.New("invalid limit parameter")
		}
		limit = n
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			return 0, 0, errors.New("invalid offset parameter")
		}
		offset = n
	}
	return limit, offset, nil
}

// checkAccountAccess allows an account to reach its own resources and admins
// to reach any account
func checkAccountAccess(r *http.Request, accountID string) error {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		return models.ErrUnauthorized
	}
	if claims.AccountID == accountID || claims.Role == models.RoleAdmin {
		return nil
	}
	return models.ErrForbidden
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
