package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/courier/internal/models"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
)

// AuditTrailResponse represents a page of audit entries
type AuditTrailResponse struct {
	Entries []models.AuditEntry `json:"entries"`
	Count   int                 `json:"count"`
}

// AuditTrail returns the account's audit entries
//
// @Summary Account audit trail
// @Param id path string true "Account ID"
// @Param action query string false "Comma-separated actions"
// @Param from query string false "RFC3339 lower bound (inclusive)"
// @Param to query string false "RFC3339 upper bound (exclusive)"
// @Produce json
// @Success 200 {object} AuditTrailResponse
// @Router /accounts/{id}/audit [get]
func (h *AccountHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	filter, err := parseAuditFilter(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	limit, offset, err := pagination(r, 50, 500)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	entries, err := h.service.AuditTrail(r.Context(), id, filter, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditTrailResponse{Entries: entries, Count: len(entries)})
}

// AuditSummary tallies the account's audit entries per action
//
// @Summary Account audit summary
// @Param id path string true "Account ID"
// @Produce json
// @Router /accounts/{id}/audit/summary [get]
func (h *AccountHandler) AuditSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	counts, err := h.audit.Summary(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func parseAuditFilter(r *http.Request) (models.AuditFilter, error) {
	var filter models.AuditFilter
	q := r.URL.Query()

	if raw := q.Get("action"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			action, err := models.ParseAuditAction(strings.TrimSpace(name))
			if err != nil {
				return filter, err
			}
			filter.Actions = append(filter.Actions, action)
		}
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	return filter, nil
}
