package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/models"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ContactServiceInterface defines the contact operations exposed over HTTP
type ContactServiceInterface interface {
	Create(ctx context.Context, ownerID string, contact *models.Contact, ip *string) (*models.Contact, error)
	Get(ctx context.Context, ownerID, id string) (*models.Contact, error)
	List(ctx context.Context, ownerID string, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error)
	Delete(ctx context.Context, ownerID, id string) error
	Restore(ctx context.Context, ownerID, id string) (*models.Contact, error)
}

// ContactHandler handles contact HTTP requests for the calling account
type ContactHandler struct {
	service  ContactServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactServiceInterface, ipConfig *pkghttp.IPConfig) *ContactHandler {
	return &ContactHandler{service: service, ipConfig: ipConfig}
}

// CreateContactRequest represents the request body for adding a contact
type CreateContactRequest struct {
	PhoneNumber    string            `json:"phone_number" validate:"required,e164"`
	FirstName      *string           `json:"first_name" validate:"omitempty,max=50"`
	LastName       *string           `json:"last_name" validate:"omitempty,max=50"`
	DisplayName    *string           `json:"display_name" validate:"omitempty,max=100"`
	Email          *string           `json:"email" validate:"omitempty,email"`
	ProfilePicture *string           `json:"profile_picture" validate:"omitempty,url"`
	Status         string            `json:"status" validate:"omitempty,oneof=active inactive blocked archived"`
	IsWhatsAppUser bool              `json:"is_whatsapp_user"`
	IsFavorite     bool              `json:"is_favorite"`
	Tags           []string          `json:"tags" validate:"omitempty,dive,max=50"`
	Notes          string            `json:"notes" validate:"max=1000"`
	CustomFields   map[string]string `json:"custom_fields"`
}

// ContactResponse represents a contact in the HTTP response
type ContactResponse struct {
	ID             string            `json:"id"`
	PhoneNumber    string            `json:"phone_number"`
	FirstName      *string           `json:"first_name,omitempty"`
	LastName       *string           `json:"last_name,omitempty"`
	DisplayName    *string           `json:"display_name,omitempty"`
	FullName       string            `json:"full_name"`
	Email          *string           `json:"email,omitempty"`
	ProfilePicture *string           `json:"profile_picture,omitempty"`
	Status         string            `json:"status"`
	IsWhatsAppUser bool              `json:"is_whatsapp_user"`
	LastSeen       *time.Time        `json:"last_seen,omitempty"`
	IsFavorite     bool              `json:"is_favorite"`
	Tags           []string          `json:"tags"`
	Notes          string            `json:"notes,omitempty"`
	CustomFields   map[string]string `json:"custom_fields,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      *time.Time        `json:"deleted_at,omitempty"`
}

// ListContactsResponse represents a page of contacts
type ListContactsResponse struct {
	Contacts []*ContactResponse `json:"contacts"`
	Total    int                `json:"total"`
}

func contactModelToResponse(c *models.Contact) *ContactResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return &ContactResponse{
		ID:             c.ID,
		PhoneNumber:    c.PhoneNumber,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		DisplayName:    c.DisplayName,
		FullName:       c.FullName(),
		Email:          c.Email,
		ProfilePicture: c.ProfilePicture,
		Status:         string(c.Status),
		IsWhatsAppUser: c.IsWhatsAppUser,
		LastSeen:       c.LastSeen,
		IsFavorite:     c.IsFavorite,
		Tags:           tags,
		Notes:          c.Notes,
		CustomFields:   c.CustomFields,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		DeletedAt:      c.DeletedAt,
	}
}

// CreateContact adds a contact for the caller
//
// @Summary Create contact
// @Accept json
// @Param request body CreateContactRequest true "Contact"
// @Produce json
// @Success 201 {object} ContactResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /contacts [post]
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req CreateContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contact := &models.Contact{
		PhoneNumber:    req.PhoneNumber,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DisplayName:    req.DisplayName,
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
		Status:         models.ContactStatus(req.Status),
		IsWhatsAppUser: req.IsWhatsAppUser,
		IsFavorite:     req.IsFavorite,
		Tags:           req.Tags,
		Notes:          req.Notes,
		CustomFields:   req.CustomFields,
	}

	ip := optionalString(pkghttp.ExtractClientIP(r, h.ipConfig))
	created, err := h.service.Create(r.Context(), claims.AccountID, contact, ip)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contactModelToResponse(created))
}

// ListContacts lists the caller's contacts
//
// @Summary List contacts
// @Param status query string false "Status"
// @Param tag query string false "Tag"
// @Param search query string false "Name, phone or email substring"
// @Param favorites query bool false "Favorites only"
// @Param include_deleted query bool false "Include archived contacts"
// @Produce json
// @Success 200 {object} ListContactsResponse
// @Router /contacts [get]
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	limit, offset, err := pagination(r, 20, 100)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	q := r.URL.Query()
	filter := models.ContactFilter{
		Status: models.ContactStatus(q.Get("status")),
		Tag:    q.Get("tag"),
		Search: q.Get("search"),
	}
	if filter.FavoritesOnly, err = parseBoolParam(q.Get("favorites")); err != nil {
		pkghttp.WriteBadRequest(w, "invalid favorites parameter")
		return
	}
	if filter.IncludeDeleted, err = parseBoolParam(q.Get("include_deleted")); err != nil {
		pkghttp.WriteBadRequest(w, "invalid include_deleted parameter")
		return
	}

	contacts, err := h.service.List(r.Context(), claims.AccountID, filter, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := &ListContactsResponse{Contacts: make([]*ContactResponse, 0, len(contacts))}
	for _, c := range contacts {
		resp.Contacts = append(resp.Contacts, contactModelToResponse(c))
	}
	resp.Total = len(resp.Contacts)
	writeJSON(w, http.StatusOK, resp)
}

// GetContact retrieves one of the caller's contacts
//
// @Summary Get contact
// @Router /contacts/{id} [get]
func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	c, err := h.service.Get(r.Context(), claims.AccountID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contactModelToResponse(c))
}

// DeleteContact archives one of the caller's contacts
//
// @Summary Delete contact
// @Success 204
// @Router /contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.service.Delete(r.Context(), claims.AccountID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreContact brings back an archived contact
//
// @Summary Restore contact
// @Router /contacts/{id}/restore [post]
func (h *ContactHandler) RestoreContact(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	c, err := h.service.Restore(r.Context(), claims.AccountID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contactModelToResponse(c))
}

func parseBoolParam(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
