package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/models"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
	"github.com/go-chi/chi/v5"
)

// TemplateServiceInterface defines the template operations exposed over HTTP
type TemplateServiceInterface interface {
	Create(ctx context.Context, ownerID string, t *models.Template, ip *string) (*models.Template, error)
	Get(ctx context.Context, ownerID, id string) (*models.Template, error)
	List(ctx context.Context, ownerID, status string, limit, offset int) ([]*models.Template, error)
	Render(ctx context.Context, ownerID, id string, values map[string]string) (string, error)
}

// TemplateHandler handles message template HTTP requests
type TemplateHandler struct {
	service  TemplateServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(service TemplateServiceInterface, ipConfig *pkghttp.IPConfig) *TemplateHandler {
	return &TemplateHandler{service: service, ipConfig: ipConfig}
}

// CreateTemplateRequest represents the request body for a new template
type CreateTemplateRequest struct {
	Name        string                     `json:"name" validate:"required,max=100"`
	Description *string                    `json:"description" validate:"omitempty,max=500"`
	Category    string                     `json:"category" validate:"omitempty,oneof=greeting marketing support notification reminder other"`
	MessageType string                     `json:"message_type" validate:"omitempty,oneof=text interactive"`
	Content     *string                    `json:"content" validate:"omitempty,max=4096"`
	Interactive *models.InteractiveMessage `json:"interactive"`
	Variables   []models.TemplateVariable  `json:"variables" validate:"omitempty,dive"`
	Language    string                     `json:"language" validate:"omitempty,max=10"`
	Status      string                     `json:"status" validate:"omitempty,oneof=draft active inactive"`
	Tags        []string                   `json:"tags" validate:"omitempty,dive,max=50"`
	Metadata    models.TemplateMetadata    `json:"metadata"`
}

// RenderTemplateRequest carries the variable values
type RenderTemplateRequest struct {
	Values map[string]string `json:"values"`
}

// RenderTemplateResponse is the rendered message text
type RenderTemplateResponse struct {
	Content string `json:"content"`
}

// TemplateResponse represents a template in the HTTP response
type TemplateResponse struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Description *string                    `json:"description,omitempty"`
	Category    string                     `json:"category"`
	MessageType string                     `json:"message_type"`
	Content     *string                    `json:"content,omitempty"`
	Interactive *models.InteractiveMessage `json:"interactive,omitempty"`
	Variables   []models.TemplateVariable  `json:"variables"`
	Language    string                     `json:"language"`
	Status      string                     `json:"status"`
	Tags        []string                   `json:"tags"`
	Metadata    models.TemplateMetadata    `json:"metadata"`
	Preview     string                     `json:"preview"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

func templateModelToResponse(t *models.Template) *TemplateResponse {
	resp := &TemplateResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		MessageType: t.MessageType,
		Content:     t.Content,
		Interactive: t.Interactive,
		Variables:   t.Variables,
		Language:    t.Language,
		Status:      t.Status,
		Tags:        t.Tags,
		Metadata:    t.Metadata,
		Preview:     t.Preview(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if resp.Variables == nil {
		resp.Variables = []models.TemplateVariable{}
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}

// CreateTemplate stores a template for the caller
//
// @Summary Create template
// @Accept json
// @Param request body CreateTemplateRequest true "Template"
// @Produce json
// @Success 201 {object} TemplateResponse
// @Failure 422 {object} pkghttp.ErrorResponse
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req CreateTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tmpl := &models.Template{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		MessageType: req.MessageType,
		Content:     req.Content,
		Interactive: req.Interactive,
		Variables:   req.Variables,
		Language:    req.Language,
		Status:      req.Status,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	}

	ip := optionalString(pkghttp.ExtractClientIP(r, h.ipConfig))
	created, err := h.service.Create(r.Context(), claims.AccountID, tmpl, ip)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, templateModelToResponse(created))
}

// ListTemplates lists the caller's templates
//
// @Summary List templates
// @Param status query string false "draft, active or inactive"
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
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

	templates, err := h.service.List(r.Context(), claims.AccountID, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]*TemplateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateModelToResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": out, "total": len(out)})
}

// GetTemplate retrieves one of the caller's templates
//
// @Summary Get template
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	t, err := h.service.Get(r.Context(), claims.AccountID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templateModelToResponse(t))
}

// RenderTemplate fills a template's variables
//
// @Summary Render template
// @Accept json
// @Param request body RenderTemplateRequest true "Variable values"
// @Produce json
// @Success 200 {object} RenderTemplateResponse
// @Router /templates/{id}/render [post]
func (h *TemplateHandler) RenderTemplate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req RenderTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	content, err := h.service.Render(r.Context(), claims.AccountID, chi.URLParam(r, "id"), req.Values)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderTemplateResponse{Content: content})
}
