package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/courier/internal/models"
)

// TemplateRepository defines the interface for template data access
type TemplateRepository interface {
	Create(ctx context.Context, t *models.Template) (*models.Template, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Template, error)
	List(ctx context.Context, ownerID, status string, limit, offset int) ([]*models.Template, error)
}

// TemplateService manages message templates owned by an account
type TemplateService struct {
	repo     TemplateRepository
	accounts *AccountService
	logger   *slog.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(repo TemplateRepository, accounts *AccountService, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		repo:     repo,
		accounts: accounts,
		logger:   logger,
	}
}

// Create stores a template for ownerID and credits the owner with a
// template_created activity
func (s *TemplateService) Create(ctx context.Context, ownerID string, t *models.Template, ip *string) (*models.Template, error) {
	now := s.accounts.Now()
	t.ID = ""
	t.CreatedBy = ownerID
	t.UpdatedBy = nil
	t.CreatedAt = now
	t.UpdatedAt = now
	t.ApplyDefaults()
	if errs := t.Validate(); len(errs) > 0 {
		return nil, &models.ValidationError{Errors: errs}
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create template",
			slog.String("owner_id", ownerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.accounts.RecordActivity(ctx, ownerID, models.AuditActionTemplateCreated, created.Name, ip); err != nil {
		s.logger.WarnContext(ctx, "failed to record template activity",
			slog.String("owner_id", ownerID),
			slog.String("template_id", created.ID),
			slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, "template created",
		slog.String("owner_id", ownerID),
		slog.String("template_id", created.ID))
	return created, nil
}

// Get retrieves one template of ownerID
func (s *TemplateService) Get(ctx context.Context, ownerID, id string) (*models.Template, error) {
	t, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get template",
			slog.String("template_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return t, nil
}

// List retrieves templates of ownerID, optionally narrowed to one status
func (s *TemplateService) List(ctx context.Context, ownerID, status string, limit, offset int) ([]*models.Template, error) {
	switch status {
	case "", models.TemplateStatusDraft, models.TemplateStatusActive, models.TemplateStatusInactive:
	default:
		return nil, &models.InvalidValueError{Field: "template status", Value: status}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	templates, err := s.repo.List(ctx, ownerID, status, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list templates",
			slog.String("owner_id", ownerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return templates, nil
}

// Render fills the template's declared variables. Every required variable
// must have a value.
func (s *TemplateService) Render(ctx context.Context, ownerID, id string, values map[string]string) (string, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, v := range t.Variables {
		if _, ok := values[v.Name]; v.Required && !ok {
			missing = append(missing, "missing required variable "+v.Name)
		}
	}
	if len(missing) > 0 {
		return "", &models.ValidationError{Errors: missing}
	}
	return t.Render(values), nil
}
