package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/courier/internal/models"
	pkglogger "github.com/BradenHooton/courier/pkg/logger"
)

// ContactRepository defines the interface for contact data access
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Contact, error)
	List(ctx context.Context, ownerID string, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) (*models.Contact, error)
}

// ContactService manages the contacts owned by an account
type ContactService struct {
	repo     ContactRepository
	accounts *AccountService
	logger   *slog.Logger
}

// NewContactService creates a new ContactService
func NewContactService(repo ContactRepository, accounts *AccountService, logger *slog.Logger) *ContactService {
	return &ContactService{
		repo:     repo,
		accounts: accounts,
		logger:   logger,
	}
}

// Create stores a contact for ownerID and credits the owner with a
// contact_added activity
func (s *ContactService) Create(ctx context.Context, ownerID string, contact *models.Contact, ip *string) (*models.Contact, error) {
	now := s.accounts.Now()
	contact.ID = ""
	contact.CreatedBy = ownerID
	contact.UpdatedBy = nil
	contact.DeletedAt = nil
	contact.CreatedAt = now
	contact.UpdatedAt = now
	contact.Normalize()
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, contact)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.InfoContext(ctx, "contact already exists",
				slog.String("owner_id", ownerID),
				slog.String("phone", pkglogger.SanitizedPhone(contact.PhoneNumber)))
			return nil, models.ErrConflict
		}
		s.logger.ErrorContext(ctx, "failed to create contact",
			slog.String("owner_id", ownerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.accounts.RecordActivity(ctx, ownerID, models.AuditActionContactAdded, created.FullName(), ip); err != nil {
		s.logger.WarnContext(ctx, "failed to record contact activity",
			slog.String("owner_id", ownerID),
			slog.String("contact_id", created.ID),
			slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, "contact created",
		slog.String("owner_id", ownerID),
		slog.String("contact_id", created.ID))
	return created, nil
}

// Get retrieves one contact of ownerID
func (s *ContactService) Get(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	c, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get contact",
			slog.String("contact_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return c, nil
}

// List retrieves contacts of ownerID matching filter, newest first
func (s *ContactService) List(ctx context.Context, ownerID string, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	contacts, err := s.repo.List(ctx, ownerID, filter, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list contacts",
			slog.String("owner_id", ownerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return contacts, nil
}

// Delete archives a contact. Deleting an archived contact is a not-found.
func (s *ContactService) Delete(ctx context.Context, ownerID, id string) error {
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if c.IsDeleted() {
		return models.ErrNotFound
	}

	c.SoftDelete(s.accounts.Now())
	c.UpdatedBy = &ownerID
	if _, err := s.repo.Update(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete contact",
			slog.String("contact_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "contact deleted", slog.String("contact_id", id))
	return nil
}

// Restore reverses Delete
func (s *ContactService) Restore(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !c.IsDeleted() {
		return nil, &models.ValidationError{Errors: []string{"contact is not deleted"}}
	}

	c.Restore(s.accounts.Now())
	c.UpdatedBy = &ownerID
	restored, err := s.repo.Update(ctx, c)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to restore contact",
			slog.String("contact_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return restored, nil
}
