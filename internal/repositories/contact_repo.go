package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BradenHooton/courier/internal/database"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// ContactRepository stores contacts owned by accounts
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *database.DB) *ContactRepository {
	return &ContactRepository{pool: db.Pool}
}

const contactColumns = `
	id, phone_number, first_name, last_name, display_name, email, profile_picture,
	status, is_whatsapp_user, last_seen, is_favorite, tags, notes, custom_fields,
	created_by, updated_by, created_at, updated_at, deleted_at`

func scanContactRow(scanner rowScanner) (*models.Contact, error) {
	var c models.Contact
	var customFields []byte

	err := scanner.Scan(
		&c.ID, &c.PhoneNumber, &c.FirstName, &c.LastName, &c.DisplayName, &c.Email, &c.ProfilePicture,
		&c.Status, &c.IsWhatsAppUser, &c.LastSeen, &c.IsFavorite, pq.Array(&c.Tags), &c.Notes, &customFields,
		&c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &c.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
	}

	return &c, nil
}

func scanContactRows(rows pgx.Rows) ([]*models.Contact, error) {
	defer rows.Close()

	contacts := make([]*models.Contact, 0)
	for rows.Next() {
		c, err := scanContactRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return contacts, nil
}

// Create stores a new contact. A second contact with the same phone number
// for the same owner yields ErrConflict.
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	customFields, err := json.Marshal(nonNilFields(contact.CustomFields))
	if err != nil {
		return nil, fmt.Errorf("encode custom fields: %w", err)
	}

	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING ` + contactColumns

	return scanContactRow(r.pool.QueryRow(ctx, query,
		contact.ID, contact.PhoneNumber, contact.FirstName, contact.LastName, contact.DisplayName,
		contact.Email, contact.ProfilePicture, contact.Status, contact.IsWhatsAppUser, contact.LastSeen,
		contact.IsFavorite, pq.Array(nonNilTags(contact.Tags)), contact.Notes, customFields,
		contact.CreatedBy, contact.UpdatedBy, contact.CreatedAt, contact.UpdatedAt, contact.DeletedAt,
	))
}

// GetByID returns a contact owned by ownerID, including soft-deleted ones
func (r *ContactRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND created_by = $2`
	return scanContactRow(r.pool.QueryRow(ctx, query, id, ownerID))
}

// List returns the owner's contacts matching filter, newest first
func (r *ContactRepository) List(ctx context.Context, ownerID string, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error) {
	conditions := []string{"created_by = $1"}
	args := []any{ownerID}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.FavoritesOnly {
		conditions = append(conditions, "is_favorite")
	}
	if filter.Tag != "" {
		args = append(args, pq.Array([]string{filter.Tag}))
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(COALESCE(first_name, '') || ' ' || COALESCE(last_name, '')) LIKE $%d OR LOWER(COALESCE(display_name, '')) LIKE $%d OR phone_number LIKE $%d OR LOWER(COALESCE(email, '')) LIKE $%d)",
			n, n, n, n))
	}

	args = append(args, limit, offset)
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE ` + strings.Join(conditions, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	return scanContactRows(rows)
}

// Update persists the mutable contact fields
func (r *ContactRepository) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	customFields, err := json.Marshal(nonNilFields(contact.CustomFields))
	if err != nil {
		return nil, fmt.Errorf("encode custom fields: %w", err)
	}

	query := `
		UPDATE contacts SET
			phone_number = $1, first_name = $2, last_name = $3, display_name = $4, email = $5,
			profile_picture = $6, status = $7, is_whatsapp_user = $8, last_seen = $9, is_favorite = $10,
			tags = $11, notes = $12, custom_fields = $13, updated_by = $14, updated_at = $15, deleted_at = $16
		WHERE id = $17 AND created_by = $18
		RETURNING ` + contactColumns

	return scanContactRow(r.pool.QueryRow(ctx, query,
		contact.PhoneNumber, contact.FirstName, contact.LastName, contact.DisplayName, contact.Email,
		contact.ProfilePicture, contact.Status, contact.IsWhatsAppUser, contact.LastSeen, contact.IsFavorite,
		pq.Array(nonNilTags(contact.Tags)), contact.Notes, customFields, contact.UpdatedBy, contact.UpdatedAt,
		contact.DeletedAt, contact.ID, contact.CreatedBy,
	))
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nonNilFields(fields map[string]string) map[string]string {
	if fields == nil {
		return map[string]string{}
	}
	return fields
}
