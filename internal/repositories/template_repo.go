package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BradenHooton/courier/internal/database"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// TemplateRepository stores message templates
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *database.DB) *TemplateRepository {
	return &TemplateRepository{pool: db.Pool}
}

const templateColumns = `
	id, name, description, category, message_type, content, interactive, variables,
	language, status, tags, metadata, created_by, updated_by, created_at, updated_at`

func scanTemplateRow(scanner rowScanner) (*models.Template, error) {
	var t models.Template
	var interactive, variables, metadata []byte

	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.Category, &t.MessageType, &t.Content, &interactive, &variables,
		&t.Language, &t.Status, pq.Array(&t.Tags), &metadata, &t.CreatedBy, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if len(interactive) > 0 && string(interactive) != "null" {
		t.Interactive = &models.InteractiveMessage{}
		if err := json.Unmarshal(interactive, t.Interactive); err != nil {
			return nil, fmt.Errorf("decode interactive message: %w", err)
		}
	}
	if err := json.Unmarshal(variables, &t.Variables); err != nil {
		return nil, fmt.Errorf("decode template variables: %w", err)
	}
	if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
		return nil, fmt.Errorf("decode template metadata: %w", err)
	}

	return &t, nil
}

// Create stores a new template
func (r *TemplateRepository) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	var interactive []byte
	if t.Interactive != nil {
		var err error
		if interactive, err = json.Marshal(t.Interactive); err != nil {
			return nil, fmt.Errorf("encode interactive message: %w", err)
		}
	}
	variables := t.Variables
	if variables == nil {
		variables = []models.TemplateVariable{}
	}
	encodedVariables, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("encode template variables: %w", err)
	}
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode template metadata: %w", err)
	}

	query := `
		INSERT INTO templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + templateColumns

	return scanTemplateRow(r.pool.QueryRow(ctx, query,
		t.ID, t.Name, t.Description, t.Category, t.MessageType, t.Content, interactive, encodedVariables,
		t.Language, t.Status, pq.Array(nonNilTags(t.Tags)), metadata, t.CreatedBy, t.UpdatedBy, t.CreatedAt, t.UpdatedAt,
	))
}

// GetByID returns a template owned by ownerID
func (r *TemplateRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Template, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1 AND created_by = $2`
	return scanTemplateRow(r.pool.QueryRow(ctx, query, id, ownerID))
}

// List returns the owner's templates, newest first. An empty status matches
// every status.
func (r *TemplateRepository) List(ctx context.Context, ownerID, status string, limit, offset int) ([]*models.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM templates
		WHERE created_by = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, ownerID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	return scanTemplateRows(rows)
}

func scanTemplateRows(rows pgx.Rows) ([]*models.Template, error) {
	defer rows.Close()

	templates := make([]*models.Template, 0)
	for rows.Next() {
		t, err := scanTemplateRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return templates, nil
}
