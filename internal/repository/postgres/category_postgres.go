package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"trustdocs/internal/model"
	"trustdocs/internal/repository"
)

// CategoryPostgres is a PostgreSQL implementation of repository.CategoryRepository.
type CategoryPostgres struct {
	db *sql.DB
}

func NewCategoryPostgres(db *sql.DB) *CategoryPostgres {
	return &CategoryPostgres{db: db}
}

var _ repository.CategoryRepository = (*CategoryPostgres)(nil)

const categoryColumns = `id, name, required_for_role, allowed_formats, max_size_mb, is_active`

func scanCategory(row interface{ Scan(...any) error }) (*model.DocumentCategory, error) {
	var c model.DocumentCategory
	var formats []byte
	if err := row.Scan(&c.ID, &c.Name, &c.RequiredForRole, &formats, &c.MaxSizeMB, &c.IsActive); err != nil {
		return nil, err
	}
	if len(formats) > 0 {
		if err := json.Unmarshal(formats, &c.AllowedFormats); err != nil {
			return nil, fmt.Errorf("decode allowed formats: %w", err)
		}
	}
	return &c, nil
}

// FindByID returns a category by id.
func (r *CategoryPostgres) FindByID(ctx context.Context, id string) (*model.DocumentCategory, error) {
	const q = `SELECT ` + categoryColumns + ` FROM document_categories WHERE id = $1`
	return scanCategory(r.db.QueryRowContext(ctx, q, id))
}

// ListRequired returns active categories required for the given role.
func (r *CategoryPostgres) ListRequired(ctx context.Context, role string) ([]model.DocumentCategory, error) {
	const q = `
		SELECT ` + categoryColumns + `
		FROM document_categories
		WHERE required_for_role = $1 AND is_active
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, q, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := make([]model.DocumentCategory, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *c)
	}
	return cats, rows.Err()
}
