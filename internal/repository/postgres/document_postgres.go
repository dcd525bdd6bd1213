package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trustdocs/internal/model"
	"trustdocs/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, owner_id, category_id, original_filename, size_bytes, mime_type,
		content_hash, file_extension, storage_location, encryption_key_id,
		validation_score, validation_details, threat_scan_status, status, approval_status,
		created_at, archived_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	var details []byte
	var archivedAt sql.NullTime
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.CategoryID,
		&d.OriginalFilename,
		&d.SizeBytes,
		&d.MimeType,
		&d.ContentHash,
		&d.FileExtension,
		&d.StorageLocation,
		&d.EncryptionKeyID,
		&d.ValidationScore,
		&details,
		&d.ThreatScanStatus,
		&d.Status,
		&d.ApprovalStatus,
		&d.CreatedAt,
		&archivedAt,
	); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &d.ValidationDetails); err != nil {
			return nil, fmt.Errorf("decode validation details: %w", err)
		}
	}
	if archivedAt.Valid {
		t := archivedAt.Time
		d.ArchivedAt = &t
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + documentColumns

	details, err := json.Marshal(doc.ValidationDetails)
	if err != nil {
		return nil, fmt.Errorf("encode validation details: %w", err)
	}

	var archivedAt sql.NullTime
	if doc.ArchivedAt != nil {
		archivedAt = sql.NullTime{Time: *doc.ArchivedAt, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerID,
		doc.CategoryID,
		doc.OriginalFilename,
		doc.SizeBytes,
		doc.MimeType,
		doc.ContentHash,
		doc.FileExtension,
		doc.StorageLocation,
		doc.EncryptionKeyID,
		doc.ValidationScore,
		details,
		doc.ThreatScanStatus,
		doc.Status,
		doc.ApprovalStatus,
		doc.CreatedAt,
		archivedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindActive returns non-archived documents in the (owner, category) slot.
func (r *DocumentPostgres) FindActive(ctx context.Context, ownerID, categoryID string) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1 AND category_id = $2 AND status = 'uploaded'
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, ownerID, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Archive marks a document archived. Already-archived rows are untouched.
func (r *DocumentPostgres) Archive(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE documents SET status = 'archived', archived_at = $2
		WHERE id = $1 AND status <> 'archived'
	`
	_, err := r.db.ExecContext(ctx, q, id, at)
	return err
}

// ActiveCategoryIDs returns the distinct categories satisfied by the owner's
// active, clean, pending-or-approved documents.
func (r *DocumentPostgres) ActiveCategoryIDs(ctx context.Context, ownerID string) ([]string, error) {
	const q = `
		SELECT DISTINCT category_id
		FROM documents
		WHERE owner_id = $1
		  AND status = 'uploaded'
		  AND threat_scan_status = 'clean'
		  AND approval_status IN ('pending', 'approved')
	`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByOwner returns the owner's documents matching the filter, newest first.
func (r *DocumentPostgres) ListByOwner(ctx context.Context, ownerID string, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where := []string{"owner_id = $1"}
	args := []any{ownerID}
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, pq.Limit, pq.Offset)
	q := `SELECT ` + documentColumns + ` FROM documents WHERE ` + cond +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}
