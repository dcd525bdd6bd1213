package postgres

import (
	"context"
	"database/sql"

	"trustdocs/internal/model"
	"trustdocs/internal/repository"
)

// VerificationPostgres is a PostgreSQL implementation of
// repository.VerificationRepository.
type VerificationPostgres struct {
	db *sql.DB
}

func NewVerificationPostgres(db *sql.DB) *VerificationPostgres {
	return &VerificationPostgres{db: db}
}

var _ repository.VerificationRepository = (*VerificationPostgres)(nil)

// Get returns the owner's status row.
func (r *VerificationPostgres) Get(ctx context.Context, ownerID string) (*model.VerificationStatus, error) {
	const q = `SELECT owner_id, status, updated_at FROM verification_statuses WHERE owner_id = $1`
	var vs model.VerificationStatus
	if err := r.db.QueryRowContext(ctx, q, ownerID).Scan(&vs.OwnerID, &vs.Status, &vs.UpdatedAt); err != nil {
		return nil, err
	}
	return &vs, nil
}

// Upsert creates or replaces the owner's status row.
func (r *VerificationPostgres) Upsert(ctx context.Context, vs *model.VerificationStatus) error {
	const q = `
		INSERT INTO verification_statuses (owner_id, status, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, q, vs.OwnerID, vs.Status, vs.UpdatedAt)
	return err
}
