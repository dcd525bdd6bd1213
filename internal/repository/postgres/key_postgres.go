package postgres

import (
	"context"
	"database/sql"
	"time"

	"trustdocs/internal/repository"
)

// KeyPostgres is a PostgreSQL implementation of repository.KeyRepository.
// It stores wrapped per-document data keys; deleting a row crypto-shreds the
// corresponding ciphertext.
type KeyPostgres struct {
	db *sql.DB
}

func NewKeyPostgres(db *sql.DB) *KeyPostgres {
	return &KeyPostgres{db: db}
}

var _ repository.KeyRepository = (*KeyPostgres)(nil)

func (r *KeyPostgres) Insert(ctx context.Context, id string, wrappedKey []byte) error {
	const q = `INSERT INTO encryption_keys (id, wrapped_key, created_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, q, id, wrappedKey, time.Now().UTC())
	return err
}

func (r *KeyPostgres) Find(ctx context.Context, id string) ([]byte, error) {
	const q = `SELECT wrapped_key FROM encryption_keys WHERE id = $1`
	var wrapped []byte
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&wrapped); err != nil {
		return nil, err
	}
	return wrapped, nil
}

func (r *KeyPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM encryption_keys WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
