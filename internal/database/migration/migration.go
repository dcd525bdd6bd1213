package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_document_categories",
		SQL: `CREATE TABLE IF NOT EXISTS document_categories (
  id                TEXT        PRIMARY KEY,
  name              TEXT        NOT NULL,
  required_for_role TEXT        NOT NULL DEFAULT '',
  allowed_formats   JSONB       NOT NULL DEFAULT '[]',
  max_size_mb       INT         NOT NULL DEFAULT 0,
  is_active         BOOLEAN     NOT NULL DEFAULT TRUE
);`,
	},
	{
		Name: "seed_document_categories",
		SQL: `INSERT INTO document_categories (id, name, required_for_role, allowed_formats, max_size_mb, is_active) VALUES
  ('national_id_front', 'National ID (front)', 'contractor', '["jpg","jpeg","png","pdf"]', 10, TRUE),
  ('national_id_back',  'National ID (back)',  'contractor', '["jpg","jpeg","png","pdf"]', 10, TRUE),
  ('selfie_with_id',    'Selfie with ID',      'contractor', '["jpg","jpeg","png"]',       10, TRUE)
ON CONFLICT (id) DO NOTHING;`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                 UUID        PRIMARY KEY,
  owner_id           TEXT        NOT NULL,
  category_id        TEXT        NOT NULL REFERENCES document_categories (id),
  original_filename  TEXT        NOT NULL,
  size_bytes         BIGINT      NOT NULL CHECK (size_bytes >= 0),
  mime_type          TEXT        NOT NULL,
  content_hash       TEXT        NOT NULL,
  file_extension     TEXT        NOT NULL,
  storage_location   TEXT        NOT NULL UNIQUE,
  encryption_key_id  UUID        NOT NULL,
  validation_score   INT         NOT NULL CHECK (validation_score BETWEEN 0 AND 100),
  validation_details JSONB       NOT NULL DEFAULT '{}',
  threat_scan_status TEXT        NOT NULL,
  status             TEXT        NOT NULL,
  approval_status    TEXT        NOT NULL,
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  archived_at        TIMESTAMPTZ
);`,
	},
	{
		// Not unique: a replacement upload inserts the new row before the
		// prior occupant is archived, so two rows briefly share the slot.
		// Exclusivity is enforced by the intake lock.
		Name: "create_index_documents_active_slot",
		SQL: `CREATE INDEX IF NOT EXISTS idx_documents_active_slot
  ON documents (owner_id, category_id) WHERE status = 'uploaded';`,
	},
	{
		Name: "create_index_documents_owner",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents (owner_id, created_at DESC);`,
	},
	{
		Name: "create_table_encryption_keys",
		SQL: `CREATE TABLE IF NOT EXISTS encryption_keys (
  id          UUID        PRIMARY KEY,
  wrapped_key BYTEA       NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_audit_events",
		SQL: `CREATE TABLE IF NOT EXISTS audit_events (
  id                TEXT        PRIMARY KEY,
  event_type        TEXT        NOT NULL,
  category          TEXT        NOT NULL,
  severity          TEXT        NOT NULL,
  subject_id        TEXT        NOT NULL DEFAULT '',
  actor_id          TEXT        NOT NULL DEFAULT '',
  correlation_id    TEXT        NOT NULL DEFAULT '',
  control_reference TEXT        NOT NULL DEFAULT '',
  details           JSONB       NOT NULL DEFAULT '{}',
  retention_days    INT         NOT NULL,
  ts                TIMESTAMPTZ NOT NULL
);`,
	},
	{
		Name: "create_index_audit_events_correlation",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_events_correlation ON audit_events (correlation_id);`,
	},
	{
		Name: "create_index_audit_events_subject",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_events_subject ON audit_events (subject_id, ts DESC);`,
	},
	{
		Name: "create_table_verification_statuses",
		SQL: `CREATE TABLE IF NOT EXISTS verification_statuses (
  owner_id   TEXT        PRIMARY KEY,
  status     TEXT        NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs the schema
// steps if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	start := time.Now()

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.documents') IS NOT NULL").Scan(&exists); err != nil {
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.InfoContext(ctx, "schema already exists, skipping migration",
			"component", "database",
			"duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.ErrorContext(ctx, "migration step failed",
				"component", "database",
				"migration_step", step.Name,
				"error", err)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.InfoContext(ctx, "migration step applied",
			"component", "database",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	log.InfoContext(ctx, "migration complete",
		"component", "database",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
