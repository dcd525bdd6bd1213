package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"trustdocs/internal/model"
	"trustdocs/internal/repository"
)

// AuditPostgres is a PostgreSQL implementation of repository.AuditRepository.
// Rows are append-only; there is no update or delete path.
type AuditPostgres struct {
	db *sql.DB
}

func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

// InsertBatch writes a batch of events in a single multi-row insert.
func (r *AuditPostgres) InsertBatch(ctx context.Context, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	const cols = 11
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*cols)
	for i, ev := range events {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		details, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("encode details for event %s: %w", ev.ID, err)
		}
		args = append(args,
			ev.ID, ev.EventType, ev.Category, ev.Severity,
			ev.SubjectID, ev.ActorID, ev.CorrelationID, ev.ControlReference,
			details, ev.RetentionDays, ev.Timestamp,
		)
	}

	q := `INSERT INTO audit_events
		(id, event_type, category, severity, subject_id, actor_id, correlation_id, control_reference, details, retention_days, ts)
		VALUES ` + strings.Join(placeholders, ", ")

	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// ListByCorrelation returns the causally-related chain of events sharing a
// correlation id, in write order. Used by the admin surface.
func (r *AuditPostgres) ListByCorrelation(ctx context.Context, correlationID string) ([]model.AuditEvent, error) {
	const q = `
		SELECT id, event_type, category, severity, subject_id, actor_id, correlation_id,
		       control_reference, details, retention_days, ts
		FROM audit_events
		WHERE correlation_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, q, correlationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.AuditEvent, 0)
	for rows.Next() {
		var ev model.AuditEvent
		var details []byte
		if err := rows.Scan(
			&ev.ID, &ev.EventType, &ev.Category, &ev.Severity,
			&ev.SubjectID, &ev.ActorID, &ev.CorrelationID, &ev.ControlReference,
			&details, &ev.RetentionDays, &ev.Timestamp,
		); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &ev.Details); err != nil {
				return nil, fmt.Errorf("decode details: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
