package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustdocs/internal/model"
)

func TestAuditPostgres_InsertBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuditPostgres(db)
	now := time.Now().UTC()

	events := []model.AuditEvent{
		{
			ID:            "ev-1",
			EventType:     "document.uploaded",
			Category:      model.AuditDocument,
			Severity:      model.SeverityLow,
			SubjectID:     "doc-1",
			ActorID:       "owner-1",
			CorrelationID: "corr-1",
			Details:       map[string]string{"category_id": "national_id_front"},
			RetentionDays: model.DefaultRetentionDays,
			Timestamp:     now,
		},
		{
			ID:            "ev-2",
			EventType:     "security.threat_detected",
			Category:      model.AuditSecurity,
			Severity:      model.SeverityCritical,
			SubjectID:     "owner-1",
			CorrelationID: "corr-1",
			RetentionDays: model.DefaultRetentionDays,
			Timestamp:     now,
		},
	}

	// Two events, one multi-row statement.
	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.InsertBatch(context.Background(), events))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditPostgres_InsertBatchEmptyIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuditPostgres(db)
	require.NoError(t, repo.InsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditPostgres_ListByCorrelation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuditPostgres(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "event_type", "category", "severity", "subject_id", "actor_id",
		"correlation_id", "control_reference", "details", "retention_days", "ts",
	}).AddRow("ev-1", "document.uploaded", "document", "low", "doc-1", "owner-1",
		"corr-1", "SOC2-CC6.1", []byte(`{"k":"v"}`), 2555, now)

	mock.ExpectQuery("SELECT (.+) FROM audit_events").
		WithArgs("corr-1").
		WillReturnRows(rows)

	events, err := repo.ListByCorrelation(context.Background(), "corr-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "document.uploaded", events[0].EventType)
	assert.Equal(t, map[string]string{"k": "v"}, events[0].Details)
	assert.Equal(t, 2555, events[0].RetentionDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}
