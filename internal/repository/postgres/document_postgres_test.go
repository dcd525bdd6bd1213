package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustdocs/internal/model"
	"trustdocs/internal/repository"
)

var documentColumnNames = []string{
	"id", "owner_id", "category_id", "original_filename", "size_bytes", "mime_type",
	"content_hash", "file_extension", "storage_location", "encryption_key_id",
	"validation_score", "validation_details", "threat_scan_status", "status", "approval_status",
	"created_at", "archived_at",
}

func sampleDocument(now time.Time) *model.Document {
	return &model.Document{
		ID:               "doc-uuid",
		OwnerID:          "owner-1",
		CategoryID:       "national_id_front",
		OriginalFilename: "id.png",
		SizeBytes:        2048,
		MimeType:         "image/png",
		ContentHash:      "abc123",
		FileExtension:    "png",
		StorageLocation:  "documents/owner-1/doc-uuid",
		EncryptionKeyID:  "key-uuid",
		ValidationScore:  95,
		ValidationDetails: model.ValidationDetails{
			ExtractedFields: map[string]string{"detected_mime": "image/png"},
		},
		ThreatScanStatus: model.ScanClean,
		Status:           model.DocumentUploaded,
		ApprovalStatus:   model.ApprovalPending,
		CreatedAt:        now,
	}
}

func documentRow(t *testing.T, doc *model.Document) *sqlmock.Rows {
	t.Helper()
	details, err := json.Marshal(doc.ValidationDetails)
	require.NoError(t, err)

	var archivedAt any
	if doc.ArchivedAt != nil {
		archivedAt = *doc.ArchivedAt
	}
	return sqlmock.NewRows(documentColumnNames).AddRow(
		doc.ID, doc.OwnerID, doc.CategoryID, doc.OriginalFilename, doc.SizeBytes, doc.MimeType,
		doc.ContentHash, doc.FileExtension, doc.StorageLocation, doc.EncryptionKeyID,
		doc.ValidationScore, details, string(doc.ThreatScanStatus), string(doc.Status), string(doc.ApprovalStatus),
		doc.CreatedAt, archivedAt,
	)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	doc := sampleDocument(time.Now().UTC())

	mock.ExpectQuery("INSERT INTO documents").
		WillReturnRows(documentRow(t, doc))

	got, err := repo.Create(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.ValidationDetails.ExtractedFields, got.ValidationDetails.ExtractedFields)
	assert.Nil(t, got.ArchivedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)

	t.Run("found", func(t *testing.T) {
		doc := sampleDocument(time.Now().UTC())
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id =").
			WithArgs(doc.ID).
			WillReturnRows(documentRow(t, doc))

		got, err := repo.FindByID(context.Background(), doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.OwnerID, got.OwnerID)
		assert.Equal(t, model.ScanClean, got.ThreatScanStatus)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id =").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(context.Background(), "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	doc := sampleDocument(time.Now().UTC())

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("owner-1", "national_id_front").
		WillReturnRows(documentRow(t, doc))

	docs, err := repo.FindActive(context.Background(), "owner-1", "national_id_front")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Archive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE documents SET status = 'archived'").
		WithArgs("doc-uuid", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Archive(context.Background(), "doc-uuid", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ActiveCategoryIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)

	mock.ExpectQuery("SELECT DISTINCT category_id").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"category_id"}).
			AddRow("national_id_front").
			AddRow("selfie_with_id"))

	ids, err := repo.ActiveCategoryIDs(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"national_id_front", "selfie_with_id"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	doc := sampleDocument(time.Now().UTC())

	t.Run("no filters", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WithArgs("owner-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs("owner-1", 10, 0).
			WillReturnRows(documentRow(t, doc))

		res, err := repo.ListByOwner(context.Background(), "owner-1",
			repository.DocumentFilter{}, repository.PageQuery{Limit: 10, Offset: 0})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		require.Len(t, res.Items, 1)
	})

	t.Run("category and status filters", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WithArgs("owner-1", "national_id_front", "uploaded").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs("owner-1", "national_id_front", "uploaded", 10, 0).
			WillReturnRows(sqlmock.NewRows(documentColumnNames))

		res, err := repo.ListByOwner(context.Background(), "owner-1",
			repository.DocumentFilter{CategoryID: "national_id_front", Status: model.DocumentUploaded},
			repository.PageQuery{Limit: 10, Offset: 0})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Empty(t, res.Items)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
