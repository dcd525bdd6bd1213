package repository

import (
	"context"
	"time"

	"trustdocs/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.
// No business logic here, strictly persistence operations.

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

// DocumentFilter narrows document listings. Zero values mean "no filter".
type DocumentFilter struct {
	CategoryID string
	Status     model.DocumentStatus
}

// DocumentRepository defines data access for the document metadata ledger.
type DocumentRepository interface {
	// Create inserts a new document row and returns the stored record.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID. Missing rows surface sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindActive returns the non-archived documents in the given (owner, category)
	// slot. Under the exclusivity invariant this is at most one row, but the
	// signature tolerates historical violations so they can be repaired.
	FindActive(ctx context.Context, ownerID, categoryID string) ([]model.Document, error)

	// Archive marks a document archived at the given time. Archiving an already
	// archived document is a no-op.
	Archive(ctx context.Context, id string, at time.Time) error

	// ActiveCategoryIDs returns the distinct category ids in which the owner has
	// at least one document counting toward completeness (active, clean, and
	// pending or approved).
	ActiveCategoryIDs(ctx context.Context, ownerID string) ([]string, error)

	// ListByOwner returns the owner's documents matching the filter, newest
	// first, with a total count.
	ListByOwner(ctx context.Context, ownerID string, f DocumentFilter, pq PageQuery) (*PageResult[model.Document], error)
}

// CategoryRepository reads static document category reference data.
type CategoryRepository interface {
	// FindByID returns a category by id. Missing rows surface sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.DocumentCategory, error)

	// ListRequired returns the active categories required for the given role.
	ListRequired(ctx context.Context, role string) ([]model.DocumentCategory, error)
}

// AuditRepository appends audit events. Events are immutable once written.
type AuditRepository interface {
	// InsertBatch writes a batch of events in one statement. Partial writes are
	// not attempted; the batch succeeds or fails as a whole.
	InsertBatch(ctx context.Context, events []model.AuditEvent) error
}

// VerificationRepository stores the per-owner trust status record.
type VerificationRepository interface {
	// Get returns the owner's status row. Missing rows surface sql.ErrNoRows.
	Get(ctx context.Context, ownerID string) (*model.VerificationStatus, error)

	// Upsert creates or replaces the owner's status row.
	Upsert(ctx context.Context, vs *model.VerificationStatus) error
}

// KeyRepository stores wrapped per-document data keys.
type KeyRepository interface {
	// Insert stores a wrapped data key under the given key id.
	Insert(ctx context.Context, id string, wrappedKey []byte) error

	// Find returns the wrapped data key for the given key id.
	Find(ctx context.Context, id string) ([]byte, error)

	// Delete destroys the wrapped key, rendering the ciphertext unrecoverable.
	// Deleting a missing key returns nil.
	Delete(ctx context.Context, id string) error
}
