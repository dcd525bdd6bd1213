package registry

import (
	"context"
	"log/slog"
	"time"

	"trustdocs/internal/model"
	"trustdocs/internal/repository"
)

// Completeness answers whether every category required for an owner's role is
// satisfied by an active, clean, non-rejected document.
type Completeness struct {
	OwnerID             string   `json:"owner_id"`
	AllCompleted        bool     `json:"all_completed"`
	CompletedCategories []string `json:"completed_categories"`
	RequiredCategories  []string `json:"required_categories"`
}

// Registry is the metadata ledger facade: one row per document, category
// exclusivity, completeness computation, and filtered listing.
type Registry interface {
	// Create persists a new document row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Get returns a document by id.
	Get(ctx context.Context, id string) (*model.Document, error)

	// ActiveInCategory returns the current occupants of the (owner, category) slot.
	ActiveInCategory(ctx context.Context, ownerID, categoryID string) ([]model.Document, error)

	// Archive retires a document from its category slot.
	Archive(ctx context.Context, id string) error

	// Completeness recomputes the owner's document completeness for a role.
	Completeness(ctx context.Context, ownerID, role string) (Completeness, error)

	// List returns the owner's documents with category/status filters and
	// limit/offset pagination.
	List(ctx context.Context, ownerID string, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error)
}

type registry struct {
	docs repository.DocumentRepository
	cats repository.CategoryRepository
	log  *slog.Logger
}

// New constructs the Registry over its repositories.
func New(docs repository.DocumentRepository, cats repository.CategoryRepository, log *slog.Logger) Registry {
	return &registry{docs: docs, cats: cats, log: log}
}

func (r *registry) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return r.docs.Create(ctx, doc)
}

func (r *registry) Get(ctx context.Context, id string) (*model.Document, error) {
	return r.docs.FindByID(ctx, id)
}

func (r *registry) ActiveInCategory(ctx context.Context, ownerID, categoryID string) ([]model.Document, error) {
	return r.docs.FindActive(ctx, ownerID, categoryID)
}

func (r *registry) Archive(ctx context.Context, id string) error {
	return r.docs.Archive(ctx, id, time.Now().UTC())
}

// Completeness intersects the owner's satisfied categories with the role's
// required set. An empty required set never counts as complete; a role without
// requirements should not become verifiable by accident.
func (r *registry) Completeness(ctx context.Context, ownerID, role string) (Completeness, error) {
	required, err := r.cats.ListRequired(ctx, role)
	if err != nil {
		return Completeness{}, err
	}
	satisfied, err := r.docs.ActiveCategoryIDs(ctx, ownerID)
	if err != nil {
		return Completeness{}, err
	}

	satisfiedSet := make(map[string]bool, len(satisfied))
	for _, id := range satisfied {
		satisfiedSet[id] = true
	}

	c := Completeness{
		OwnerID:             ownerID,
		CompletedCategories: make([]string, 0, len(required)),
		RequiredCategories:  make([]string, 0, len(required)),
	}
	all := len(required) > 0
	for _, cat := range required {
		c.RequiredCategories = append(c.RequiredCategories, cat.ID)
		if satisfiedSet[cat.ID] {
			c.CompletedCategories = append(c.CompletedCategories, cat.ID)
		} else {
			all = false
		}
	}
	c.AllCompleted = all
	return c, nil
}

func (r *registry) List(ctx context.Context, ownerID string, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	if pq.Limit <= 0 {
		pq.Limit = 10
	}
	if pq.Offset < 0 {
		pq.Offset = 0
	}
	return r.docs.ListByOwner(ctx, ownerID, f, pq)
}
