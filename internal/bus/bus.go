package bus

import (
	"context"
	"time"

	"trustdocs/internal/model"
)

// Package bus carries the typed domain events this service produces. Delivery
// is at-least-once; consumers are expected to re-derive truth from storage
// rather than trust event payloads.

// Event is a publishable domain event.
type Event interface {
	// Topic names the event stream the event belongs to.
	Topic() string
	// Key partitions the event; events with the same key are ordered.
	Key() string
}

// DocumentsCompleted signals a change in an owner's document completeness.
type DocumentsCompleted struct {
	OwnerID             string    `json:"owner_id"`
	AllCompleted        bool      `json:"all_completed"`
	CompletedCategories []string  `json:"completed_categories"`
	RequiredCategories  []string  `json:"required_categories"`
	Timestamp           time.Time `json:"timestamp"`
}

func (DocumentsCompleted) Topic() string { return "documents.completed" }
func (e DocumentsCompleted) Key() string { return e.OwnerID }

// VerificationStatusChanged signals a trust status transition.
type VerificationStatusChanged struct {
	OwnerID   string            `json:"owner_id"`
	OldStatus model.TrustStatus `json:"old_status"`
	NewStatus model.TrustStatus `json:"new_status"`
	Reason    string            `json:"reason"`
	Timestamp time.Time         `json:"timestamp"`
}

func (VerificationStatusChanged) Topic() string { return "verification.status_changed" }
func (e VerificationStatusChanged) Key() string { return e.OwnerID }

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
