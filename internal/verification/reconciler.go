package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trustdocs/internal/audit"
	"trustdocs/internal/bus"
	"trustdocs/internal/model"
	"trustdocs/internal/registry"
	"trustdocs/internal/repository"
)

var (
	// ErrInvalidTransition is returned when an adjudication decision arrives
	// for an owner who is not pending.
	ErrInvalidTransition = errors.New("verification status does not allow this transition")

	// ErrUnknownDecision is returned for adjudication decisions other than
	// approve/reject.
	ErrUnknownDecision = errors.New("unknown adjudication decision")
)

// Reconciler derives a single trust status from the profile domain and the
// document domain. Consumers may deliver signals in any order and more than
// once; the reconciler re-derives both sides live on every signal and only
// transitions when the computed target differs from the current state.
type Reconciler interface {
	// SyncDocuments re-evaluates an owner after a document-domain change.
	SyncDocuments(ctx context.Context, ownerID string) error

	// SyncProfile re-evaluates an owner after a profile-domain change.
	SyncProfile(ctx context.Context, ownerID string) error

	// Adjudicate applies the external approve/reject decision to a pending
	// owner. Repeating a decision already applied is a no-op.
	Adjudicate(ctx context.Context, ownerID string, decision model.AdjudicationDecision, notes string) (*model.VerificationStatus, error)

	// Status returns the owner's current status, defaulting to not_verified
	// for owners with no record yet.
	Status(ctx context.Context, ownerID string) (*model.VerificationStatus, error)
}

type reconciler struct {
	statuses repository.VerificationRepository
	registry registry.Registry
	profiles ProfileProvider
	pub      bus.Publisher
	rec      audit.Recorder
	role     string
	log      *slog.Logger
}

// New constructs the Reconciler. role selects which category set counts as
// required when computing document completeness.
func New(statuses repository.VerificationRepository, reg registry.Registry, profiles ProfileProvider, pub bus.Publisher, rec audit.Recorder, role string, log *slog.Logger) Reconciler {
	return &reconciler{
		statuses: statuses,
		registry: reg,
		profiles: profiles,
		pub:      pub,
		rec:      rec,
		role:     role,
		log:      log,
	}
}

func (r *reconciler) SyncDocuments(ctx context.Context, ownerID string) error {
	return r.evaluate(ctx, ownerID, "documents_signal")
}

func (r *reconciler) SyncProfile(ctx context.Context, ownerID string) error {
	return r.evaluate(ctx, ownerID, "profile_signal")
}

func (r *reconciler) Status(ctx context.Context, ownerID string) (*model.VerificationStatus, error) {
	vs, err := r.statuses.Get(ctx, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.VerificationStatus{OwnerID: ownerID, Status: model.TrustNotVerified}, nil
	}
	return vs, err
}

// evaluate recomputes the target state from both live signals and applies the
// not_verified <-> pending transitions. Adjudicated owners are left alone.
func (r *reconciler) evaluate(ctx context.Context, ownerID, reason string) error {
	current := model.TrustNotVerified
	exists := true
	vs, err := r.statuses.Get(ctx, ownerID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
	case err != nil:
		return fmt.Errorf("load verification status: %w", err)
	default:
		current = vs.Status
	}

	if current == model.TrustVerified || current == model.TrustRejected {
		return nil
	}

	profileOK, err := r.profiles.IsComplete(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("derive profile completeness: %w", err)
	}
	comp, err := r.registry.Completeness(ctx, ownerID, r.role)
	if err != nil {
		return fmt.Errorf("derive document completeness: %w", err)
	}

	target := model.TrustNotVerified
	if profileOK && comp.AllCompleted {
		target = model.TrustPending
	}

	if target == current {
		if !exists {
			// Lazy creation on first signal, even without a transition.
			return r.statuses.Upsert(ctx, &model.VerificationStatus{
				OwnerID:   ownerID,
				Status:    current,
				UpdatedAt: time.Now().UTC(),
			})
		}
		return nil
	}

	return r.transition(ctx, ownerID, current, target, reason, nil)
}

func (r *reconciler) Adjudicate(ctx context.Context, ownerID string, decision model.AdjudicationDecision, notes string) (*model.VerificationStatus, error) {
	var target model.TrustStatus
	switch decision {
	case model.DecisionApprove:
		target = model.TrustVerified
	case model.DecisionReject:
		target = model.TrustRejected
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDecision, decision)
	}

	current := model.TrustNotVerified
	vs, err := r.statuses.Get(ctx, ownerID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load verification status: %w", err)
	default:
		current = vs.Status
	}

	if current == target {
		// Duplicate adjudication signal, nothing to do.
		return &model.VerificationStatus{OwnerID: ownerID, Status: current}, nil
	}
	if current != model.TrustPending {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}

	details := map[string]string{"decision": string(decision)}
	if notes != "" {
		details["notes"] = notes
	}
	if err := r.transition(ctx, ownerID, current, target, "adjudication", details); err != nil {
		return nil, err
	}
	return &model.VerificationStatus{OwnerID: ownerID, Status: target, UpdatedAt: time.Now().UTC()}, nil
}

// transition persists the new state, then emits the status-changed event and
// the compliance audit record. Emission failures are logged, not propagated:
// the persisted state is the source of truth and consumers re-derive from it.
func (r *reconciler) transition(ctx context.Context, ownerID string, from, to model.TrustStatus, reason string, details map[string]string) error {
	now := time.Now().UTC()
	if err := r.statuses.Upsert(ctx, &model.VerificationStatus{
		OwnerID:   ownerID,
		Status:    to,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("persist verification status: %w", err)
	}

	r.log.InfoContext(ctx, "verification status changed",
		"owner_id", ownerID, "from", from, "to", to, "reason", reason)

	ev := bus.VerificationStatusChanged{
		OwnerID:   ownerID,
		OldStatus: from,
		NewStatus: to,
		Reason:    reason,
		Timestamp: now,
	}
	if err := r.pub.Publish(ctx, ev); err != nil {
		r.log.ErrorContext(ctx, "status change event publish failed",
			"owner_id", ownerID, "error", err)
	}

	if details == nil {
		details = map[string]string{}
	}
	details["old_status"] = string(from)
	details["new_status"] = string(to)
	details["reason"] = reason
	eventType := audit.EventStatusChanged
	if reason == "adjudication" {
		eventType = audit.EventAdjudicated
	}
	r.rec.Enqueue(audit.NewEvent(eventType, model.AuditCompliance, model.SeverityMedium,
		ownerID, "", "", details))

	return nil
}
