package model

import "time"

// TrustStatus is the reconciled verification state of an owner.
//
// This service is the sole writer of the not_verified <-> pending transitions;
// verified and rejected are applied from an external adjudication decision.
type TrustStatus string

const (
	TrustNotVerified TrustStatus = "not_verified"
	TrustPending     TrustStatus = "pending"
	TrustVerified    TrustStatus = "verified"
	TrustRejected    TrustStatus = "rejected"
)

// VerificationStatus is the single logical trust record per owner, created
// lazily on the first completeness signal.
type VerificationStatus struct {
	OwnerID   string      `json:"owner_id"`
	Status    TrustStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// AdjudicationDecision is the external approve/reject action applied to a
// pending owner.
type AdjudicationDecision string

const (
	DecisionApprove AdjudicationDecision = "approve"
	DecisionReject  AdjudicationDecision = "reject"
)
