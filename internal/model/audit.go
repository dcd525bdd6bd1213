package model

import "time"

// AuditCategory classifies audit events by their primary purpose so that
// stores and downstream consumers can route and retain them differently.
type AuditCategory string

const (
	AuditDocument   AuditCategory = "document"
	AuditSecurity   AuditCategory = "security"
	AuditAccess     AuditCategory = "access"
	AuditCompliance AuditCategory = "compliance"
)

// AuditSeverity orders events by urgency. Critical events take an immediate
// notification path in addition to normal persistence.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// DefaultRetentionDays is the long retention window applied to every audit
// event (7 years).
const DefaultRetentionDays = 2555

// AuditEvent is an append-only record of a security-relevant action.
// Immutable once written; rows are never updated or deleted inside the
// retention window.
type AuditEvent struct {
	ID               string            `json:"id"`
	EventType        string            `json:"event_type"`
	Category         AuditCategory     `json:"category"`
	Severity         AuditSeverity     `json:"severity"`
	SubjectID        string            `json:"subject_id"`
	ActorID          string            `json:"actor_id"`
	CorrelationID    string            `json:"correlation_id"`
	ControlReference string            `json:"control_reference,omitempty"`
	Details          map[string]string `json:"details,omitempty"`
	RetentionDays    int               `json:"retention_days"`
	Timestamp        time.Time         `json:"timestamp"`
}
