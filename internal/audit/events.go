package audit

import (
	"time"

	"github.com/google/uuid"

	"trustdocs/internal/ids"
	"trustdocs/internal/model"
)

// Event types recorded by this service.
const (
	EventDocumentUploaded   = "document_uploaded"
	EventDocumentArchived   = "document_archived"
	EventDocumentDeleted    = "document_deleted"
	EventDocumentDownloaded = "document_downloaded"
	EventThreatDetected     = "threat_detected"
	EventValidationFailed   = "validation_failed"
	EventAccessDenied       = "access_denied"
	EventCleanupFailed      = "exclusivity_cleanup_failed"
	EventSignalFailed       = "completion_signal_failed"
	EventStatusChanged      = "verification_status_changed"
	EventAdjudicated        = "verification_adjudicated"
)

// controlReferences maps event types to the compliance controls they evidence.
var controlReferences = map[string]string{
	EventDocumentUploaded:   "SOC2-CC6.1",
	EventDocumentArchived:   "SOC2-CC6.5",
	EventDocumentDeleted:    "SOC2-CC6.5",
	EventDocumentDownloaded: "SOC2-CC6.3",
	EventThreatDetected:     "SOC2-CC7.1",
	EventValidationFailed:   "SOC2-CC7.1",
	EventAccessDenied:       "SOC2-CC6.3",
	EventStatusChanged:      "SOC2-CC2.1",
	EventAdjudicated:        "SOC2-CC2.1",
}

// NewEvent builds an audit event with generated id, timestamp, retention, and
// control reference. CorrelationID may be empty; the queue fills it on enqueue.
func NewEvent(eventType string, category model.AuditCategory, severity model.AuditSeverity, subjectID, actorID, correlationID string, details map[string]string) model.AuditEvent {
	return model.AuditEvent{
		ID:               ids.New(),
		EventType:        eventType,
		Category:         category,
		Severity:         severity,
		SubjectID:        subjectID,
		ActorID:          actorID,
		CorrelationID:    correlationID,
		ControlReference: controlReferences[eventType],
		Details:          details,
		RetentionDays:    model.DefaultRetentionDays,
		Timestamp:        time.Now().UTC(),
	}
}

// NewCorrelationID returns a fresh correlation id for stitching a causally
// related chain of events.
func NewCorrelationID() string {
	return uuid.NewString()
}
