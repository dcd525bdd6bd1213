package intake

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a document does not exist or is no longer
// reachable through the normal access path.
var ErrNotFound = errors.New("document not found")

// RejectionReason classifies business rejections. These are surfaced to the
// caller with structure and are never retried automatically, as opposed to
// infrastructure failures which are plain wrapped errors.
type RejectionReason string

const (
	ReasonThreatDetected   RejectionReason = "threat_detected"
	ReasonValidationFailed RejectionReason = "validation_failed"
	ReasonAccessDenied     RejectionReason = "access_denied"
	ReasonUnknownCategory  RejectionReason = "unknown_category"
)

// Rejection is a typed business rejection from the intake pipeline.
type Rejection struct {
	Reason   RejectionReason `json:"reason"`
	Threats  []string        `json:"threats,omitempty"`
	Score    int             `json:"score,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonThreatDetected:
		return fmt.Sprintf("threat detected: %s", strings.Join(r.Threats, ", "))
	case ReasonValidationFailed:
		return fmt.Sprintf("validation failed with score %d: %s", r.Score, strings.Join(r.Errors, "; "))
	default:
		return string(r.Reason)
	}
}

// AsRejection unwraps a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
