package model

import "time"

// DocumentStatus is the storage lifecycle of a document. A document is never
// edited in place; replacing content means creating a new document and
// archiving the previous one.
type DocumentStatus string

const (
	DocumentUploaded DocumentStatus = "uploaded"
	DocumentArchived DocumentStatus = "archived"
)

// ApprovalStatus is the review state of a document.
type ApprovalStatus string

const (
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
	ApprovalUnderReview ApprovalStatus = "under_review"
)

// ScanStatus is the outcome of the threat scan that gated intake.
type ScanStatus string

const (
	ScanClean   ScanStatus = "clean"
	ScanFlagged ScanStatus = "flagged"
)

// ValidationDetails captures the content validator's findings for a document.
// Persisted as JSONB alongside the row.
type ValidationDetails struct {
	ExtractedFields map[string]string `json:"extracted_fields,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	Errors          []string          `json:"errors,omitempty"`
}

// Document is the metadata ledger entry for one stored artifact. The encrypted
// content lives in object storage under StorageLocation; the data key that
// decrypts it is referenced by EncryptionKeyID.
//
// Invariant: at most one non-archived document exists per (OwnerID, CategoryID).
type Document struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	CategoryID string `json:"category_id"`

	OriginalFilename string `json:"original_filename"`
	SizeBytes        int64  `json:"size_bytes"`
	MimeType         string `json:"mime_type"`
	ContentHash      string `json:"content_hash"`
	FileExtension    string `json:"file_extension"`

	StorageLocation string `json:"storage_location"`
	EncryptionKeyID string `json:"encryption_key_id"`

	ValidationScore   int               `json:"validation_score"`
	ValidationDetails ValidationDetails `json:"validation_details"`
	ThreatScanStatus  ScanStatus        `json:"threat_scan_status"`

	Status         DocumentStatus `json:"status"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`

	CreatedAt  time.Time  `json:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// Active reports whether the document currently occupies its category slot.
func (d *Document) Active() bool {
	return d.Status == DocumentUploaded
}

// CountsTowardCompleteness reports whether the document satisfies its
// category for the completeness computation: it must be active, clean, and
// not rejected by review.
func (d *Document) CountsTowardCompleteness() bool {
	if !d.Active() || d.ThreatScanStatus != ScanClean {
		return false
	}
	return d.ApprovalStatus == ApprovalPending || d.ApprovalStatus == ApprovalApproved
}
