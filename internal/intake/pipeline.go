package intake

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"

	"trustdocs/internal/audit"
	"trustdocs/internal/bus"
	"trustdocs/internal/config"
	"trustdocs/internal/lock"
	"trustdocs/internal/model"
	"trustdocs/internal/registry"
	"trustdocs/internal/repository"
	"trustdocs/internal/scanner"
	"trustdocs/internal/validator"
	"trustdocs/internal/vault"
)

// Actor identifies the caller for access checks. Authentication happens
// upstream; this layer only decides ownership and admin capability.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == "admin" }

// SubmitRequest carries one upload through the pipeline.
type SubmitRequest struct {
	OwnerID          string
	CategoryID       string
	Content          []byte
	OriginalFilename string
	MimeType         string
	Actor            Actor
}

// Download is a decrypted document with its metadata.
type Download struct {
	Document model.Document
	Content  []byte
}

// CompletionListener receives the document-completeness signal after an
// upload or deletion changes an owner's documents.
type CompletionListener interface {
	SyncDocuments(ctx context.Context, ownerID string) error
}

// Service is the single entry point for document intake and access. Submit
// runs the gated stages strictly in order; any stage failure short-circuits
// with no partial persistence.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*model.Document, error)
	Get(ctx context.Context, actor Actor, id string) (*model.Document, error)
	Download(ctx context.Context, actor Actor, id string) (*Download, error)
	Delete(ctx context.Context, actor Actor, id string) error
	List(ctx context.Context, actor Actor, ownerID string, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error)
}

type pipeline struct {
	scanner   scanner.Scanner
	validator validator.Validator
	vault     vault.Vault
	registry  registry.Registry
	cats      repository.CategoryRepository
	locks     lock.Locker
	recorder  audit.Recorder
	pub       bus.Publisher
	listener  CompletionListener

	threshold    int
	stageTimeout time.Duration
	role         string

	log     *slog.Logger
	metrics *Metrics
}

// NewPipeline wires the intake pipeline. All collaborators are injected;
// metrics may be nil in tests.
func NewPipeline(
	cfg config.IntakeConfig,
	sc scanner.Scanner,
	val validator.Validator,
	vlt vault.Vault,
	reg registry.Registry,
	cats repository.CategoryRepository,
	locks lock.Locker,
	recorder audit.Recorder,
	pub bus.Publisher,
	listener CompletionListener,
	log *slog.Logger,
	metrics *Metrics,
) Service {
	timeout := time.Duration(cfg.StageTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	threshold := cfg.ScoreThreshold
	if threshold <= 0 {
		threshold = 60
	}
	return &pipeline{
		scanner:      sc,
		validator:    val,
		vault:        vlt,
		registry:     reg,
		cats:         cats,
		locks:        locks,
		recorder:     recorder,
		pub:          pub,
		listener:     listener,
		threshold:    threshold,
		stageTimeout: timeout,
		role:         cfg.RequiredRole,
		log:          log,
		metrics:      metrics,
	}
}

func (p *pipeline) Submit(ctx context.Context, req SubmitRequest) (*model.Document, error) {
	correlationID := audit.NewCorrelationID()

	cat, err := p.cats.FindByID(ctx, req.CategoryID)
	if errors.Is(err, sql.ErrNoRows) {
		p.metrics.observe(outcomeValidationRejected)
		return nil, &Rejection{Reason: ReasonUnknownCategory}
	}
	if err != nil {
		p.metrics.observe(outcomeFailed)
		return nil, fmt.Errorf("load category: %w", err)
	}
	if !cat.IsActive {
		p.metrics.observe(outcomeValidationRejected)
		return nil, &Rejection{Reason: ReasonUnknownCategory}
	}

	// Stage 1: threat scan.
	scanCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	scanRes, err := p.scanner.Scan(scanCtx, req.Content)
	cancel()
	if err != nil {
		p.metrics.observe(outcomeFailed)
		return nil, fmt.Errorf("threat scan: %w", err)
	}
	if !scanRes.Clean {
		p.recorder.Enqueue(audit.NewEvent(audit.EventThreatDetected, model.AuditSecurity, model.SeverityCritical,
			req.OwnerID, req.Actor.ID, correlationID, map[string]string{
				"category_id": req.CategoryID,
				"filename":    req.OriginalFilename,
				"threats":     fmt.Sprintf("%v", scanRes.Threats),
			}))
		p.metrics.observe(outcomeThreatRejected)
		return nil, &Rejection{Reason: ReasonThreatDetected, Threats: scanRes.Threats}
	}

	// Stage 2: content validation. Never mutates stored state.
	valCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	report, err := p.validator.Validate(valCtx, req.Content, validator.Rules{
		Category:         *cat,
		OriginalFilename: req.OriginalFilename,
		DeclaredMime:     req.MimeType,
	})
	cancel()
	if err != nil {
		p.metrics.observe(outcomeFailed)
		return nil, fmt.Errorf("content validation: %w", err)
	}
	if report.Score < p.threshold {
		p.recorder.Enqueue(audit.NewEvent(audit.EventValidationFailed, model.AuditDocument, model.SeverityMedium,
			req.OwnerID, req.Actor.ID, correlationID, map[string]string{
				"category_id": req.CategoryID,
				"score":       strconv.Itoa(report.Score),
			}))
		p.metrics.observe(outcomeValidationRejected)
		return nil, &Rejection{
			Reason:   ReasonValidationFailed,
			Score:    report.Score,
			Errors:   report.Errors,
			Warnings: report.Warnings,
		}
	}

	docID := uuid.NewString()
	location := path.Join("documents", req.OwnerID, docID)
	sum := sha256.Sum256(req.Content)

	// The slot lock covers the registry write and the exclusivity
	// enforcement so two concurrent uploads cannot both observe an
	// empty category.
	release, err := p.locks.Acquire(ctx, req.OwnerID+"/"+req.CategoryID)
	if err != nil {
		p.metrics.observe(outcomeFailed)
		return nil, fmt.Errorf("acquire category lock: %w", err)
	}
	defer release()

	// Stage 3: encrypted persistence.
	storeCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	obj, err := p.vault.Store(storeCtx, location, req.Content)
	cancel()
	if err != nil {
		p.metrics.observe(outcomeFailed)
		return nil, fmt.Errorf("encrypted persistence: %w", err)
	}

	// Stage 4: registry write, compensated by ciphertext destruction.
	doc := &model.Document{
		ID:               docID,
		OwnerID:          req.OwnerID,
		CategoryID:       req.CategoryID,
		OriginalFilename: req.OriginalFilename,
		SizeBytes:        int64(len(req.Content)),
		MimeType:         req.MimeType,
		ContentHash:      hex.EncodeToString(sum[:]),
		FileExtension:    validator.Extension(req.OriginalFilename),
		StorageLocation:  obj.Location,
		EncryptionKeyID:  obj.KeyID,
		ValidationScore:  report.Score,
		ValidationDetails: model.ValidationDetails{
			ExtractedFields: report.ExtractedFields,
			Warnings:        report.Warnings,
			Errors:          report.Errors,
		},
		ThreatScanStatus: model.ScanClean,
		Status:           model.DocumentUploaded,
		ApprovalStatus:   model.ApprovalPending,
		CreatedAt:        time.Now().UTC(),
	}
	stored, err := p.registry.Create(ctx, doc)
	if err != nil {
		// Cleanup must run even if the caller has disconnected.
		cleanupCtx := context.WithoutCancel(ctx)
		if derr := p.vault.Destroy(cleanupCtx, obj.Location, obj.KeyID); derr != nil {
			p.log.ErrorContext(cleanupCtx, "ciphertext cleanup after registry failure failed",
				"location", obj.Location, "error", derr)
		}
		p.metrics.observe(outcomeFailed)
		return nil, fmt.Errorf("registry write: %w", err)
	}

	p.recorder.Enqueue(audit.NewEvent(audit.EventDocumentUploaded, model.AuditDocument, model.SeverityLow,
		stored.ID, req.Actor.ID, correlationID, map[string]string{
			"owner_id":     stored.OwnerID,
			"category_id":  stored.CategoryID,
			"content_hash": stored.ContentHash,
			"score":        strconv.Itoa(stored.ValidationScore),
		}))

	// Stages 5 and 6 are post-commit: their failures are logged but never
	// roll back the stored document, and they run to completion even if
	// the caller disconnects.
	postCtx := context.WithoutCancel(ctx)
	p.enforceExclusivity(postCtx, stored, correlationID)
	release()
	p.emitCompletion(postCtx, stored.OwnerID, correlationID)

	p.metrics.observe(outcomeAccepted)
	return stored, nil
}

// enforceExclusivity archives every other active occupant of the new
// document's category slot, destroying its ciphertext first. Best-effort:
// failures are logged and audited, never propagated.
func (p *pipeline) enforceExclusivity(ctx context.Context, doc *model.Document, correlationID string) {
	prior, err := p.registry.ActiveInCategory(ctx, doc.OwnerID, doc.CategoryID)
	if err != nil {
		p.log.ErrorContext(ctx, "exclusivity lookup failed",
			"owner_id", doc.OwnerID, "category_id", doc.CategoryID, "error", err)
		p.recorder.Enqueue(audit.NewEvent(audit.EventCleanupFailed, model.AuditDocument, model.SeverityHigh,
			doc.ID, "", correlationID, map[string]string{"error": err.Error()}))
		return
	}

	for _, old := range prior {
		if old.ID == doc.ID {
			continue
		}
		if err := p.vault.Destroy(ctx, old.StorageLocation, old.EncryptionKeyID); err != nil {
			p.log.ErrorContext(ctx, "replaced document ciphertext destruction failed",
				"document_id", old.ID, "error", err)
			p.recorder.Enqueue(audit.NewEvent(audit.EventCleanupFailed, model.AuditDocument, model.SeverityHigh,
				old.ID, "", correlationID, map[string]string{"error": err.Error()}))
		}
		// Archive regardless: the slot invariant outranks a leaked blob,
		// which the error log above leaves visible for backfill.
		if err := p.registry.Archive(ctx, old.ID); err != nil {
			p.log.ErrorContext(ctx, "replaced document archival failed",
				"document_id", old.ID, "error", err)
			p.recorder.Enqueue(audit.NewEvent(audit.EventCleanupFailed, model.AuditDocument, model.SeverityHigh,
				old.ID, "", correlationID, map[string]string{"error": err.Error()}))
			continue
		}
		p.recorder.Enqueue(audit.NewEvent(audit.EventDocumentArchived, model.AuditDocument, model.SeverityLow,
			old.ID, "", correlationID, map[string]string{
				"replaced_by": doc.ID,
				"category_id": doc.CategoryID,
			}))
	}
}

// emitCompletion recomputes the owner's document completeness, publishes the
// documents.completed event, and pokes the reconciler. Best-effort.
func (p *pipeline) emitCompletion(ctx context.Context, ownerID, correlationID string) {
	comp, err := p.registry.Completeness(ctx, ownerID, p.role)
	if err != nil {
		p.log.ErrorContext(ctx, "completeness computation failed", "owner_id", ownerID, "error", err)
		p.recorder.Enqueue(audit.NewEvent(audit.EventSignalFailed, model.AuditDocument, model.SeverityLow,
			ownerID, "", correlationID, map[string]string{"error": err.Error()}))
		return
	}

	ev := bus.DocumentsCompleted{
		OwnerID:             ownerID,
		AllCompleted:        comp.AllCompleted,
		CompletedCategories: comp.CompletedCategories,
		RequiredCategories:  comp.RequiredCategories,
		Timestamp:           time.Now().UTC(),
	}
	if err := p.pub.Publish(ctx, ev); err != nil {
		p.log.ErrorContext(ctx, "documents.completed publish failed", "owner_id", ownerID, "error", err)
	}

	if err := p.listener.SyncDocuments(ctx, ownerID); err != nil {
		p.log.ErrorContext(ctx, "verification sync failed", "owner_id", ownerID, "error", err)
	}
}

// access loads a document and checks that the actor may touch it.
func (p *pipeline) access(ctx context.Context, actor Actor, id string, correlationID string) (*model.Document, error) {
	doc, err := p.registry.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if actor.ID != doc.OwnerID && !actor.IsAdmin() {
		p.recorder.Enqueue(audit.NewEvent(audit.EventAccessDenied, model.AuditAccess, model.SeverityHigh,
			doc.ID, actor.ID, correlationID, map[string]string{"owner_id": doc.OwnerID}))
		return nil, &Rejection{Reason: ReasonAccessDenied}
	}
	return doc, nil
}

func (p *pipeline) Get(ctx context.Context, actor Actor, id string) (*model.Document, error) {
	return p.access(ctx, actor, id, audit.NewCorrelationID())
}

func (p *pipeline) Download(ctx context.Context, actor Actor, id string) (*Download, error) {
	correlationID := audit.NewCorrelationID()
	doc, err := p.access(ctx, actor, id, correlationID)
	if err != nil {
		return nil, err
	}
	// Archived documents are off the normal access path; their audit trail
	// remains, the content does not.
	if !doc.Active() {
		return nil, ErrNotFound
	}

	openCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	content, err := p.vault.Open(openCtx, doc.StorageLocation, doc.EncryptionKeyID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("open encrypted content: %w", err)
	}

	p.recorder.Enqueue(audit.NewEvent(audit.EventDocumentDownloaded, model.AuditAccess, model.SeverityLow,
		doc.ID, actor.ID, correlationID, map[string]string{"owner_id": doc.OwnerID}))

	return &Download{Document: *doc, Content: content}, nil
}

func (p *pipeline) Delete(ctx context.Context, actor Actor, id string) error {
	correlationID := audit.NewCorrelationID()
	doc, err := p.access(ctx, actor, id, correlationID)
	if err != nil {
		return err
	}
	if !doc.Active() {
		return ErrNotFound
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if err := p.vault.Destroy(cleanupCtx, doc.StorageLocation, doc.EncryptionKeyID); err != nil {
		return fmt.Errorf("destroy encrypted content: %w", err)
	}
	if err := p.registry.Archive(cleanupCtx, doc.ID); err != nil {
		return fmt.Errorf("archive document: %w", err)
	}

	p.recorder.Enqueue(audit.NewEvent(audit.EventDocumentDeleted, model.AuditDocument, model.SeverityMedium,
		doc.ID, actor.ID, correlationID, map[string]string{
			"owner_id":    doc.OwnerID,
			"category_id": doc.CategoryID,
		}))

	// A deleted required document may regress a pending owner.
	p.emitCompletion(cleanupCtx, doc.OwnerID, correlationID)
	return nil
}

func (p *pipeline) List(ctx context.Context, actor Actor, ownerID string, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	if actor.ID != ownerID && !actor.IsAdmin() {
		return nil, &Rejection{Reason: ReasonAccessDenied}
	}
	return p.registry.List(ctx, ownerID, f, pq)
}
