package document

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
	"github.com/intisalud/hospital-api/internal/service/audit"
	"github.com/intisalud/hospital-api/pkg/clock"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/logger"
	"github.com/intisalud/hospital-api/pkg/metrics"
)

const (
	defaultAutoSignMaxLines       = 3
	defaultPrescriptionExpiryDays = 30
	defaultTopLimit               = 10
	maxTopLimit                   = 50
	defaultSweepBatch             = 100
)

// Catalog resolves line codes to display names. Lookups return "" without an
// error when the code is unknown.
type Catalog interface {
	MedicationName(ctx context.Context, code string) (string, error)
	ExamName(ctx context.Context, code string) (string, error)
}

// Options tune document behavior per deployment.
type Options struct {
	AutoSignMaxLines       int
	PrescriptionExpiryDays int
}

func (o Options) withDefaults() Options {
	if o.AutoSignMaxLines <= 0 {
		o.AutoSignMaxLines = defaultAutoSignMaxLines
	}
	if o.PrescriptionExpiryDays <= 0 {
		o.PrescriptionExpiryDays = defaultPrescriptionExpiryDays
	}
	return o
}

// Service runs the shared document engine for prescriptions, orders and
// notes: numbering, the per-type transition graph, signing and the duplicate
// rules. Numbering and creation happen in one transaction so the sequence row
// lock serializes concurrent writers of the same prefix and day.
type Service struct {
	docs    repository.DocumentRepository
	seq     repository.SequenceRepository
	staff   repository.StaffRepository
	catalog Catalog
	outbox  repository.OutboxRepository
	tx      repository.TxRunner
	auditor *audit.Service
	metrics *metrics.Metrics
	clock   clock.Clock
	logger  *logger.Logger
	opts    Options
}

func NewService(docs repository.DocumentRepository, seq repository.SequenceRepository, staff repository.StaffRepository, catalog Catalog, outbox repository.OutboxRepository, tx repository.TxRunner, auditor *audit.Service, m *metrics.Metrics, clk clock.Clock, logger *logger.Logger, opts Options) *Service {
	return &Service{
		docs:    docs,
		seq:     seq,
		staff:   staff,
		catalog: catalog,
		outbox:  outbox,
		tx:      tx,
		auditor: auditor,
		metrics: m,
		clock:   clk,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

// Create validates the request against the type's lifecycle, snapshots the
// author, reserves the next number and writes the document. Prescriptions
// with few enough lines sign themselves at creation.
func (s *Service) Create(ctx context.Context, req *model.CreateDocumentRequest, actorID uuid.UUID) (*model.ClinicalDocument, error) {
	lc, ok := lifecycleFor(req.DocType)
	if !ok {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown document type %q", req.DocType))
	}
	if !req.OriginType.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown origin type %q", req.OriginType))
	}
	if err := validateLines(req.DocType, lc, req.Lines); err != nil {
		return nil, err
	}

	author, err := s.staff.Get(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("staff %s", actorID)
		}
		return nil, fmt.Errorf("failed to load author: %w", err)
	}
	if !author.Active || !author.IsPhysician() {
		return nil, apperrors.NewBusinessRule(fmt.Sprintf("staff %s is not an active physician", author.Email))
	}

	if err := s.enrichLines(ctx, req.DocType, req.Lines); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.checkDuplicates(ctx, req, actorID, now); err != nil {
		return nil, err
	}

	doc := &model.ClinicalDocument{
		DocType:         req.DocType,
		OriginType:      req.OriginType,
		OriginID:        req.OriginID,
		PatientID:       req.PatientID,
		PatientName:     req.PatientName,
		PatientDocument: req.PatientDocument,
		AuthorID:        author.ID,
		AuthorName:      author.Name,
		AuthorSpecialty: author.Specialty,
		AuthorLicense:   author.License,
		Status:          lc.Initial,
		Diagnosis:       req.Diagnosis,
		Instructions:    req.Instructions,
		Lines:           buildLines(req.DocType, req.Lines),
	}
	if req.DocType == model.DocumentTypeOrder {
		doc.Priority = req.Priority
		if doc.Priority == "" {
			doc.Priority = model.PriorityRoutine
		}
	}
	if days := s.expiryDays(req.DocType, lc); days > 0 {
		exp := now.AddDate(0, 0, days)
		doc.ExpiresAt = &exp
	}
	if lc.AutoSign && len(req.Lines) <= s.opts.AutoSignMaxLines {
		doc.Signed = true
		doc.SignedAt = &now
	}

	prefix := lc.numberPrefix(req.DocType, req.Lines)
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := s.seq.NextTx(ctx, tx, req.DocType, prefix, now)
		if err != nil {
			return fmt.Errorf("failed to reserve document number: %w", err)
		}
		doc.Number = fmt.Sprintf("%s%s%04d", prefix, now.Format("20060102"), n)
		if doc.Signed {
			doc.SignatureHash = signatureHash(doc.Number, doc.AuthorID, *doc.SignedAt)
		}

		if err := s.docs.CreateTx(ctx, tx, doc); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		if err := s.writeLifecycleEventTx(ctx, tx, model.EventDocumentCreated, doc, "", doc.Status); err != nil {
			return err
		}
		return s.auditor.LogTx(ctx, tx, actorID, model.AuditActionCreate, model.AuditEntityDocument, doc.ID.String(), &audit.LogOptions{
			Changes: doc,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DocumentsCreated.WithLabelValues(string(doc.DocType)).Inc()
	}
	s.logger.Info(fmt.Sprintf("created %s %s for patient %d", strings.ToLower(string(doc.DocType)), doc.Number, doc.PatientID))
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalDocument, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("document %s", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*model.ClinicalDocument, error) {
	doc, err := s.docs.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("document %s", number)
		}
		return nil, fmt.Errorf("failed to get document by number: %w", err)
	}
	return doc, nil
}

// List returns documents without their lines; Get loads them.
func (s *Service) List(ctx context.Context, filters *model.DocumentFilters) ([]*model.ClinicalDocument, int, error) {
	filters.Normalize()
	docs, total, err := s.docs.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, total, nil
}

// Transition moves the document along its type's graph. Only the author may
// transition; FINALIZED signs notes, VOID clears a prescription's signature
// and COMPLETED cascades to order lines.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, req *model.TransitionRequest, actorID uuid.UUID) (*model.ClinicalDocument, error) {
	var out *model.ClinicalDocument
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		doc, err := s.lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.AuthorID != actorID {
			return apperrors.NewPermissionDenied(fmt.Sprintf("only the author may transition document %s", doc.Number))
		}
		if err := s.transitionLocked(ctx, tx, doc, req.Status, req.Reason, actorID); err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if lines, err := s.docs.GetLines(ctx, out.ID); err == nil {
		out.Lines = lines
	}
	return out, nil
}

// Update replaces mutable content while the document is still in its initial
// status and unsigned.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateDocumentRequest, actorID uuid.UUID) (*model.ClinicalDocument, error) {
	var out *model.ClinicalDocument
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		doc, err := s.lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.AuthorID != actorID {
			return apperrors.NewPermissionDenied(fmt.Sprintf("only the author may edit document %s", doc.Number))
		}

		lc, ok := lifecycleFor(doc.DocType)
		if !ok {
			return apperrors.NewValidation(fmt.Sprintf("unknown document type %q", doc.DocType))
		}
		if doc.Status != lc.Initial || doc.Signed {
			return apperrors.NewBusinessRule(fmt.Sprintf("document %s can no longer be edited", doc.Number))
		}

		if req.Diagnosis != nil {
			doc.Diagnosis = *req.Diagnosis
		}
		if req.Instructions != nil {
			doc.Instructions = *req.Instructions
		}
		if req.Priority != nil && doc.DocType == model.DocumentTypeOrder {
			doc.Priority = *req.Priority
		}
		if len(req.Lines) > 0 {
			if err := validateLines(doc.DocType, lc, req.Lines); err != nil {
				return err
			}
			if err := s.enrichLines(ctx, doc.DocType, req.Lines); err != nil {
				return err
			}
			doc.Lines = buildLines(doc.DocType, req.Lines)
			if err := s.docs.ReplaceLinesTx(ctx, tx, doc.ID, doc.Lines); err != nil {
				return fmt.Errorf("failed to replace document lines: %w", err)
			}
		}

		doc.UpdatedAt = s.clock.Now()
		if err := s.docs.UpdateTx(ctx, tx, doc); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		if err := s.auditor.LogTx(ctx, tx, actorID, model.AuditActionUpdate, model.AuditEntityDocument, doc.ID.String(), &audit.LogOptions{
			Changes: req,
		}); err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(out.Lines) == 0 {
		if lines, err := s.docs.GetLines(ctx, out.ID); err == nil {
			out.Lines = lines
		}
	}
	return out, nil
}

// AuthorStats summarizes an author's documents by type and status.
func (s *Service) AuthorStats(ctx context.Context, authorID uuid.UUID) (*model.AuthorDocumentStats, error) {
	counts, err := s.docs.CountByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to count author documents: %w", err)
	}

	stats := &model.AuthorDocumentStats{
		AuthorID: authorID,
		ByType:   make(map[model.DocumentType]int),
		ByStatus: counts,
	}
	for docType, byStatus := range counts {
		for _, n := range byStatus {
			stats.ByType[docType] += n
			stats.Total += n
		}
	}
	return stats, nil
}

func (s *Service) TopPrescribedMedications(ctx context.Context, limit int) ([]*model.RankedItem, error) {
	return s.topLines(ctx, model.DocumentTypePrescription, limit)
}

func (s *Service) TopRequestedExams(ctx context.Context, limit int) ([]*model.RankedItem, error) {
	return s.topLines(ctx, model.DocumentTypeOrder, limit)
}

// ExpireOverduePrescriptions moves prescriptions past their expiry from
// ACTIVE to EXPIRED. Run by the background sweep; the author check does not
// apply but the graph still does.
func (s *Service) ExpireOverduePrescriptions(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}

	due, err := s.docs.ExpiredActivePrescriptions(ctx, s.clock.Now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue prescriptions: %w", err)
	}

	expired := 0
	for _, p := range due {
		var done bool
		err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
			doc, err := s.lockDocument(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			if doc.Status != model.DocumentStatusActive || doc.ExpiresAt == nil || doc.ExpiresAt.After(s.clock.Now()) {
				return nil
			}
			if err := s.transitionLocked(ctx, tx, doc, model.DocumentStatusExpired, "expired", uuid.Nil); err != nil {
				return err
			}
			done = true
			return nil
		})
		if err != nil {
			s.logger.Error(err, fmt.Sprintf("failed to expire prescription %s", p.Number))
			continue
		}
		if done {
			expired++
		}
	}
	return expired, nil
}

// CleanupStaleDrafts soft-deletes draft notes idle longer than the retention
// window. Disabled unless the deployment turns it on.
func (s *Service) CleanupStaleDrafts(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}
	cutoff := s.clock.Now().Add(-olderThan)

	stale, err := s.docs.StaleDrafts(ctx, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale drafts: %w", err)
	}

	removed := 0
	for _, d := range stale {
		var done bool
		err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
			doc, err := s.lockDocument(ctx, tx, d.ID)
			if err != nil {
				return err
			}
			if doc.Status != model.DocumentStatusDraft || doc.Signed || doc.UpdatedAt.After(cutoff) {
				return nil
			}
			if err := s.docs.SoftDeleteTx(ctx, tx, doc.ID, s.clock.Now()); err != nil {
				return fmt.Errorf("failed to soft delete draft: %w", err)
			}
			if err := s.auditor.LogTx(ctx, tx, uuid.Nil, model.AuditActionDeactivate, model.AuditEntityDocument, doc.ID.String(), &audit.LogOptions{
				Metadata: map[string]string{"number": doc.Number, "reason": "stale draft cleanup"},
			}); err != nil {
				return err
			}
			done = true
			return nil
		})
		if err != nil {
			if apperrors.IsCode(err, apperrors.ErrNotFound) {
				continue
			}
			s.logger.Error(err, fmt.Sprintf("failed to clean up draft %s", d.Number))
			continue
		}
		if done {
			removed++
		}
	}
	return removed, nil
}

// transitionLocked applies one graph edge to an already locked document and
// records the side effects. Callers own the author check.
func (s *Service) transitionLocked(ctx context.Context, tx *sqlx.Tx, doc *model.ClinicalDocument, target model.DocumentStatus, reason string, actorID uuid.UUID) error {
	lc, ok := lifecycleFor(doc.DocType)
	if !ok {
		return apperrors.NewValidation(fmt.Sprintf("unknown document type %q", doc.DocType))
	}
	if !lc.CanTransition(doc.Status, target) {
		kind := strings.ToLower(string(doc.DocType)) + " " + doc.Number
		return apperrors.NewInvalidTransition(kind, string(doc.Status), string(target))
	}

	from := doc.Status
	now := s.clock.Now()
	doc.Status = target
	doc.UpdatedAt = now

	switch {
	case lc.SignOnFinalize && target == model.DocumentStatusFinalized:
		doc.FinalizedAt = &now
		doc.Signed = true
		doc.SignedAt = &now
		doc.SignatureHash = signatureHash(doc.Number, doc.AuthorID, now)
	case doc.DocType == model.DocumentTypePrescription && target == model.DocumentStatusVoid:
		doc.Signed = false
		doc.SignedAt = nil
		doc.SignatureHash = ""
	case doc.DocType == model.DocumentTypeOrder && target == model.DocumentStatusCompleted:
		if err := s.docs.UpdateLineStatusTx(ctx, tx, doc.ID, string(model.DocumentStatusCompleted)); err != nil {
			return fmt.Errorf("failed to complete order lines: %w", err)
		}
	}

	if err := s.docs.UpdateTx(ctx, tx, doc); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if err := s.writeLifecycleEventTx(ctx, tx, model.EventDocumentTransition, doc, from, target); err != nil {
		return err
	}
	if err := s.auditor.LogTx(ctx, tx, actorID, model.AuditActionTransition, model.AuditEntityDocument, doc.ID.String(), &audit.LogOptions{
		Changes:  map[string]string{"from": string(from), "to": string(target)},
		Metadata: map[string]string{"number": doc.Number, "reason": reason},
	}); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.DocumentTransitions.WithLabelValues(string(doc.DocType), string(from), string(target)).Inc()
	}
	return nil
}

func (s *Service) lockDocument(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.ClinicalDocument, error) {
	doc, err := s.docs.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("document %s", id)
		}
		return nil, fmt.Errorf("failed to lock document: %w", err)
	}
	return doc, nil
}

func (s *Service) topLines(ctx context.Context, docType model.DocumentType, limit int) ([]*model.RankedItem, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}
	items, err := s.docs.TopLineCodes(ctx, docType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank line codes: %w", err)
	}
	return items, nil
}

func (s *Service) expiryDays(docType model.DocumentType, lc Lifecycle) int {
	if lc.ExpiresAfterDays <= 0 {
		return 0
	}
	if docType == model.DocumentTypePrescription {
		return s.opts.PrescriptionExpiryDays
	}
	return lc.ExpiresAfterDays
}

func (s *Service) checkDuplicates(ctx context.Context, req *model.CreateDocumentRequest, authorID uuid.UUID, day time.Time) error {
	switch req.DocType {
	case model.DocumentTypePrescription:
		exists, err := s.docs.HasSameDayDocument(ctx, req.DocType, req.PatientID, req.OriginType, req.OriginID, day,
			[]model.DocumentStatus{model.DocumentStatusActive, model.DocumentStatusDispensed})
		if err != nil {
			return fmt.Errorf("failed to check duplicate prescriptions: %w", err)
		}
		if exists {
			return apperrors.NewBusinessRule(fmt.Sprintf("patient %d already has a prescription for this encounter today", req.PatientID))
		}
	case model.DocumentTypeOrder:
		open := []model.DocumentStatus{model.DocumentStatusPending, model.DocumentStatusScheduled, model.DocumentStatusInProgress}
		for _, line := range req.Lines {
			if line.Code == "" {
				continue
			}
			exists, err := s.docs.HasSameDayLineCode(ctx, model.DocumentTypeOrder, req.PatientID, line.Code, day, open)
			if err != nil {
				return fmt.Errorf("failed to check duplicate orders: %w", err)
			}
			if exists {
				return apperrors.NewBusinessRule(fmt.Sprintf("exam %s already ordered for patient %d today", line.Code, req.PatientID))
			}
		}
	case model.DocumentTypeNote:
		draft, err := s.docs.OpenDraftByAuthor(ctx, authorID, req.OriginType, req.OriginID)
		if err != nil {
			return fmt.Errorf("failed to check open drafts: %w", err)
		}
		if draft != nil {
			return apperrors.NewBusinessRule(fmt.Sprintf("draft note %s already exists for this encounter", draft.Number))
		}
	}
	return nil
}

func (s *Service) enrichLines(ctx context.Context, docType model.DocumentType, lines []model.DocumentLineRequest) error {
	if s.catalog == nil {
		return nil
	}
	for i := range lines {
		if lines[i].Code == "" || lines[i].Name != "" {
			continue
		}

		var (
			name string
			err  error
		)
		switch docType {
		case model.DocumentTypePrescription:
			name, err = s.catalog.MedicationName(ctx, lines[i].Code)
		case model.DocumentTypeOrder:
			name, err = s.catalog.ExamName(ctx, lines[i].Code)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to resolve line code %s: %w", lines[i].Code, err)
		}
		if name == "" {
			return apperrors.NewValidation(fmt.Sprintf("unknown catalog code %s", lines[i].Code))
		}
		lines[i].Name = name
	}
	return nil
}

func (s *Service) writeLifecycleEventTx(ctx context.Context, tx *sqlx.Tx, eventType string, doc *model.ClinicalDocument, from, to model.DocumentStatus) error {
	payload, err := json.Marshal(map[string]interface{}{
		"document_id": doc.ID,
		"number":      doc.Number,
		"doc_type":    doc.DocType,
		"patient_id":  doc.PatientID,
		"from":        from,
		"to":          to,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document event: %w", err)
	}
	return s.outbox.CreateTx(ctx, tx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	})
}

func validateLines(docType model.DocumentType, lc Lifecycle, lines []model.DocumentLineRequest) error {
	if len(lines) < lc.MinLines || len(lines) > lc.MaxLines {
		return apperrors.NewValidation(fmt.Sprintf("%s requires between %d and %d lines, got %d",
			strings.ToLower(string(docType)), lc.MinLines, lc.MaxLines, len(lines)))
	}

	for i, line := range lines {
		switch docType {
		case model.DocumentTypePrescription:
			if line.Code == "" && line.Name == "" {
				return apperrors.NewValidation(fmt.Sprintf("line %d: medication code or name is required", i+1))
			}
			if line.Quantity < 1 {
				return apperrors.NewValidation(fmt.Sprintf("line %d: quantity must be at least 1", i+1))
			}
		case model.DocumentTypeOrder:
			if line.Code == "" && line.Name == "" {
				return apperrors.NewValidation(fmt.Sprintf("line %d: exam code or name is required", i+1))
			}
			if line.Category == "" {
				return apperrors.NewValidation(fmt.Sprintf("line %d: category is required", i+1))
			}
			if !line.Category.Valid() {
				return apperrors.NewValidation(fmt.Sprintf("line %d: unknown category %s", i+1, line.Category))
			}
		case model.DocumentTypeNote:
			if strings.TrimSpace(line.Body) == "" {
				return apperrors.NewValidation("note body is required")
			}
		}
	}
	return nil
}

func buildLines(docType model.DocumentType, reqs []model.DocumentLineRequest) []model.DocumentLine {
	lines := make([]model.DocumentLine, 0, len(reqs))
	for _, r := range reqs {
		line := model.DocumentLine{
			Code:          r.Code,
			Name:          r.Name,
			Quantity:      r.Quantity,
			Unit:          r.Unit,
			Instructions:  r.Instructions,
			Duration:      r.Duration,
			Category:      r.Category,
			Urgent:        r.Urgent,
			Substitutable: r.Substitutable,
			Body:          r.Body,
		}
		if docType == model.DocumentTypeOrder {
			line.Status = string(model.DocumentStatusPending)
		}
		lines = append(lines, line)
	}
	return lines
}

// signatureHash ties number, author and signing time together for tamper
// evidence. It is not a cryptographic signature and offers no non-repudiation.
func signatureHash(number string, authorID uuid.UUID, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", number, authorID, at.Unix())))
	return hex.EncodeToString(sum[:])
}
