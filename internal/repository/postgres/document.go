package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
)

const documentColumns = `
	id, number, doc_type, origin_type, origin_id,
	patient_id, patient_name, patient_document,
	author_id, author_name, author_specialty, author_license,
	status, signed, signed_at, signature_hash,
	diagnosis, instructions, priority, expires_at, finalized_at,
	created_at, updated_at, deleted_at
`

const lineColumns = `
	id, document_id, line_no, code, name, quantity, unit,
	instructions, duration, category, urgent, substitutable, body, status, created_at
`

func (r *documentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, doc *model.ClinicalDocument) error {
	query := `
		INSERT INTO clinical_documents (
			id, number, doc_type, origin_type, origin_id,
			patient_id, patient_name, patient_document,
			author_id, author_name, author_specialty, author_license,
			status, signed, signed_at, signature_hash,
			diagnosis, instructions, priority, expires_at, finalized_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)
	`
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		doc.ID,
		doc.Number,
		doc.DocType,
		doc.OriginType,
		doc.OriginID,
		doc.PatientID,
		doc.PatientName,
		doc.PatientDocument,
		doc.AuthorID,
		doc.AuthorName,
		doc.AuthorSpecialty,
		doc.AuthorLicense,
		doc.Status,
		doc.Signed,
		doc.SignedAt,
		doc.SignatureHash,
		doc.Diagnosis,
		doc.Instructions,
		doc.Priority,
		doc.ExpiresAt,
		doc.FinalizedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return r.insertLinesTx(ctx, tx, doc.ID, doc.Lines)
}

func (r *documentRepository) insertLinesTx(ctx context.Context, tx *sqlx.Tx, docID uuid.UUID, lines []model.DocumentLine) error {
	query := `
		INSERT INTO document_lines (
			id, document_id, line_no, code, name, quantity, unit,
			instructions, duration, category, urgent, substitutable, body, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	for i := range lines {
		line := &lines[i]
		line.ID = uuid.New()
		line.DocumentID = docID
		line.LineNo = i + 1
		line.CreatedAt = time.Now()

		_, err := tx.ExecContext(ctx, query,
			line.ID,
			line.DocumentID,
			line.LineNo,
			line.Code,
			line.Name,
			line.Quantity,
			line.Unit,
			line.Instructions,
			line.Duration,
			line.Category,
			line.Urgent,
			line.Substitutable,
			line.Body,
			line.Status,
			line.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create document line %d: %w", line.LineNo, err)
		}
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM clinical_documents WHERE id = $1 AND deleted_at IS NULL`

	var doc model.ClinicalDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	lines, err := r.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return &doc, nil
}

func (r *documentRepository) GetByNumber(ctx context.Context, number string) (*model.ClinicalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM clinical_documents WHERE number = $1 AND deleted_at IS NULL`

	var doc model.ClinicalDocument
	if err := r.db.GetContext(ctx, &doc, query, number); err != nil {
		return nil, fmt.Errorf("failed to get document by number: %w", err)
	}

	lines, err := r.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return &doc, nil
}

func (r *documentRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.ClinicalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM clinical_documents WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	var doc model.ClinicalDocument
	if err := tx.GetContext(ctx, &doc, query, id); err != nil {
		return nil, fmt.Errorf("failed to lock document: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, filters *model.DocumentFilters) ([]*model.ClinicalDocument, int, error) {
	where := ` FROM clinical_documents WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	addFilter := func(clause string, value interface{}) {
		where += fmt.Sprintf(" AND "+clause, argCount)
		args = append(args, value)
		argCount++
	}

	if filters.DocType != "" {
		addFilter("doc_type = $%d", filters.DocType)
	}
	if filters.Status != "" {
		addFilter("status = $%d", filters.Status)
	}
	if filters.PatientID != 0 {
		addFilter("patient_id = $%d", filters.PatientID)
	}
	if filters.AuthorID != uuid.Nil {
		addFilter("author_id = $%d", filters.AuthorID)
	}
	if filters.OriginType != "" {
		addFilter("origin_type = $%d", filters.OriginType)
	}
	if filters.OriginID != 0 {
		addFilter("origin_id = $%d", filters.OriginID)
	}
	if !filters.From.IsZero() {
		addFilter("created_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		addFilter("created_at < $%d", filters.To)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	query := `SELECT ` + documentColumns + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.PageSize, filters.Offset())

	var docs []*model.ClinicalDocument
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, total, nil
}

func (r *documentRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, doc *model.ClinicalDocument) error {
	query := `
		UPDATE clinical_documents
		SET status = $1, signed = $2, signed_at = $3, signature_hash = $4,
			diagnosis = $5, instructions = $6, priority = $7,
			expires_at = $8, finalized_at = $9, updated_at = NOW()
		WHERE id = $10 AND deleted_at IS NULL
	`
	result, err := tx.ExecContext(ctx, query,
		doc.Status,
		doc.Signed,
		doc.SignedAt,
		doc.SignatureHash,
		doc.Diagnosis,
		doc.Instructions,
		doc.Priority,
		doc.ExpiresAt,
		doc.FinalizedAt,
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document not found")
	}
	return nil
}

func (r *documentRepository) ReplaceLinesTx(ctx context.Context, tx *sqlx.Tx, docID uuid.UUID, lines []model.DocumentLine) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_lines WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("failed to delete document lines: %w", err)
	}
	return r.insertLinesTx(ctx, tx, docID, lines)
}

func (r *documentRepository) GetLines(ctx context.Context, docID uuid.UUID) ([]model.DocumentLine, error) {
	query := `SELECT ` + lineColumns + ` FROM document_lines WHERE document_id = $1 ORDER BY line_no`

	var lines []model.DocumentLine
	if err := r.db.SelectContext(ctx, &lines, query, docID); err != nil {
		return nil, fmt.Errorf("failed to get document lines: %w", err)
	}
	return lines, nil
}

func (r *documentRepository) UpdateLineStatusTx(ctx context.Context, tx *sqlx.Tx, docID uuid.UUID, status string) error {
	query := `UPDATE document_lines SET status = $1 WHERE document_id = $2`
	if _, err := tx.ExecContext(ctx, query, status, docID); err != nil {
		return fmt.Errorf("failed to update line statuses: %w", err)
	}
	return nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.Add(24 * time.Hour)
}

func (r *documentRepository) HasSameDayDocument(ctx context.Context, docType model.DocumentType, patientID int64, originType model.OriginType, originID int64, day time.Time, statuses []model.DocumentStatus) (bool, error) {
	start, end := dayBounds(day)
	query := `
		SELECT EXISTS (
			SELECT 1 FROM clinical_documents
			WHERE doc_type = ? AND patient_id = ?
			AND origin_type = ? AND origin_id = ?
			AND created_at >= ? AND created_at < ?
			AND status IN (?)
			AND deleted_at IS NULL
		)
	`
	query, args, err := sqlx.In(query, docType, patientID, originType, originID, start, end, statuses)
	if err != nil {
		return false, fmt.Errorf("failed to build same-day query: %w", err)
	}
	query = r.db.Rebind(query)

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check same-day document: %w", err)
	}
	return exists, nil
}

func (r *documentRepository) HasSameDayLineCode(ctx context.Context, docType model.DocumentType, patientID int64, code string, day time.Time, statuses []model.DocumentStatus) (bool, error) {
	start, end := dayBounds(day)
	query := `
		SELECT EXISTS (
			SELECT 1 FROM clinical_documents d
			JOIN document_lines l ON l.document_id = d.id
			WHERE d.doc_type = ? AND d.patient_id = ? AND l.code = ?
			AND d.created_at >= ? AND d.created_at < ?
			AND d.status IN (?)
			AND d.deleted_at IS NULL
		)
	`
	query, args, err := sqlx.In(query, docType, patientID, code, start, end, statuses)
	if err != nil {
		return false, fmt.Errorf("failed to build same-day line query: %w", err)
	}
	query = r.db.Rebind(query)

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check same-day line code: %w", err)
	}
	return exists, nil
}

func (r *documentRepository) OpenDraftByAuthor(ctx context.Context, authorID uuid.UUID, originType model.OriginType, originID int64) (*model.ClinicalDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM clinical_documents
		WHERE doc_type = $1 AND status = $2
		AND author_id = $3 AND origin_type = $4 AND origin_id = $5
		AND deleted_at IS NULL
		LIMIT 1
	`
	var doc model.ClinicalDocument
	err := r.db.GetContext(ctx, &doc, query,
		model.DocumentTypeNote, model.DocumentStatusDraft, authorID, originType, originID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open draft: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) ExpiredActivePrescriptions(ctx context.Context, asOf time.Time, limit int) ([]*model.ClinicalDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM clinical_documents
		WHERE doc_type = $1 AND status = $2
		AND expires_at IS NOT NULL AND expires_at < $3
		AND deleted_at IS NULL
		ORDER BY expires_at
		LIMIT $4
	`
	var docs []*model.ClinicalDocument
	err := r.db.SelectContext(ctx, &docs, query,
		model.DocumentTypePrescription, model.DocumentStatusActive, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired prescriptions: %w", err)
	}
	return docs, nil
}

func (r *documentRepository) StaleDrafts(ctx context.Context, cutoff time.Time, limit int) ([]*model.ClinicalDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM clinical_documents
		WHERE doc_type = $1 AND status = $2
		AND updated_at < $3
		AND deleted_at IS NULL
		ORDER BY updated_at
		LIMIT $4
	`
	var docs []*model.ClinicalDocument
	err := r.db.SelectContext(ctx, &docs, query,
		model.DocumentTypeNote, model.DocumentStatusDraft, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale drafts: %w", err)
	}
	return docs, nil
}

func (r *documentRepository) SoftDeleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE clinical_documents SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to soft delete document: %w", err)
	}
	return nil
}

func (r *documentRepository) CountByAuthor(ctx context.Context, authorID uuid.UUID) (map[model.DocumentType]map[model.DocumentStatus]int, error) {
	query := `
		SELECT doc_type, status, COUNT(*) AS count
		FROM clinical_documents
		WHERE author_id = $1 AND deleted_at IS NULL
		GROUP BY doc_type, status
	`
	var rows []struct {
		DocType model.DocumentType   `db:"doc_type"`
		Status  model.DocumentStatus `db:"status"`
		Count   int                  `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, authorID); err != nil {
		return nil, fmt.Errorf("failed to count author documents: %w", err)
	}

	counts := make(map[model.DocumentType]map[model.DocumentStatus]int)
	for _, row := range rows {
		if counts[row.DocType] == nil {
			counts[row.DocType] = make(map[model.DocumentStatus]int)
		}
		counts[row.DocType][row.Status] = row.Count
	}
	return counts, nil
}

func (r *documentRepository) TopLineCodes(ctx context.Context, docType model.DocumentType, limit int) ([]*model.RankedItem, error) {
	query := `
		SELECT l.code, MIN(l.name) AS name, COUNT(*) AS count
		FROM document_lines l
		JOIN clinical_documents d ON d.id = l.document_id
		WHERE d.doc_type = $1 AND l.code <> '' AND d.deleted_at IS NULL
		GROUP BY l.code
		ORDER BY count DESC, l.code
		LIMIT $2
	`
	var items []*model.RankedItem
	if err := r.db.SelectContext(ctx, &items, query, docType, limit); err != nil {
		return nil, fmt.Errorf("failed to rank line codes: %w", err)
	}
	return items, nil
}
