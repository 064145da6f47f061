package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/internal/model"
)

func TestDocumentHasSameDayDocumentExpandsStatuses(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &documentRepository{NewBaseRepository(db)}

	day := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	// sqlx.In flattens the status slice into one placeholder each.
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(
			model.DocumentTypePrescription,
			int64(4471),
			model.OriginConsultation,
			int64(88),
			start,
			end,
			model.DocumentStatusActive,
			model.DocumentStatusDispensed,
		).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.HasSameDayDocument(
		context.Background(),
		model.DocumentTypePrescription,
		4471,
		model.OriginConsultation,
		88,
		day,
		[]model.DocumentStatus{model.DocumentStatusActive, model.DocumentStatusDispensed},
	)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentHasSameDayLineCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &documentRepository{NewBaseRepository(db)}

	day := time.Date(2026, 3, 10, 16, 45, 0, 0, time.UTC)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	mock.ExpectQuery("JOIN document_lines l").
		WithArgs(
			model.DocumentTypeOrder,
			int64(4471),
			"HEMOGRAMA",
			start,
			end,
			model.DocumentStatusPending,
			model.DocumentStatusScheduled,
			model.DocumentStatusInProgress,
		).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.HasSameDayLineCode(
		context.Background(),
		model.DocumentTypeOrder,
		4471,
		"HEMOGRAMA",
		day,
		[]model.DocumentStatus{model.DocumentStatusPending, model.DocumentStatusScheduled, model.DocumentStatusInProgress},
	)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentListAppendsFilterArgs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &documentRepository{NewBaseRepository(db)}

	authorID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(model.DocumentTypePrescription, model.DocumentStatusActive, authorID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(model.DocumentTypePrescription, model.DocumentStatusActive, authorID, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "doc_type", "status"}))

	filters := &model.DocumentFilters{
		DocType:  model.DocumentTypePrescription,
		Status:   model.DocumentStatusActive,
		AuthorID: authorID,
	}
	filters.Normalize()

	docs, total, err := repo.List(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentUpdateTxRequiresLiveRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &documentRepository{NewBaseRepository(db)}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE clinical_documents").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Beginx()
	require.NoError(t, err)

	doc := &model.ClinicalDocument{}
	doc.ID = uuid.New()
	err = repo.UpdateTx(context.Background(), tx, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document not found")
}
