package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
)

// TxRunner runs a function inside a database transaction. Services use it to
// compose writes across repositories atomically.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

// All repository interfaces in one file
type (
	BedRepository interface {
		Create(ctx context.Context, bed *model.Bed) error
		Get(ctx context.Context, id uuid.UUID) (*model.Bed, error)
		GetByCode(ctx context.Context, code string) (*model.Bed, error)
		// GetByCodeForUpdate locks the bed row inside tx so concurrent
		// admissions serialize on it.
		GetByCodeForUpdate(ctx context.Context, tx *sqlx.Tx, code string) (*model.Bed, error)
		List(ctx context.Context, filters *model.BedFilters) ([]*model.Bed, error)
		UpdateState(ctx context.Context, id uuid.UUID, state model.BedState, notes string) error
		UpdateStateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, state model.BedState) error
		Deactivate(ctx context.Context, id uuid.UUID) error
		WardSummaries(ctx context.Context) ([]*model.WardSummary, error)
		CountByState(ctx context.Context, filters *model.OccupancyStatsFilters) ([]*model.WardOccupancy, error)
	}

	OccupancyRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, entry *model.OccupancyEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.OccupancyEntry, error)
		// OpenByBed/OpenByPatient return the open entry or nil when none.
		OpenByBed(ctx context.Context, bedID uuid.UUID) (*model.OccupancyEntry, error)
		OpenByBedTx(ctx context.Context, tx *sqlx.Tx, bedID uuid.UUID) (*model.OccupancyEntry, error)
		OpenByPatient(ctx context.Context, patientID int64) (*model.OccupancyEntry, error)
		OpenByPatientTx(ctx context.Context, tx *sqlx.Tx, patientID int64) (*model.OccupancyEntry, error)
		CloseTx(ctx context.Context, tx *sqlx.Tx, entry *model.OccupancyEntry) error
		HistoryByBed(ctx context.Context, bedID uuid.UUID, limit int) ([]*model.OccupancyEntry, error)
		SearchOpen(ctx context.Context, filters *model.PatientSearchFilters) ([]*model.OccupancyEntry, error)
		CountInWindow(ctx context.Context, from, to time.Time, ward string) (admissions, discharges int, err error)
		CountOpen(ctx context.Context, ward string) (int, error)
		AvgStayDays(ctx context.Context, from, to time.Time, ward string) (float64, error)
		Movements(ctx context.Context, filters *model.ReportFilters) ([]*model.Movement, int, error)
	}

	DocumentRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, doc *model.ClinicalDocument) error
		Get(ctx context.Context, id uuid.UUID) (*model.ClinicalDocument, error)
		GetByNumber(ctx context.Context, number string) (*model.ClinicalDocument, error)
		// GetForUpdate locks the document row for a status transition.
		GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.ClinicalDocument, error)
		List(ctx context.Context, filters *model.DocumentFilters) ([]*model.ClinicalDocument, int, error)
		UpdateTx(ctx context.Context, tx *sqlx.Tx, doc *model.ClinicalDocument) error
		ReplaceLinesTx(ctx context.Context, tx *sqlx.Tx, docID uuid.UUID, lines []model.DocumentLine) error
		GetLines(ctx context.Context, docID uuid.UUID) ([]model.DocumentLine, error)
		UpdateLineStatusTx(ctx context.Context, tx *sqlx.Tx, docID uuid.UUID, status string) error
		// HasSameDay supports the per-type duplicate rules.
		HasSameDayDocument(ctx context.Context, docType model.DocumentType, patientID int64, originType model.OriginType, originID int64, day time.Time, statuses []model.DocumentStatus) (bool, error)
		HasSameDayLineCode(ctx context.Context, docType model.DocumentType, patientID int64, code string, day time.Time, statuses []model.DocumentStatus) (bool, error)
		OpenDraftByAuthor(ctx context.Context, authorID uuid.UUID, originType model.OriginType, originID int64) (*model.ClinicalDocument, error)
		ExpiredActivePrescriptions(ctx context.Context, asOf time.Time, limit int) ([]*model.ClinicalDocument, error)
		StaleDrafts(ctx context.Context, cutoff time.Time, limit int) ([]*model.ClinicalDocument, error)
		SoftDeleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error
		CountByAuthor(ctx context.Context, authorID uuid.UUID) (map[model.DocumentType]map[model.DocumentStatus]int, error)
		TopLineCodes(ctx context.Context, docType model.DocumentType, limit int) ([]*model.RankedItem, error)
	}

	// SequenceRepository hands out daily per-prefix counters. NextTx must be
	// called inside the document creation transaction; the upsert locks the
	// counter row until commit.
	SequenceRepository interface {
		NextTx(ctx context.Context, tx *sqlx.Tx, docType model.DocumentType, prefix string, day time.Time) (int, error)
	}

	StaffRepository interface {
		Create(ctx context.Context, staff *model.Staff) error
		Get(ctx context.Context, id uuid.UUID) (*model.Staff, error)
		GetByEmail(ctx context.Context, email string) (*model.Staff, error)
		Update(ctx context.Context, staff *model.Staff) error
		Deactivate(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.StaffFilters) ([]*model.Staff, error)
	}

	CatalogRepository interface {
		SearchMedications(ctx context.Context, query string, limit int) ([]*model.Medication, error)
		GetMedicationByCode(ctx context.Context, code string) (*model.Medication, error)
		SearchExamTypes(ctx context.Context, query string, category model.LineCategory, limit int) ([]*model.ExamType, error)
		GetExamTypeByCode(ctx context.Context, code string) (*model.ExamType, error)
		ListExamCategories(ctx context.Context) ([]string, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		CreateTx(ctx context.Context, tx *sqlx.Tx, log *model.AuditLog) error
		ListWithPagination(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, int64, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		BeginTx(ctx context.Context) (*sql.Tx, error)
		UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
