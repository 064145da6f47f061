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

const occupancyColumns = `
	e.id, e.bed_id, b.code AS bed_code, b.ward,
	e.patient_id, e.patient_name, e.patient_document,
	e.admitted_at, e.discharged_at, e.admission_reason, e.discharge_reason,
	e.attending_staff, e.diagnosis, e.notes, e.stay_days, e.created_by,
	e.created_at, e.updated_at, e.deleted_at
`

func (r *occupancyRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, entry *model.OccupancyEntry) error {
	query := `
		INSERT INTO occupancy_entries (
			id, bed_id, patient_id, patient_name, patient_document,
			admitted_at, admission_reason, attending_staff, diagnosis, notes,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		entry.ID,
		entry.BedID,
		entry.PatientID,
		entry.PatientName,
		entry.PatientDocument,
		entry.AdmittedAt,
		entry.AdmissionReason,
		entry.AttendingStaff,
		entry.Diagnosis,
		entry.Notes,
		entry.CreatedBy,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create occupancy entry: %w", err)
	}
	return nil
}

func (r *occupancyRepository) Get(ctx context.Context, id uuid.UUID) (*model.OccupancyEntry, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.id = $1 AND e.deleted_at IS NULL
	`
	var entry model.OccupancyEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, fmt.Errorf("failed to get occupancy entry: %w", err)
	}
	return &entry, nil
}

func (r *occupancyRepository) OpenByBed(ctx context.Context, bedID uuid.UUID) (*model.OccupancyEntry, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.bed_id = $1 AND e.discharged_at IS NULL AND e.deleted_at IS NULL
	`
	var entry model.OccupancyEntry
	err := r.db.GetContext(ctx, &entry, query, bedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open entry for bed: %w", err)
	}
	return &entry, nil
}

func (r *occupancyRepository) OpenByBedTx(ctx context.Context, tx *sqlx.Tx, bedID uuid.UUID) (*model.OccupancyEntry, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.bed_id = $1 AND e.discharged_at IS NULL AND e.deleted_at IS NULL
		FOR UPDATE OF e
	`
	var entry model.OccupancyEntry
	err := tx.GetContext(ctx, &entry, query, bedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock open entry for bed: %w", err)
	}
	return &entry, nil
}

func (r *occupancyRepository) OpenByPatient(ctx context.Context, patientID int64) (*model.OccupancyEntry, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.patient_id = $1 AND e.discharged_at IS NULL AND e.deleted_at IS NULL
	`
	var entry model.OccupancyEntry
	err := r.db.GetContext(ctx, &entry, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open entry for patient: %w", err)
	}
	return &entry, nil
}

// OpenByPatientTx runs the patient check inside tx so a transfer sees its own
// uncommitted discharge.
func (r *occupancyRepository) OpenByPatientTx(ctx context.Context, tx *sqlx.Tx, patientID int64) (*model.OccupancyEntry, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.patient_id = $1 AND e.discharged_at IS NULL AND e.deleted_at IS NULL
	`
	var entry model.OccupancyEntry
	err := tx.GetContext(ctx, &entry, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open entry for patient: %w", err)
	}
	return &entry, nil
}

func (r *occupancyRepository) CloseTx(ctx context.Context, tx *sqlx.Tx, entry *model.OccupancyEntry) error {
	query := `
		UPDATE occupancy_entries
		SET discharged_at = $1, discharge_reason = $2, notes = $3,
			stay_days = $4, updated_at = NOW()
		WHERE id = $5 AND discharged_at IS NULL
	`
	result, err := tx.ExecContext(ctx, query,
		entry.DischargedAt,
		entry.DischargeReason,
		entry.Notes,
		entry.StayDays,
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to close occupancy entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("occupancy entry already closed")
	}
	return nil
}

func (r *occupancyRepository) HistoryByBed(ctx context.Context, bedID uuid.UUID, limit int) ([]*model.OccupancyEntry, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.bed_id = $1 AND e.deleted_at IS NULL
		ORDER BY e.admitted_at DESC
		LIMIT $2
	`
	var entries []*model.OccupancyEntry
	if err := r.db.SelectContext(ctx, &entries, query, bedID, limit); err != nil {
		return nil, fmt.Errorf("failed to list bed history: %w", err)
	}
	return entries, nil
}

func (r *occupancyRepository) SearchOpen(ctx context.Context, filters *model.PatientSearchFilters) ([]*model.OccupancyEntry, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.discharged_at IS NULL AND e.deleted_at IS NULL
	`
	args := []interface{}{}
	argCount := 1

	if filters.Query != "" {
		query += fmt.Sprintf(" AND (e.patient_name ILIKE $%d OR e.patient_document ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+filters.Query+"%")
		argCount++
	}
	if filters.Ward != "" {
		query += fmt.Sprintf(" AND b.ward = $%d", argCount)
		args = append(args, filters.Ward)
		argCount++
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY e.admitted_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	var entries []*model.OccupancyEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search open entries: %w", err)
	}
	return entries, nil
}

func (r *occupancyRepository) CountInWindow(ctx context.Context, from, to time.Time, ward string) (int, int, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE e.admitted_at >= $1 AND e.admitted_at < $2) AS admissions,
			   COUNT(*) FILTER (WHERE e.discharged_at >= $1 AND e.discharged_at < $2) AS discharges
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.deleted_at IS NULL
	`
	args := []interface{}{from, to}
	if ward != "" {
		query += " AND b.ward = $3"
		args = append(args, ward)
	}

	var row struct {
		Admissions int `db:"admissions"`
		Discharges int `db:"discharges"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return 0, 0, fmt.Errorf("failed to count movements in window: %w", err)
	}
	return row.Admissions, row.Discharges, nil
}

func (r *occupancyRepository) CountOpen(ctx context.Context, ward string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.discharged_at IS NULL AND e.deleted_at IS NULL
	`
	args := []interface{}{}
	if ward != "" {
		query += " AND b.ward = $1"
		args = append(args, ward)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count open entries: %w", err)
	}
	return count, nil
}

func (r *occupancyRepository) AvgStayDays(ctx context.Context, from, to time.Time, ward string) (float64, error) {
	query := `
		SELECT COALESCE(AVG(e.stay_days), 0)
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE e.discharged_at >= $1 AND e.discharged_at < $2
		AND e.stay_days IS NOT NULL AND e.deleted_at IS NULL
	`
	args := []interface{}{from, to}
	if ward != "" {
		query += " AND b.ward = $3"
		args = append(args, ward)
	}

	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, args...); err != nil {
		return 0, fmt.Errorf("failed to average stay days: %w", err)
	}
	return avg, nil
}

// movementRow flattens the UNION of admissions and discharges for scanning.
type movementRow struct {
	MovementType string    `db:"movement_type"`
	MovedAt      time.Time `db:"moved_at"`
	model.OccupancyEntry
}

func (r *occupancyRepository) Movements(ctx context.Context, filters *model.ReportFilters) ([]*model.Movement, int, error) {
	base := func(movementType, atColumn string) string {
		return `
		SELECT '` + movementType + `' AS movement_type, ` + atColumn + ` AS moved_at, ` + occupancyColumns + `
		FROM occupancy_entries e
		JOIN beds b ON b.id = e.bed_id
		WHERE ` + atColumn + ` >= :from AND ` + atColumn + ` < :to
		AND e.deleted_at IS NULL
		AND (:ward = '' OR b.ward = :ward)`
	}

	var parts []string
	if filters.MovementType == "" || filters.MovementType == model.MovementAdmission {
		parts = append(parts, base(string(model.MovementAdmission), "e.admitted_at"))
	}
	if filters.MovementType == "" || filters.MovementType == model.MovementDischarge {
		parts = append(parts, base(string(model.MovementDischarge), "e.discharged_at"))
	}

	union := parts[0]
	for _, p := range parts[1:] {
		union += " UNION ALL " + p
	}

	params := map[string]interface{}{
		"from":   filters.From,
		"to":     filters.To,
		"ward":   filters.Ward,
		"limit":  filters.PageSize,
		"offset": filters.Offset(),
	}

	countQuery, countArgs, err := sqlx.Named(`SELECT COUNT(*) FROM (`+union+`) m`, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build movements count query: %w", err)
	}
	countQuery = r.db.Rebind(countQuery)

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	pageQuery, pageArgs, err := sqlx.Named(union+` ORDER BY moved_at DESC LIMIT :limit OFFSET :offset`, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build movements query: %w", err)
	}
	pageQuery = r.db.Rebind(pageQuery)

	var rows []movementRow
	if err := r.db.SelectContext(ctx, &rows, pageQuery, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list movements: %w", err)
	}

	movements := make([]*model.Movement, 0, len(rows))
	for _, row := range rows {
		movements = append(movements, &model.Movement{
			Type:  model.MovementType(row.MovementType),
			At:    row.MovedAt,
			Entry: row.OccupancyEntry,
		})
	}
	return movements, total, nil
}
