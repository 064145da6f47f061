package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
)

const bedColumns = `
	id, code, ward, wing, floor, room, bed_type,
	has_oxygen, has_monitor, isolation, state, active, notes,
	created_at, updated_at, deleted_at
`

func (r *bedRepository) Create(ctx context.Context, bed *model.Bed) error {
	query := `
		INSERT INTO beds (
			id, code, ward, wing, floor, room, bed_type,
			has_oxygen, has_monitor, isolation, state, active, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	bed.ID = uuid.New()
	bed.CreatedAt = time.Now()
	bed.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		bed.ID,
		bed.Code,
		bed.Ward,
		bed.Wing,
		bed.Floor,
		bed.Room,
		bed.BedType,
		bed.HasOxygen,
		bed.HasMonitor,
		bed.Isolation,
		bed.State,
		bed.Active,
		bed.Notes,
		bed.CreatedAt,
		bed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bed: %w", err)
	}
	return nil
}

func (r *bedRepository) Get(ctx context.Context, id uuid.UUID) (*model.Bed, error) {
	query := `SELECT ` + bedColumns + ` FROM beds WHERE id = $1 AND deleted_at IS NULL`

	var bed model.Bed
	if err := r.db.GetContext(ctx, &bed, query, id); err != nil {
		return nil, fmt.Errorf("failed to get bed: %w", err)
	}
	return &bed, nil
}

func (r *bedRepository) GetByCode(ctx context.Context, code string) (*model.Bed, error) {
	query := `SELECT ` + bedColumns + ` FROM beds WHERE code = $1 AND deleted_at IS NULL`

	var bed model.Bed
	if err := r.db.GetContext(ctx, &bed, query, code); err != nil {
		return nil, fmt.Errorf("failed to get bed by code: %w", err)
	}
	return &bed, nil
}

func (r *bedRepository) GetByCodeForUpdate(ctx context.Context, tx *sqlx.Tx, code string) (*model.Bed, error) {
	query := `SELECT ` + bedColumns + ` FROM beds WHERE code = $1 AND deleted_at IS NULL FOR UPDATE`

	var bed model.Bed
	if err := tx.GetContext(ctx, &bed, query, code); err != nil {
		return nil, fmt.Errorf("failed to lock bed: %w", err)
	}
	return &bed, nil
}

func (r *bedRepository) List(ctx context.Context, filters *model.BedFilters) ([]*model.Bed, error) {
	query := `SELECT ` + bedColumns + ` FROM beds WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	if !filters.IncludeInactive {
		query += " AND active = TRUE"
	}
	if filters.Ward != "" {
		query += fmt.Sprintf(" AND ward = $%d", argCount)
		args = append(args, filters.Ward)
		argCount++
	}
	if filters.Wing != "" {
		query += fmt.Sprintf(" AND wing = $%d", argCount)
		args = append(args, filters.Wing)
		argCount++
	}
	if filters.BedType != "" {
		query += fmt.Sprintf(" AND bed_type = $%d", argCount)
		args = append(args, filters.BedType)
		argCount++
	}
	if filters.State != "" {
		query += fmt.Sprintf(" AND state = $%d", argCount)
		args = append(args, filters.State)
		argCount++
	}
	if filters.AvailableOnly {
		query += fmt.Sprintf(" AND state = $%d", argCount)
		args = append(args, model.BedStateAvailable)
		argCount++
	}

	query += " ORDER BY ward, wing, code"

	var beds []*model.Bed
	if err := r.db.SelectContext(ctx, &beds, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	return beds, nil
}

func (r *bedRepository) UpdateState(ctx context.Context, id uuid.UUID, state model.BedState, notes string) error {
	query := `
		UPDATE beds
		SET state = $1,
			notes = CASE WHEN $2 <> '' THEN $2 ELSE notes END,
			updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, state, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update bed state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bed not found")
	}
	return nil
}

func (r *bedRepository) UpdateStateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, state model.BedState) error {
	query := `UPDATE beds SET state = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, state, id); err != nil {
		return fmt.Errorf("failed to update bed state: %w", err)
	}
	return nil
}

func (r *bedRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE beds
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate bed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bed not found")
	}
	return nil
}

func (r *bedRepository) WardSummaries(ctx context.Context) ([]*model.WardSummary, error) {
	query := `
		SELECT ward, wing, COUNT(*) AS total
		FROM beds
		WHERE active = TRUE AND deleted_at IS NULL
		GROUP BY ward, wing
		ORDER BY ward, wing
	`
	var summaries []*model.WardSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("failed to list ward summaries: %w", err)
	}
	return summaries, nil
}

func (r *bedRepository) CountByState(ctx context.Context, filters *model.OccupancyStatsFilters) ([]*model.WardOccupancy, error) {
	query := `
		SELECT ward, wing,
			   COUNT(*) AS total,
			   COUNT(*) FILTER (WHERE state = 'OCCUPIED') AS occupied,
			   COUNT(*) FILTER (WHERE state = 'AVAILABLE') AS available,
			   COUNT(*) FILTER (WHERE state = 'MAINTENANCE') AS maintenance,
			   COUNT(*) FILTER (WHERE state = 'CLEANING') AS cleaning,
			   COUNT(*) FILTER (WHERE state = 'BLOCKED') AS blocked
		FROM beds
		WHERE active = TRUE AND deleted_at IS NULL
	`
	args := []interface{}{}
	argCount := 1

	if filters.Ward != "" {
		query += fmt.Sprintf(" AND ward = $%d", argCount)
		args = append(args, filters.Ward)
		argCount++
	}
	if filters.Wing != "" {
		query += fmt.Sprintf(" AND wing = $%d", argCount)
		args = append(args, filters.Wing)
		argCount++
	}

	query += " GROUP BY ward, wing ORDER BY ward, wing"

	var groups []*model.WardOccupancy
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count beds by state: %w", err)
	}
	return groups, nil
}
