package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{NewBaseRepository(db)}
}

const auditInsert = `
	INSERT INTO audit_logs (
		id, staff_id, action, entity_type, entity_id,
		changes, metadata, ip_address, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	r.prepare(log)
	_, err := r.db.ExecContext(ctx, auditInsert,
		log.ID, log.StaffID, log.Action, log.EntityType, log.EntityID,
		log.Changes, log.Metadata, log.IPAddress, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, log *model.AuditLog) error {
	r.prepare(log)
	_, err := tx.ExecContext(ctx, auditInsert,
		log.ID, log.StaffID, log.Action, log.EntityType, log.EntityID,
		log.Changes, log.Metadata, log.IPAddress, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) prepare(log *model.AuditLog) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
}

func (r *auditRepository) ListWithPagination(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, int64, error) {
	where := ` FROM audit_logs WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	addFilter := func(clause string, value interface{}) {
		where += fmt.Sprintf(" AND "+clause, argCount)
		args = append(args, value)
		argCount++
	}

	if filters.StaffID != uuid.Nil {
		addFilter("staff_id = $%d", filters.StaffID)
	}
	if filters.EntityType != "" {
		addFilter("entity_type = $%d", filters.EntityType)
	}
	if filters.EntityID != "" {
		addFilter("entity_id = $%d", filters.EntityID)
	}
	if filters.Action != "" {
		addFilter("action = $%d", filters.Action)
	}
	if !filters.From.IsZero() {
		addFilter("created_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		addFilter("created_at < $%d", filters.To)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := `SELECT id, staff_id, action, entity_type, entity_id, changes, metadata, ip_address, created_at` +
		where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.PageSize, filters.Offset())

	var logs []*model.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit logs: %w", err)
	}
	return result.RowsAffected()
}
