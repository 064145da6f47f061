package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes   interface{}
	Metadata  interface{}
	IPAddress string
}

// Log creates an audit log entry. Failures are the caller's to ignore; core
// operations audit inside their own transaction via LogTx instead.
func (s *Service) Log(ctx context.Context, staffID uuid.UUID, action, entityType, entityID string, opts *LogOptions) error {
	log, err := buildLog(staffID, action, entityType, entityID, opts)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, log)
}

// LogTx writes the audit entry inside tx so it commits or rolls back with the
// operation it describes.
func (s *Service) LogTx(ctx context.Context, tx *sqlx.Tx, staffID uuid.UUID, action, entityType, entityID string, opts *LogOptions) error {
	log, err := buildLog(staffID, action, entityType, entityID, opts)
	if err != nil {
		return err
	}
	return s.repo.CreateTx(ctx, tx, log)
}

func buildLog(staffID uuid.UUID, action, entityType, entityID string, opts *LogOptions) (*model.AuditLog, error) {
	var changes, metadata json.RawMessage
	var ipAddress string
	var err error

	if opts != nil {
		if opts.Changes != nil {
			changes, err = json.Marshal(opts.Changes)
			if err != nil {
				return nil, err
			}
		}
		if opts.Metadata != nil {
			metadata, err = json.Marshal(opts.Metadata)
			if err != nil {
				return nil, err
			}
		}
		ipAddress = opts.IPAddress
	}

	return &model.AuditLog{
		ID:         uuid.New(),
		StaffID:    staffID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		Metadata:   metadata,
		IPAddress:  ipAddress,
		CreatedAt:  time.Now(),
	}, nil
}

func (s *Service) ListWithPagination(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, int64, error) {
	filters.Normalize()
	return s.repo.ListWithPagination(ctx, filters)
}

func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, before)
}
