package bed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
	"github.com/intisalud/hospital-api/internal/repository/postgres"
	"github.com/intisalud/hospital-api/internal/service/audit"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/logger"
)

// Service owns the bed registry: static attributes, operational state and the
// admin overrides. Occupancy transitions (AVAILABLE→OCCUPIED and back) belong
// to the occupancy service; this one refuses them.
type Service struct {
	repo      repository.BedRepository
	occupancy repository.OccupancyRepository
	outbox    repository.OutboxRepository
	tx        repository.TxRunner
	auditor   *audit.Service
	logger    *logger.Logger
}

func NewService(repo repository.BedRepository, occupancy repository.OccupancyRepository, outbox repository.OutboxRepository, tx repository.TxRunner, auditor *audit.Service, logger *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		occupancy: occupancy,
		outbox:    outbox,
		tx:        tx,
		auditor:   auditor,
		logger:    logger,
	}
}

func (s *Service) CreateBed(ctx context.Context, req *model.CreateBedRequest, actorID uuid.UUID) (*model.Bed, error) {
	bed := &model.Bed{
		Code:       req.Code,
		Ward:       req.Ward,
		Wing:       req.Wing,
		Floor:      req.Floor,
		Room:       req.Room,
		BedType:    req.BedType,
		HasOxygen:  req.HasOxygen,
		HasMonitor: req.HasMonitor,
		Isolation:  req.Isolation,
		State:      model.BedStateAvailable,
		Active:     true,
		Notes:      req.Notes,
	}

	if err := s.repo.Create(ctx, bed); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return nil, apperrors.NewConflict(fmt.Sprintf("bed %s already exists", req.Code))
		}
		return nil, fmt.Errorf("failed to create bed: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityBed, bed.ID.String(), &audit.LogOptions{
		Changes: bed,
	})

	return bed, nil
}

func (s *Service) GetBed(ctx context.Context, code string) (*model.Bed, error) {
	bed, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperrors.NewNotFoundf("bed %s", code)
	}
	return bed, nil
}

func (s *Service) ListBeds(ctx context.Context, filters *model.BedFilters) ([]*model.Bed, error) {
	beds, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	return beds, nil
}

// SetOperationalState is the admin override for maintenance, cleaning and
// blocking. OCCUPIED is never settable here, and an occupied bed can only be
// freed through a discharge.
func (s *Service) SetOperationalState(ctx context.Context, code string, req *model.UpdateBedStateRequest, actorID uuid.UUID) (*model.Bed, error) {
	newState := req.State
	if !newState.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown bed state %q", newState))
	}

	bed, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperrors.NewNotFoundf("bed %s", code)
	}
	if newState == model.BedStateOccupied {
		return nil, apperrors.NewInvalidTransition("bed "+bed.Code, string(bed.State), string(model.BedStateOccupied))
	}
	if !bed.Active {
		return nil, apperrors.NewBusinessRule(fmt.Sprintf("bed %s is deactivated", code))
	}
	if bed.State == model.BedStateOccupied {
		return nil, apperrors.NewInvalidTransition("bed "+bed.Code, string(model.BedStateOccupied), string(newState))
	}
	if bed.State == newState {
		return bed, nil
	}

	previous := bed.State
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.UpdateStateTx(ctx, tx, bed.ID, newState); err != nil {
			return fmt.Errorf("failed to update bed state: %w", err)
		}
		if err := s.writeStateChangeEventTx(ctx, tx, bed, previous, newState); err != nil {
			return err
		}
		return s.auditor.LogTx(ctx, tx, actorID, model.AuditActionStateChange, model.AuditEntityBed, bed.ID.String(), &audit.LogOptions{
			Changes: map[string]string{"from": string(previous), "to": string(newState)},
			Metadata: map[string]string{
				"bed_code": bed.Code,
				"notes":    req.Notes,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	bed.State = newState
	bed.UpdatedAt = time.Now()
	s.logger.Info(fmt.Sprintf("bed %s state %s -> %s", bed.Code, previous, newState))
	return bed, nil
}

// DeactivateBed retires a bed from service. Beds are never deleted; an
// occupied bed cannot be retired until its patient is discharged.
func (s *Service) DeactivateBed(ctx context.Context, code string, actorID uuid.UUID) error {
	bed, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return apperrors.NewNotFoundf("bed %s", code)
	}

	open, err := s.occupancy.OpenByBed(ctx, bed.ID)
	if err != nil {
		return fmt.Errorf("failed to check bed occupancy: %w", err)
	}
	if open != nil || bed.State == model.BedStateOccupied {
		return apperrors.NewBusinessRule(fmt.Sprintf("bed %s is occupied and cannot be deactivated", code))
	}

	if err := s.repo.Deactivate(ctx, bed.ID); err != nil {
		return fmt.Errorf("failed to deactivate bed: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionDeactivate, model.AuditEntityBed, bed.ID.String(), &audit.LogOptions{
		Metadata: map[string]string{"bed_code": bed.Code},
	})

	return nil
}

func (s *Service) WardSummaries(ctx context.Context) ([]*model.WardSummary, error) {
	summaries, err := s.repo.WardSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize wards: %w", err)
	}
	return summaries, nil
}

func (s *Service) writeStateChangeEventTx(ctx context.Context, tx *sqlx.Tx, bed *model.Bed, from, to model.BedState) error {
	payload, err := json.Marshal(map[string]interface{}{
		"bed_id":   bed.ID,
		"bed_code": bed.Code,
		"ward":     bed.Ward,
		"from":     from,
		"to":       to,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal state change event: %w", err)
	}
	return s.outbox.CreateTx(ctx, tx, &model.OutboxEvent{
		EventType: model.EventBedStateChanged,
		Payload:   payload,
	})
}
