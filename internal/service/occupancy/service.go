package occupancy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
	"github.com/intisalud/hospital-api/internal/repository/postgres"
	"github.com/intisalud/hospital-api/internal/service/audit"
	"github.com/intisalud/hospital-api/pkg/clock"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/logger"
	"github.com/intisalud/hospital-api/pkg/metrics"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Service is the occupancy ledger: every admission, discharge and transfer
// goes through here, each as a single transaction that writes the ledger row,
// flips the bed state and records the outbox event together. Bed state is
// OCCUPIED exactly when an open entry exists; no other code path touches that
// pair.
type Service struct {
	beds    repository.BedRepository
	entries repository.OccupancyRepository
	outbox  repository.OutboxRepository
	tx      repository.TxRunner
	auditor *audit.Service
	metrics *metrics.Metrics
	clock   clock.Clock
	logger  *logger.Logger
}

func NewService(beds repository.BedRepository, entries repository.OccupancyRepository, outbox repository.OutboxRepository, tx repository.TxRunner, auditor *audit.Service, m *metrics.Metrics, clk clock.Clock, logger *logger.Logger) *Service {
	return &Service{
		beds:    beds,
		entries: entries,
		outbox:  outbox,
		tx:      tx,
		auditor: auditor,
		metrics: m,
		clock:   clk,
		logger:  logger,
	}
}

// Admit opens a new ledger entry for the patient and marks the bed OCCUPIED.
// The bed row is locked first so concurrent admissions to the same bed
// serialize; the partial unique indexes back the checks up if two requests
// race on different beds for the same patient.
func (s *Service) Admit(ctx context.Context, req *model.AdmitRequest, actorID uuid.UUID) (*model.OccupancyEntry, error) {
	at := s.clock.Now()
	if req.AdmittedAt != nil {
		at = *req.AdmittedAt
	}

	var entry *model.OccupancyEntry
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		bed, err := s.lockBed(ctx, tx, req.BedCode)
		if err != nil {
			return err
		}

		e, err := s.admitTx(ctx, tx, bed, req, at, actorID)
		if err != nil {
			return err
		}
		entry = e

		if err := s.writeMovementEventTx(ctx, tx, model.EventBedAdmitted, bed, entry); err != nil {
			return err
		}
		return s.auditor.LogTx(ctx, tx, actorID, model.AuditActionAdmit, model.AuditEntityOccupancy, entry.ID.String(), &audit.LogOptions{
			Changes: entry,
		})
	})
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return nil, s.admitConflict(ctx, req)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AdmissionsTotal.Inc()
	}
	s.logger.Info(fmt.Sprintf("admitted patient %d to bed %s", req.PatientID, req.BedCode))
	return entry, nil
}

// Discharge closes the open entry for the bed, computes the stay length and
// sends the bed to CLEANING. A backdated timestamp is accepted as long as it
// does not precede the admission.
func (s *Service) Discharge(ctx context.Context, req *model.DischargeRequest, actorID uuid.UUID) (*model.OccupancyEntry, error) {
	at := s.clock.Now()
	if req.DischargedAt != nil {
		at = *req.DischargedAt
	}

	var entry *model.OccupancyEntry
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		bed, err := s.lockBed(ctx, tx, req.BedCode)
		if err != nil {
			return err
		}

		open, err := s.entries.OpenByBedTx(ctx, tx, bed.ID)
		if err != nil {
			return fmt.Errorf("failed to load open entry: %w", err)
		}
		if open == nil {
			return apperrors.NewNotFoundf("no open occupancy for bed %s", req.BedCode)
		}

		e, err := s.dischargeTx(ctx, tx, bed, open, req.DischargeReason, req.Notes, at)
		if err != nil {
			return err
		}
		entry = e

		if err := s.writeMovementEventTx(ctx, tx, model.EventBedDischarged, bed, entry); err != nil {
			return err
		}
		return s.auditor.LogTx(ctx, tx, actorID, model.AuditActionDischarge, model.AuditEntityOccupancy, entry.ID.String(), &audit.LogOptions{
			Changes: entry,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DischargesTotal.Inc()
	}
	s.logger.Info(fmt.Sprintf("discharged bed %s after %d day stay", req.BedCode, *entry.StayDays))
	return entry, nil
}

// Transfer closes the patient's current stay and opens one on the new bed in
// a single transaction, so a failed admission rolls the discharge back. Both
// beds are locked in code order to keep concurrent opposite transfers from
// deadlocking.
func (s *Service) Transfer(ctx context.Context, req *model.TransferRequest, actorID uuid.UUID) (*model.TransferResult, error) {
	current, err := s.entries.OpenByPatient(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}
	if current == nil {
		return nil, apperrors.NewNotFoundf("patient %d has no open admission", req.PatientID)
	}
	if current.BedCode == req.NewBedCode {
		return nil, apperrors.NewBusinessRule(fmt.Sprintf("patient %d already occupies bed %s", req.PatientID, req.NewBedCode))
	}

	reason := "TRANSFER: " + req.Reason
	at := s.clock.Now()

	var result model.TransferResult
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		fromBed, toBed, err := s.lockBedPair(ctx, tx, current.BedCode, req.NewBedCode)
		if err != nil {
			return err
		}

		open, err := s.entries.OpenByBedTx(ctx, tx, fromBed.ID)
		if err != nil {
			return fmt.Errorf("failed to load open entry: %w", err)
		}
		if open == nil || open.PatientID != req.PatientID {
			return apperrors.NewNotFoundf("patient %d has no open admission", req.PatientID)
		}

		closed, err := s.dischargeTx(ctx, tx, fromBed, open, reason, req.Notes, at)
		if err != nil {
			return err
		}

		admitReq := &model.AdmitRequest{
			BedCode:         toBed.Code,
			PatientID:       open.PatientID,
			PatientName:     open.PatientName,
			PatientDocument: open.PatientDocument,
			AdmissionReason: reason,
			AttendingStaff:  open.AttendingStaff,
			Diagnosis:       open.Diagnosis,
			Notes:           req.Notes,
		}
		opened, err := s.admitTx(ctx, tx, toBed, admitReq, at, actorID)
		if err != nil {
			return err
		}

		result = model.TransferResult{Closed: closed, Opened: opened}

		if err := s.writeMovementEventTx(ctx, tx, model.EventBedTransferred, toBed, opened); err != nil {
			return err
		}
		return s.auditor.LogTx(ctx, tx, actorID, model.AuditActionTransfer, model.AuditEntityOccupancy, opened.ID.String(), &audit.LogOptions{
			Changes: result,
			Metadata: map[string]string{
				"from_bed": fromBed.Code,
				"to_bed":   toBed.Code,
			},
		})
	})
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return nil, apperrors.NewBusinessRule(fmt.Sprintf("bed %s was taken by a concurrent admission", req.NewBedCode))
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TransfersTotal.Inc()
	}
	s.logger.Info(fmt.Sprintf("transferred patient %d from bed %s to bed %s", req.PatientID, result.Closed.BedCode, req.NewBedCode))
	return &result, nil
}

// History returns past and present stays for a bed, most recent admission
// first.
func (s *Service) History(ctx context.Context, bedCode string, limit int) ([]*model.OccupancyEntry, error) {
	bed, err := s.beds.GetByCode(ctx, bedCode)
	if err != nil {
		return nil, apperrors.NewNotFoundf("bed %s", bedCode)
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.entries.HistoryByBed(ctx, bed.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load bed history: %w", err)
	}
	return entries, nil
}

// CurrentOccupant returns the open entry for the bed, or NotFound when the
// bed is empty.
func (s *Service) CurrentOccupant(ctx context.Context, bedCode string) (*model.OccupancyEntry, error) {
	bed, err := s.beds.GetByCode(ctx, bedCode)
	if err != nil {
		return nil, apperrors.NewNotFoundf("bed %s", bedCode)
	}

	open, err := s.entries.OpenByBed(ctx, bed.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open entry: %w", err)
	}
	if open == nil {
		return nil, apperrors.NewNotFoundf("bed %s has no occupant", bedCode)
	}
	return open, nil
}

// FindPatients searches open stays by patient name or document number.
func (s *Service) FindPatients(ctx context.Context, filters *model.PatientSearchFilters) ([]*model.OccupancyEntry, error) {
	if filters.Query == "" {
		return nil, apperrors.NewValidation("search query is required")
	}
	entries, err := s.entries.SearchOpen(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search admitted patients: %w", err)
	}
	return entries, nil
}

// OccupancyStats aggregates bed counts by ward and wing. Percentages are
// rounded to two decimals; an empty group reports 0.
func (s *Service) OccupancyStats(ctx context.Context, filters *model.OccupancyStatsFilters) (*model.OccupancyStats, error) {
	groups, err := s.beds.CountByState(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count beds: %w", err)
	}

	stats := &model.OccupancyStats{Groups: make([]model.WardOccupancy, 0, len(groups))}
	occupiedByWard := make(map[string]int)
	for _, g := range groups {
		g.OccupancyPct = percentage(g.Occupied, g.Total)
		stats.Groups = append(stats.Groups, *g)
		stats.Total += g.Total
		stats.Occupied += g.Occupied
		stats.Available += g.Available
		occupiedByWard[g.Ward] += g.Occupied
	}
	stats.OccupancyPct = percentage(stats.Occupied, stats.Total)

	if s.metrics != nil {
		for ward, occupied := range occupiedByWard {
			s.metrics.BedsOccupied.WithLabelValues(ward).Set(float64(occupied))
		}
	}
	return stats, nil
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func stayDays(admitted, discharged time.Time) int {
	days := int(discharged.Sub(admitted).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// admitTx performs the guarded half of an admission against an already locked
// bed. Callers own the transaction, the outbox event and the audit entry.
func (s *Service) admitTx(ctx context.Context, tx *sqlx.Tx, bed *model.Bed, req *model.AdmitRequest, at time.Time, actorID uuid.UUID) (*model.OccupancyEntry, error) {
	if !bed.Active {
		return nil, apperrors.NewBusinessRule(fmt.Sprintf("bed %s is deactivated", bed.Code))
	}

	open, err := s.entries.OpenByBedTx(ctx, tx, bed.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check bed occupancy: %w", err)
	}
	if open != nil {
		return nil, apperrors.NewBusinessRule(fmt.Sprintf("bed %s is occupied by patient %d", bed.Code, open.PatientID))
	}
	if bed.State != model.BedStateAvailable {
		return nil, apperrors.NewBusinessRule(fmt.Sprintf("bed %s is not available (state %s)", bed.Code, bed.State))
	}

	elsewhere, err := s.entries.OpenByPatientTx(ctx, tx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check patient admission: %w", err)
	}
	if elsewhere != nil {
		return nil, apperrors.NewBusinessRule(fmt.Sprintf("patient %d is already admitted to bed %s", req.PatientID, elsewhere.BedCode))
	}

	entry := &model.OccupancyEntry{
		BedID:           bed.ID,
		BedCode:         bed.Code,
		Ward:            bed.Ward,
		PatientID:       req.PatientID,
		PatientName:     req.PatientName,
		PatientDocument: req.PatientDocument,
		AdmittedAt:      at,
		AdmissionReason: req.AdmissionReason,
		AttendingStaff:  req.AttendingStaff,
		Diagnosis:       req.Diagnosis,
		Notes:           req.Notes,
		CreatedBy:       actorID,
	}

	if err := s.entries.CreateTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to create occupancy entry: %w", err)
	}
	if err := s.beds.UpdateStateTx(ctx, tx, bed.ID, model.BedStateOccupied); err != nil {
		return nil, fmt.Errorf("failed to mark bed occupied: %w", err)
	}
	return entry, nil
}

// dischargeTx closes an open entry against an already locked bed and sends
// the bed to CLEANING.
func (s *Service) dischargeTx(ctx context.Context, tx *sqlx.Tx, bed *model.Bed, open *model.OccupancyEntry, reason, notes string, at time.Time) (*model.OccupancyEntry, error) {
	if at.Before(open.AdmittedAt) {
		return nil, apperrors.NewValidation(fmt.Sprintf("discharge time %s precedes admission %s", at.Format(time.RFC3339), open.AdmittedAt.Format(time.RFC3339)))
	}

	days := stayDays(open.AdmittedAt, at)
	open.DischargedAt = &at
	open.DischargeReason = reason
	open.StayDays = &days
	if notes != "" {
		if open.Notes != "" {
			open.Notes += " | DISCHARGE: " + notes
		} else {
			open.Notes = "DISCHARGE: " + notes
		}
	}
	open.UpdatedAt = s.clock.Now()

	if err := s.entries.CloseTx(ctx, tx, open); err != nil {
		return nil, fmt.Errorf("failed to close occupancy entry: %w", err)
	}
	if err := s.beds.UpdateStateTx(ctx, tx, bed.ID, model.BedStateCleaning); err != nil {
		return nil, fmt.Errorf("failed to mark bed cleaning: %w", err)
	}
	return open, nil
}

func (s *Service) lockBed(ctx context.Context, tx *sqlx.Tx, code string) (*model.Bed, error) {
	bed, err := s.beds.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("bed %s", code)
		}
		return nil, fmt.Errorf("failed to lock bed %s: %w", code, err)
	}
	return bed, nil
}

// lockBedPair locks two beds in code order so concurrent opposite transfers
// acquire them in the same sequence.
func (s *Service) lockBedPair(ctx context.Context, tx *sqlx.Tx, fromCode, toCode string) (from, to *model.Bed, err error) {
	first, second := fromCode, toCode
	if second < first {
		first, second = second, first
	}

	beds := make(map[string]*model.Bed, 2)
	for _, code := range []string{first, second} {
		b, err := s.lockBed(ctx, tx, code)
		if err != nil {
			return nil, nil, err
		}
		beds[code] = b
	}
	return beds[fromCode], beds[toCode], nil
}

// admitConflict re-validates after a unique-index violation and surfaces the
// state that actually won the race.
func (s *Service) admitConflict(ctx context.Context, req *model.AdmitRequest) error {
	if elsewhere, err := s.entries.OpenByPatient(ctx, req.PatientID); err == nil && elsewhere != nil {
		return apperrors.NewBusinessRule(fmt.Sprintf("patient %d is already admitted to bed %s", req.PatientID, elsewhere.BedCode))
	}
	if bed, err := s.beds.GetByCode(ctx, req.BedCode); err == nil {
		if open, err := s.entries.OpenByBed(ctx, bed.ID); err == nil && open != nil {
			return apperrors.NewBusinessRule(fmt.Sprintf("bed %s is occupied by patient %d", bed.Code, open.PatientID))
		}
	}
	return apperrors.NewConflict(fmt.Sprintf("concurrent admission on bed %s, retry", req.BedCode))
}

func (s *Service) writeMovementEventTx(ctx context.Context, tx *sqlx.Tx, eventType string, bed *model.Bed, entry *model.OccupancyEntry) error {
	payload, err := json.Marshal(map[string]interface{}{
		"entry_id":   entry.ID,
		"bed_id":     bed.ID,
		"bed_code":   bed.Code,
		"ward":       bed.Ward,
		"patient_id": entry.PatientID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal movement event: %w", err)
	}
	return s.outbox.CreateTx(ctx, tx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	})
}
