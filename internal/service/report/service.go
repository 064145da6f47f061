package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
	"github.com/intisalud/hospital-api/pkg/clock"
	"github.com/intisalud/hospital-api/pkg/export"
)

const (
	defaultWindowDays = 30
	exportMaxRows     = 10000
)

// Service computes the read-side reports over the occupancy ledger. No
// writes, no caching; every call scans current store state.
type Service struct {
	entries repository.OccupancyRepository
	clock   clock.Clock
}

func NewService(entries repository.OccupancyRepository, clk clock.Clock) *Service {
	return &Service{entries: entries, clock: clk}
}

// OccupancyReport aggregates admissions, discharges, current occupants and
// the average stay for entries closed inside the window.
func (s *Service) OccupancyReport(ctx context.Context, filters *model.ReportFilters) (*model.OccupancyReport, error) {
	from, to := s.window(filters)

	admissions, discharges, err := s.entries.CountInWindow(ctx, from, to, filters.Ward)
	if err != nil {
		return nil, fmt.Errorf("failed to count movements: %w", err)
	}
	current, err := s.entries.CountOpen(ctx, filters.Ward)
	if err != nil {
		return nil, fmt.Errorf("failed to count occupants: %w", err)
	}
	avg, err := s.entries.AvgStayDays(ctx, from, to, filters.Ward)
	if err != nil {
		return nil, fmt.Errorf("failed to average stay length: %w", err)
	}

	return &model.OccupancyReport{
		From:             from,
		To:               to,
		Ward:             filters.Ward,
		Admissions:       admissions,
		Discharges:       discharges,
		CurrentOccupants: current,
		AvgStayDays:      math.Round(avg*100) / 100,
	}, nil
}

// MovementReport pages through ledger entries annotated as admission or
// discharge movements, most recent first.
func (s *Service) MovementReport(ctx context.Context, filters *model.ReportFilters) (*model.MovementReport, error) {
	filters.Normalize()
	filters.From, filters.To = s.window(filters)

	movements, total, err := s.entries.Movements(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	report := &model.MovementReport{
		Movements:  make([]model.Movement, 0, len(movements)),
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: (total + filters.PageSize - 1) / filters.PageSize,
	}
	for _, m := range movements {
		report.Movements = append(report.Movements, *m)
	}
	return report, nil
}

// ExportMovements renders the full movement list for the window as an xlsx
// workbook and returns the bytes with a suggested filename.
func (s *Service) ExportMovements(ctx context.Context, filters *model.ReportFilters) ([]byte, string, error) {
	filters.Page = 1
	filters.PageSize = exportMaxRows
	filters.From, filters.To = s.window(filters)

	movements, _, err := s.entries.Movements(ctx, filters)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list movements: %w", err)
	}

	rows := make([]model.Movement, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, *m)
	}

	data, err := export.Movements(rows)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render movement export: %w", err)
	}

	filename := fmt.Sprintf("movements_%s.xlsx", s.clock.Now().Format("20060102_1504"))
	return data, filename, nil
}

// window fills missing bounds: default is the last 30 days ending now.
func (s *Service) window(filters *model.ReportFilters) (time.Time, time.Time) {
	from, to := filters.From, filters.To
	if to.IsZero() {
		to = s.clock.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultWindowDays)
	}
	return from, to
}
