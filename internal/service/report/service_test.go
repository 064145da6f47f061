package report

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/pkg/clock"
)

// fakeLedger cans the aggregate answers and records what window the service
// asked for.
type fakeLedger struct {
	admissions int
	discharges int
	open       int
	avgStay    float64
	movements  []*model.Movement

	lastFrom    time.Time
	lastTo      time.Time
	lastWard    string
	lastFilters model.ReportFilters
}

func (f *fakeLedger) CreateTx(_ context.Context, _ *sqlx.Tx, _ *model.OccupancyEntry) error {
	return nil
}

func (f *fakeLedger) Get(_ context.Context, _ uuid.UUID) (*model.OccupancyEntry, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeLedger) OpenByBed(_ context.Context, _ uuid.UUID) (*model.OccupancyEntry, error) {
	return nil, nil
}

func (f *fakeLedger) OpenByBedTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID) (*model.OccupancyEntry, error) {
	return nil, nil
}

func (f *fakeLedger) OpenByPatient(_ context.Context, _ int64) (*model.OccupancyEntry, error) {
	return nil, nil
}

func (f *fakeLedger) OpenByPatientTx(_ context.Context, _ *sqlx.Tx, _ int64) (*model.OccupancyEntry, error) {
	return nil, nil
}

func (f *fakeLedger) CloseTx(_ context.Context, _ *sqlx.Tx, _ *model.OccupancyEntry) error {
	return nil
}

func (f *fakeLedger) HistoryByBed(_ context.Context, _ uuid.UUID, _ int) ([]*model.OccupancyEntry, error) {
	return nil, nil
}

func (f *fakeLedger) SearchOpen(_ context.Context, _ *model.PatientSearchFilters) ([]*model.OccupancyEntry, error) {
	return nil, nil
}

func (f *fakeLedger) CountInWindow(_ context.Context, from, to time.Time, ward string) (int, int, error) {
	f.lastFrom, f.lastTo, f.lastWard = from, to, ward
	return f.admissions, f.discharges, nil
}

func (f *fakeLedger) CountOpen(_ context.Context, _ string) (int, error) {
	return f.open, nil
}

func (f *fakeLedger) AvgStayDays(_ context.Context, _, _ time.Time, _ string) (float64, error) {
	return f.avgStay, nil
}

func (f *fakeLedger) Movements(_ context.Context, filters *model.ReportFilters) ([]*model.Movement, int, error) {
	f.lastFilters = *filters
	total := len(f.movements)
	off := filters.Offset()
	if off > total {
		off = total
	}
	end := off + filters.PageSize
	if end > total {
		end = total
	}
	return f.movements[off:end], total, nil
}

func sampleMovements(n int, at time.Time) []*model.Movement {
	out := make([]*model.Movement, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &model.Movement{
			Type: model.MovementAdmission,
			At:   at.Add(-time.Duration(i) * time.Hour),
			Entry: model.OccupancyEntry{
				BedCode:     "MED-101",
				Ward:        "Medicina",
				PatientID:   int64(500 + i),
				PatientName: "Luisa Mendoza",
			},
		})
	}
	return out
}

func TestOccupancyReportAggregates(t *testing.T) {
	ledger := &fakeLedger{admissions: 12, discharges: 9, open: 17, avgStay: 3.456}
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	svc := NewService(ledger, clk)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	report, err := svc.OccupancyReport(context.Background(), &model.ReportFilters{From: from, To: to, Ward: "Medicina"})
	require.NoError(t, err)

	assert.Equal(t, from, report.From)
	assert.Equal(t, to, report.To)
	assert.Equal(t, "Medicina", report.Ward)
	assert.Equal(t, 12, report.Admissions)
	assert.Equal(t, 9, report.Discharges)
	assert.Equal(t, 17, report.CurrentOccupants)
	assert.InDelta(t, 3.46, report.AvgStayDays, 0.001, "average is rounded to two decimals")

	assert.Equal(t, from, ledger.lastFrom)
	assert.Equal(t, "Medicina", ledger.lastWard)
}

func TestOccupancyReportDefaultWindow(t *testing.T) {
	ledger := &fakeLedger{}
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	svc := NewService(ledger, clock.NewFixed(now))

	report, err := svc.OccupancyReport(context.Background(), &model.ReportFilters{})
	require.NoError(t, err)

	assert.Equal(t, now, report.To)
	assert.Equal(t, now.AddDate(0, 0, -30), report.From)
	assert.Equal(t, now.AddDate(0, 0, -30), ledger.lastFrom)
	assert.Equal(t, now, ledger.lastTo)
}

func TestMovementReportPagination(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	ledger := &fakeLedger{movements: sampleMovements(5, now)}
	svc := NewService(ledger, clock.NewFixed(now))

	filters := &model.ReportFilters{}
	filters.Page = 2
	filters.PageSize = 2
	report, err := svc.MovementReport(context.Background(), filters)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Page)
	assert.Equal(t, 2, report.PageSize)
	assert.Equal(t, 3, report.TotalPages)
	require.Len(t, report.Movements, 2)
	assert.Equal(t, int64(502), report.Movements[0].Entry.PatientID)
}

func TestExportMovements(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	ledger := &fakeLedger{movements: sampleMovements(3, now)}
	svc := NewService(ledger, clock.NewFixed(now))

	data, filename, err := svc.ExportMovements(context.Background(), &model.ReportFilters{})
	require.NoError(t, err)

	assert.Equal(t, "movements_20260310_0930.xlsx", filename)
	assert.NotEmpty(t, data)
	assert.Equal(t, 1, ledger.lastFilters.Page, "export always starts at the first page")
	assert.Equal(t, exportMaxRows, ledger.lastFilters.PageSize, "export ignores caller pagination")
}
