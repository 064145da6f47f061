package export

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/intisalud/hospital-api/internal/model"
)

func readRow(t *testing.T, f *excelize.File, row int) []string {
	t.Helper()
	out := make([]string, len(movementHeaders))
	for col := range movementHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		require.NoError(t, err)
		value, err := f.GetCellValue(movementsSheet, cell)
		require.NoError(t, err)
		out[col] = value
	}
	return out
}

func TestMovementsWorkbook(t *testing.T) {
	admitted := time.Date(2026, 3, 8, 14, 0, 0, 0, time.UTC)
	discharged := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	stay := 2

	movements := []model.Movement{
		{
			Type: model.MovementAdmission,
			At:   admitted,
			Entry: model.OccupancyEntry{
				BedCode:         "MED-101",
				Ward:            "Medicina",
				PatientID:       4471,
				PatientName:     "Luisa Mendoza",
				PatientDocument: "44781265",
				AdmittedAt:      admitted,
				AdmissionReason: "community acquired pneumonia",
			},
		},
		{
			Type: model.MovementDischarge,
			At:   discharged,
			Entry: model.OccupancyEntry{
				BedCode:         "MED-101",
				Ward:            "Medicina",
				PatientID:       4471,
				PatientName:     "Luisa Mendoza",
				PatientDocument: "44781265",
				AdmittedAt:      admitted,
				DischargedAt:    &discharged,
				AdmissionReason: "community acquired pneumonia",
				DischargeReason: "clinical improvement",
				StayDays:        &stay,
			},
		},
	}

	data, err := Movements(movements)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{movementsSheet}, f.GetSheetList(), "the default Sheet1 is dropped")

	assert.Equal(t, movementHeaders, readRow(t, f, 1))

	assert.Equal(t, []string{
		"ADMISSION",
		"2026-03-08 14:00:00",
		"MED-101",
		"Medicina",
		"4471",
		"Luisa Mendoza",
		"44781265",
		"community acquired pneumonia",
		"",
	}, readRow(t, f, 2), "admission rows carry the admission reason and no stay")

	assert.Equal(t, []string{
		"DISCHARGE",
		"2026-03-10 09:30:00",
		"MED-101",
		"Medicina",
		"4471",
		"Luisa Mendoza",
		"44781265",
		"clinical improvement",
		"2",
	}, readRow(t, f, 3), "discharge rows switch to the discharge reason and stay length")
}

func TestMovementsEmptyListStillRendersHeader(t *testing.T) {
	data, err := Movements(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, movementHeaders, readRow(t, f, 1))

	next, err := f.GetCellValue(movementsSheet, "A2")
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestMovementsScalesToLargeExports(t *testing.T) {
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	movements := make([]model.Movement, 0, 500)
	for i := 0; i < 500; i++ {
		movements = append(movements, model.Movement{
			Type: model.MovementAdmission,
			At:   at.Add(time.Duration(i) * time.Minute),
			Entry: model.OccupancyEntry{
				BedCode:         fmt.Sprintf("MED-%03d", i%40),
				Ward:            "Medicina",
				PatientID:       int64(1000 + i),
				PatientName:     fmt.Sprintf("Patient %d", i),
				AdmissionReason: "observation",
			},
		})
	}

	data, err := Movements(movements)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(movementsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 501)
}
