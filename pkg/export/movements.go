package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/intisalud/hospital-api/internal/model"
)

const movementsSheet = "Movements"

var movementHeaders = []string{
	"Movement",
	"Date",
	"Bed",
	"Ward",
	"Patient ID",
	"Patient Name",
	"Document",
	"Reason",
	"Stay Days",
}

var movementWidths = []float64{12, 20, 12, 18, 12, 28, 14, 40, 10}

// Movements renders the movement report as an xlsx workbook: one styled
// header row, one row per movement, header frozen.
func Movements(movements []model.Movement) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(movementsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range movementHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(movementsSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(movementsSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(movementsSheet, name, name, movementWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, m := range movements {
		row := i + 2
		values := movementRow(m)
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(movementsSheet, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(movementsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func movementRow(m model.Movement) []interface{} {
	reason := m.Entry.AdmissionReason
	if m.Type == model.MovementDischarge {
		reason = m.Entry.DischargeReason
	}

	stayDays := ""
	if m.Entry.StayDays != nil {
		stayDays = fmt.Sprintf("%d", *m.Entry.StayDays)
	}

	return []interface{}{
		string(m.Type),
		m.At.Format("2006-01-02 15:04:05"),
		m.Entry.BedCode,
		m.Entry.Ward,
		m.Entry.PatientID,
		m.Entry.PatientName,
		m.Entry.PatientDocument,
		reason,
		stayDays,
	}
}
