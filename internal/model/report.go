package model

import "time"

// OccupancyReport aggregates ledger activity inside a window.
type OccupancyReport struct {
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	Ward             string    `json:"ward,omitempty"`
	Admissions       int       `json:"admissions"`
	Discharges       int       `json:"discharges"`
	CurrentOccupants int       `json:"current_occupants"`
	AvgStayDays      float64   `json:"avg_stay_days"`
}

type MovementType string

const (
	MovementAdmission MovementType = "ADMISSION"
	MovementDischarge MovementType = "DISCHARGE"
)

// Movement annotates an occupancy entry for the movement report: open entries
// appear as admissions, closed ones as discharges.
type Movement struct {
	Type  MovementType   `json:"movement_type"`
	At    time.Time      `json:"at"`
	Entry OccupancyEntry `json:"entry"`
}

type MovementReport struct {
	Movements  []Movement `json:"movements"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

type ReportFilters struct {
	From         time.Time
	To           time.Time
	Ward         string       `form:"ward"`
	MovementType MovementType `form:"movement_type"`
	Pagination
}
