package model

import (
	"time"

	"github.com/google/uuid"
)

// OccupancyEntry is one stay: open while DischargedAt is null, closed after.
// At most one open entry may exist per bed and per patient; the partial unique
// indexes in the schema enforce that under concurrency.
type OccupancyEntry struct {
	Base
	BedID           uuid.UUID  `db:"bed_id" json:"bed_id"`
	BedCode         string     `db:"bed_code" json:"bed_code"`
	Ward            string     `db:"ward" json:"ward"`
	PatientID       int64      `db:"patient_id" json:"patient_id"`
	PatientName     string     `db:"patient_name" json:"patient_name"`
	PatientDocument string     `db:"patient_document" json:"patient_document,omitempty"`
	AdmittedAt      time.Time  `db:"admitted_at" json:"admitted_at"`
	DischargedAt    *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	AdmissionReason string     `db:"admission_reason" json:"admission_reason"`
	DischargeReason string     `db:"discharge_reason" json:"discharge_reason,omitempty"`
	AttendingStaff  string     `db:"attending_staff" json:"attending_staff,omitempty"`
	Diagnosis       string     `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes           string     `db:"notes" json:"notes,omitempty"`
	StayDays        *int       `db:"stay_days" json:"stay_days,omitempty"`
	CreatedBy       uuid.UUID  `db:"created_by" json:"created_by"`
}

// Open reports whether the stay is still in progress.
func (e *OccupancyEntry) Open() bool {
	return e.DischargedAt == nil
}

type AdmitRequest struct {
	BedCode         string     `json:"bed_code" binding:"required,bedcode"`
	PatientID       int64      `json:"patient_id" binding:"required,gt=0"`
	PatientName     string     `json:"patient_name" binding:"required,max=200"`
	PatientDocument string     `json:"patient_document" binding:"max=20"`
	AdmissionReason string     `json:"admission_reason" binding:"required,max=500"`
	AttendingStaff  string     `json:"attending_staff" binding:"max=200"`
	Diagnosis       string     `json:"diagnosis" binding:"max=500"`
	Notes           string     `json:"notes" binding:"max=1000"`
	AdmittedAt      *time.Time `json:"admitted_at"`
}

type DischargeRequest struct {
	BedCode         string     `json:"bed_code" binding:"required,bedcode"`
	DischargeReason string     `json:"discharge_reason" binding:"required,max=500"`
	Notes           string     `json:"notes" binding:"max=1000"`
	DischargedAt    *time.Time `json:"discharged_at"`
}

type TransferRequest struct {
	PatientID  int64  `json:"patient_id" binding:"required,gt=0"`
	NewBedCode string `json:"new_bed_code" binding:"required,bedcode"`
	Reason     string `json:"reason" binding:"required,max=500"`
	Notes      string `json:"notes" binding:"max=1000"`
}

// TransferResult carries both halves of a completed transfer.
type TransferResult struct {
	Closed *OccupancyEntry `json:"closed_entry"`
	Opened *OccupancyEntry `json:"opened_entry"`
}

// WardOccupancy is one row of the occupancy statistics breakdown.
type WardOccupancy struct {
	Ward         string  `db:"ward" json:"ward"`
	Wing         string  `db:"wing" json:"wing,omitempty"`
	Total        int     `db:"total" json:"total"`
	Occupied     int     `db:"occupied" json:"occupied"`
	Available    int     `db:"available" json:"available"`
	Maintenance  int     `db:"maintenance" json:"maintenance"`
	Cleaning     int     `db:"cleaning" json:"cleaning"`
	Blocked      int     `db:"blocked" json:"blocked"`
	OccupancyPct float64 `json:"occupancy_pct"`
}

// OccupancyStats aggregates WardOccupancy groups plus the overall totals.
type OccupancyStats struct {
	Groups       []WardOccupancy `json:"groups"`
	Total        int             `json:"total"`
	Occupied     int             `json:"occupied"`
	Available    int             `json:"available"`
	OccupancyPct float64         `json:"occupancy_pct"`
}

type OccupancyStatsFilters struct {
	Ward string `form:"ward"`
	Wing string `form:"wing"`
}

type PatientSearchFilters struct {
	Query string `form:"q"`
	Ward  string `form:"ward"`
	Limit int    `form:"limit"`
}
