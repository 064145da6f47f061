package model

type BedState string

const (
	BedStateAvailable   BedState = "AVAILABLE"
	BedStateOccupied    BedState = "OCCUPIED"
	BedStateMaintenance BedState = "MAINTENANCE"
	BedStateCleaning    BedState = "CLEANING"
	BedStateBlocked     BedState = "BLOCKED"
)

// Valid reports whether s is one of the known bed states.
func (s BedState) Valid() bool {
	switch s {
	case BedStateAvailable, BedStateOccupied, BedStateMaintenance, BedStateCleaning, BedStateBlocked:
		return true
	}
	return false
}

type BedType string

const (
	BedTypeGeneral   BedType = "GENERAL"
	BedTypeICU       BedType = "ICU"
	BedTypePediatric BedType = "PEDIATRIC"
	BedTypeMaternity BedType = "MATERNITY"
	BedTypeSurgical  BedType = "SURGICAL"
)

type Bed struct {
	Base
	Code       string   `db:"code" json:"code"`
	Ward       string   `db:"ward" json:"ward"`
	Wing       string   `db:"wing" json:"wing,omitempty"`
	Floor      string   `db:"floor" json:"floor,omitempty"`
	Room       string   `db:"room" json:"room,omitempty"`
	BedType    BedType  `db:"bed_type" json:"bed_type"`
	HasOxygen  bool     `db:"has_oxygen" json:"has_oxygen"`
	HasMonitor bool     `db:"has_monitor" json:"has_monitor"`
	Isolation  bool     `db:"isolation" json:"isolation"`
	State      BedState `db:"state" json:"state"`
	Active     bool     `db:"active" json:"active"`
	Notes      string   `db:"notes" json:"notes,omitempty"`
}

type CreateBedRequest struct {
	Code       string  `json:"code" binding:"required,max=20,bedcode"`
	Ward       string  `json:"ward" binding:"required,max=100"`
	Wing       string  `json:"wing" binding:"max=100"`
	Floor      string  `json:"floor" binding:"max=20"`
	Room       string  `json:"room" binding:"max=20"`
	BedType    BedType `json:"bed_type" binding:"required,oneof=GENERAL ICU PEDIATRIC MATERNITY SURGICAL"`
	HasOxygen  bool    `json:"has_oxygen"`
	HasMonitor bool    `json:"has_monitor"`
	Isolation  bool    `json:"isolation"`
	Notes      string  `json:"notes" binding:"max=500"`
}

type UpdateBedStateRequest struct {
	State BedState `json:"state" binding:"required,oneof=AVAILABLE OCCUPIED MAINTENANCE CLEANING BLOCKED"`
	Notes string   `json:"notes" binding:"max=500"`
}

type BedFilters struct {
	Ward            string  `form:"ward"`
	Wing            string  `form:"wing"`
	BedType         BedType `form:"bed_type"`
	State           BedState
	AvailableOnly   bool `form:"available_only"`
	IncludeInactive bool `form:"include_inactive"`
}

// WardSummary is the per-ward rollup used for structure listings.
type WardSummary struct {
	Ward  string `db:"ward" json:"ward"`
	Wing  string `db:"wing" json:"wing,omitempty"`
	Total int    `db:"total" json:"total"`
}
