package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	StaffID    uuid.UUID       `json:"staff_id" db:"staff_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes,omitempty" db:"changes"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	IPAddress  string          `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate      = "create"
	AuditActionUpdate      = "update"
	AuditActionDeactivate  = "deactivate"
	AuditActionAdmit       = "admit"
	AuditActionDischarge   = "discharge"
	AuditActionTransfer    = "transfer"
	AuditActionTransition  = "transition"
	AuditActionStateChange = "state_change"

	// Entity types
	AuditEntityBed       = "bed"
	AuditEntityOccupancy = "occupancy_entry"
	AuditEntityDocument  = "clinical_document"
	AuditEntityStaff     = "staff"
)

type AuditFilters struct {
	StaffID    uuid.UUID
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	Action     string `form:"action"`
	From       time.Time
	To         time.Time
	Pagination
}
