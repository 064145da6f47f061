package model

import "time"

type StaffRole string

const (
	StaffRolePhysician StaffRole = "PHYSICIAN"
	StaffRoleNurse     StaffRole = "NURSE"
	StaffRoleAdmin     StaffRole = "ADMIN"
)

type Staff struct {
	Base
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Specialty    string     `db:"specialty" json:"specialty,omitempty"`
	License      string     `db:"license" json:"license,omitempty"`
	Role         StaffRole  `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// IsPhysician reports whether the staff member may author clinical documents:
// physicians carry both a specialty and a license number.
func (s *Staff) IsPhysician() bool {
	return s.Role == StaffRolePhysician && s.Specialty != "" && s.License != ""
}

type CreateStaffRequest struct {
	Email     string    `json:"email" binding:"required,email"`
	Name      string    `json:"name" binding:"required,max=200"`
	Password  string    `json:"password" binding:"required,min=8"`
	Specialty string    `json:"specialty" binding:"max=100"`
	License   string    `json:"license" binding:"max=30"`
	Role      StaffRole `json:"role" binding:"required,oneof=PHYSICIAN NURSE ADMIN"`
}

type UpdateStaffRequest struct {
	Name      *string    `json:"name"`
	Specialty *string    `json:"specialty"`
	License   *string    `json:"license"`
	Role      *StaffRole `json:"role"`
	Password  *string    `json:"password" binding:"omitempty,min=8"`
}

type StaffFilters struct {
	Role            StaffRole `form:"role"`
	Specialty       string    `form:"specialty"`
	Search          string    `form:"search"`
	IncludeInactive bool      `form:"include_inactive"`
}
