package staff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
	"github.com/intisalud/hospital-api/internal/repository/postgres"
	"github.com/intisalud/hospital-api/internal/service/audit"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
	"github.com/intisalud/hospital-api/pkg/security"
)

// Service manages staff records. Token issuance lives elsewhere; this only
// stores the bcrypt hash and the physician attributes the document engine
// checks.
type Service struct {
	repo    repository.StaffRepository
	auditor *audit.Service
}

func NewService(repo repository.StaffRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) Create(ctx context.Context, req *model.CreateStaffRequest, actorID uuid.UUID) (*model.Staff, error) {
	if req.Role == model.StaffRolePhysician && (req.Specialty == "" || req.License == "") {
		return nil, apperrors.NewValidation("physicians require a specialty and a license number")
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	staff := &model.Staff{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Specialty:    req.Specialty,
		License:      req.License,
		Role:         req.Role,
		Active:       true,
	}

	if err := s.repo.Create(ctx, staff); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return nil, apperrors.NewConflict(fmt.Sprintf("staff email %s already registered", req.Email))
		}
		return nil, fmt.Errorf("failed to create staff: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityStaff, staff.ID.String(), &audit.LogOptions{
		Metadata: map[string]string{"email": staff.Email, "role": string(staff.Role)},
	})

	return staff, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	staff, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("staff %s", id)
		}
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	return staff, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	staff, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundf("staff %s", email)
		}
		return nil, fmt.Errorf("failed to get staff by email: %w", err)
	}
	return staff, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateStaffRequest, actorID uuid.UUID) (*model.Staff, error) {
	staff, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		staff.Name = *req.Name
	}
	if req.Specialty != nil {
		staff.Specialty = *req.Specialty
	}
	if req.License != nil {
		staff.License = *req.License
	}
	if req.Role != nil {
		staff.Role = *req.Role
	}
	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		staff.PasswordHash = hash
	}
	if staff.Role == model.StaffRolePhysician && (staff.Specialty == "" || staff.License == "") {
		return nil, apperrors.NewValidation("physicians require a specialty and a license number")
	}

	if err := s.repo.Update(ctx, staff); err != nil {
		return nil, fmt.Errorf("failed to update staff: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, model.AuditEntityStaff, staff.ID.String(), nil)
	return staff, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	staff, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, staff.ID); err != nil {
		return fmt.Errorf("failed to deactivate staff: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionDeactivate, model.AuditEntityStaff, staff.ID.String(), nil)
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.StaffFilters) ([]*model.Staff, error) {
	staff, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

// VerifyPassword checks a login attempt against the stored hash.
func (s *Service) VerifyPassword(staff *model.Staff, password string) bool {
	return security.CheckPassword(staff.PasswordHash, password)
}
