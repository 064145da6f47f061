package staff

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/service/audit"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
)

type fakeStaffRepo struct {
	staff map[uuid.UUID]*model.Staff
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{staff: make(map[uuid.UUID]*model.Staff)}
}

func (f *fakeStaffRepo) Create(_ context.Context, s *model.Staff) error {
	for _, existing := range f.staff {
		if existing.Email == s.Email {
			return &pq.Error{Code: "23505", Constraint: "staff_email_key"}
		}
	}
	s.ID = uuid.New()
	cp := *s
	f.staff[s.ID] = &cp
	return nil
}

func (f *fakeStaffRepo) Get(_ context.Context, id uuid.UUID) (*model.Staff, error) {
	s, ok := f.staff[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*model.Staff, error) {
	for _, s := range f.staff {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStaffRepo) Update(_ context.Context, s *model.Staff) error {
	if _, ok := f.staff[s.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *s
	f.staff[s.ID] = &cp
	return nil
}

func (f *fakeStaffRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	s, ok := f.staff[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Active = false
	return nil
}

func (f *fakeStaffRepo) List(_ context.Context, filters *model.StaffFilters) ([]*model.Staff, error) {
	var out []*model.Staff
	for _, s := range f.staff {
		if !filters.IncludeInactive && !s.Active {
			continue
		}
		if filters.Role != "" && s.Role != filters.Role {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

type fakeAuditRepo struct {
	logs []*model.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditRepo) CreateTx(_ context.Context, _ *sqlx.Tx, log *model.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditRepo) ListWithPagination(_ context.Context, _ *model.AuditFilters) ([]*model.AuditLog, int64, error) {
	return f.logs, int64(len(f.logs)), nil
}

func (f *fakeAuditRepo) DeleteBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newStaffService(t *testing.T) (*Service, *fakeStaffRepo, *fakeAuditRepo) {
	t.Helper()
	repo := newFakeStaffRepo()
	audits := &fakeAuditRepo{}
	return NewService(repo, audit.NewService(audits)), repo, audits
}

func physicianReq() *model.CreateStaffRequest {
	return &model.CreateStaffRequest{
		Email:     "elena.vargas@hospital.test",
		Name:      "Dra. Elena Vargas",
		Password:  "correct horse battery",
		Specialty: "Internal Medicine",
		License:   "CMP-44021",
		Role:      model.StaffRolePhysician,
	}
}

func TestCreateHashesPassword(t *testing.T) {
	svc, repo, audits := newStaffService(t)
	actor := uuid.New()

	created, err := svc.Create(context.Background(), physicianReq(), actor)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.True(t, created.Active)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "correct horse battery", created.PasswordHash)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, svc.VerifyPassword(stored, "correct horse battery"))
	assert.False(t, svc.VerifyPassword(stored, "wrong password"))

	require.Len(t, audits.logs, 1)
	assert.Equal(t, model.AuditActionCreate, audits.logs[0].Action)
	assert.Equal(t, model.AuditEntityStaff, audits.logs[0].EntityType)
}

func TestCreatePhysicianRequiresCredentials(t *testing.T) {
	svc, _, _ := newStaffService(t)
	actor := uuid.New()

	req := physicianReq()
	req.License = ""
	_, err := svc.Create(context.Background(), req, actor)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation), "got %v", err)

	req = physicianReq()
	req.Specialty = ""
	_, err = svc.Create(context.Background(), req, actor)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation), "got %v", err)

	// Nurses and admins carry neither.
	_, err = svc.Create(context.Background(), &model.CreateStaffRequest{
		Email:    "marco.silva@hospital.test",
		Name:     "Marco Silva",
		Password: "another passphrase",
		Role:     model.StaffRoleNurse,
	}, actor)
	assert.NoError(t, err)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, _, _ := newStaffService(t)
	actor := uuid.New()

	_, err := svc.Create(context.Background(), physicianReq(), actor)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), physicianReq(), actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	assert.Contains(t, err.Error(), "already registered")
}

func TestUpdateGuardsPhysicianCredentials(t *testing.T) {
	svc, _, _ := newStaffService(t)
	actor := uuid.New()

	nurse, err := svc.Create(context.Background(), &model.CreateStaffRequest{
		Email:    "marco.silva@hospital.test",
		Name:     "Marco Silva",
		Password: "another passphrase",
		Role:     model.StaffRoleNurse,
	}, actor)
	require.NoError(t, err)

	role := model.StaffRolePhysician
	_, err = svc.Update(context.Background(), nurse.ID, &model.UpdateStaffRequest{Role: &role}, actor)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation), "promotion without credentials: %v", err)

	specialty := "Emergency Medicine"
	license := "CMP-60110"
	updated, err := svc.Update(context.Background(), nurse.ID, &model.UpdateStaffRequest{
		Role:      &role,
		Specialty: &specialty,
		License:   &license,
	}, actor)
	require.NoError(t, err)
	assert.True(t, updated.IsPhysician())
}

func TestUpdatePassword(t *testing.T) {
	svc, repo, _ := newStaffService(t)
	actor := uuid.New()

	created, err := svc.Create(context.Background(), physicianReq(), actor)
	require.NoError(t, err)

	newPassword := "rotated passphrase"
	_, err = svc.Update(context.Background(), created.ID, &model.UpdateStaffRequest{Password: &newPassword}, actor)
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, svc.VerifyPassword(stored, "rotated passphrase"))
	assert.False(t, svc.VerifyPassword(stored, "correct horse battery"))
}

func TestDeactivate(t *testing.T) {
	svc, repo, audits := newStaffService(t)
	actor := uuid.New()

	created, err := svc.Create(context.Background(), physicianReq(), actor)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), created.ID, actor))

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	require.Len(t, audits.logs, 2)
	assert.Equal(t, model.AuditActionDeactivate, audits.logs[1].Action)

	err = svc.Deactivate(context.Background(), uuid.New(), actor)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestGetNotFound(t *testing.T) {
	svc, _, _ := newStaffService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	_, err = svc.GetByEmail(context.Background(), "nobody@hospital.test")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestListFiltersInactive(t *testing.T) {
	svc, _, _ := newStaffService(t)
	actor := uuid.New()

	created, err := svc.Create(context.Background(), physicianReq(), actor)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), &model.CreateStaffRequest{
		Email:    "marco.silva@hospital.test",
		Name:     "Marco Silva",
		Password: "another passphrase",
		Role:     model.StaffRoleNurse,
	}, actor)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), created.ID, actor))

	active, err := svc.List(context.Background(), &model.StaffFilters{})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := svc.List(context.Background(), &model.StaffFilters{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
