package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/internal/model"
)

// newMockDB wraps a sqlmock connection in sqlx with the postgres bindvar
// dialect so Rebind produces the same $N placeholders the real driver sees.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func TestBedGetByCodeScansRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &bedRepository{NewBaseRepository(db)}

	id := uuid.New()
	mock.ExpectQuery("FROM beds WHERE code = ").
		WithArgs("MED-101").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "ward", "wing", "state", "active"}).
			AddRow(id.String(), "MED-101", "Medicina", "A", "AVAILABLE", true))

	bed, err := repo.GetByCode(context.Background(), "MED-101")
	require.NoError(t, err)
	assert.Equal(t, id, bed.ID)
	assert.Equal(t, "MED-101", bed.Code)
	assert.Equal(t, model.BedStateAvailable, bed.State)
	assert.True(t, bed.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBedListAvailableOnlyFiltersByState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &bedRepository{NewBaseRepository(db)}

	mock.ExpectQuery("FROM beds WHERE deleted_at IS NULL AND active = TRUE").
		WithArgs("Medicina", model.BedStateAvailable).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "ward", "state", "active"}))

	beds, err := repo.List(context.Background(), &model.BedFilters{Ward: "Medicina", AvailableOnly: true})
	require.NoError(t, err)
	assert.Empty(t, beds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBedUpdateStateRequiresExistingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &bedRepository{NewBaseRepository(db)}

	id := uuid.New()
	mock.ExpectExec("UPDATE beds").
		WithArgs(model.BedStateCleaning, "", id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateState(context.Background(), id, model.BedStateCleaning, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bed not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "beds_code_key"}

	assert.True(t, IsUniqueViolation(dup, "beds_code_key"))
	assert.True(t, IsUniqueViolation(dup, ""), "empty constraint matches any unique violation")
	assert.False(t, IsUniqueViolation(dup, "staff_email_key"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ""), "foreign key violations are not unique violations")
	assert.False(t, IsUniqueViolation(context.DeadlineExceeded, ""))
}
