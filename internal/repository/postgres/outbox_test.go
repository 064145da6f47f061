package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/internal/model"
)

func TestOutboxCreateFillsDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &outboxRepository{NewBaseRepository(db)}

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(sqlmock.AnyArg(), "bed.admitted", []byte(`{"bed_code":"MED-101"}`), model.OutboxStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &model.OutboxEvent{
		EventType: model.EventBedAdmitted,
		Payload:   json.RawMessage(`{"bed_code":"MED-101"}`),
	}
	require.NoError(t, repo.Create(context.Background(), event))

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, model.OutboxStatusPending, event.Status)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxCreateKeepsCallerValues(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &outboxRepository{NewBaseRepository(db)}

	id := uuid.New()
	created := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(id, "document.created", []byte(`{}`), model.OutboxStatusRetry, created, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &model.OutboxEvent{
		ID:        id,
		EventType: model.EventDocumentCreated,
		Payload:   json.RawMessage(`{}`),
		Status:    model.OutboxStatusRetry,
		CreatedAt: created,
	}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.Equal(t, id, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxGetPendingEventsWithLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &outboxRepository{NewBaseRepository(db)}

	id := uuid.New()
	created := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WithArgs(model.OutboxStatusPending, model.OutboxStatusRetry, 25).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "payload", "status", "retry_count", "created_at"}).
			AddRow(id.String(), "bed.admitted", []byte(`{"bed_code":"MED-101"}`), "PENDING", 0, created))

	events, err := repo.GetPendingEventsWithLock(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Equal(t, model.OutboxStatusPending, events[0].Status)
	assert.JSONEq(t, `{"bed_code":"MED-101"}`, string(events[0].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxUpdateStatusTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &outboxRepository{NewBaseRepository(db)}

	id := uuid.New()
	message := "publish failed: broker unavailable"
	retryAt := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE outbox_events").
		WithArgs(model.OutboxStatusRetry, message, retryAt, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatusTx(context.Background(), tx, id, model.OutboxStatusRetry, &message, &retryAt))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxDeleteProcessedBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &outboxRepository{NewBaseRepository(db)}

	cutoff := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM outbox_events").
		WithArgs(model.OutboxStatusProcessed, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	deleted, err := repo.DeleteProcessedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(17), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
