package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/pkg/logger"
	"github.com/intisalud/hospital-api/pkg/messaging"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type statusUpdate struct {
	id      uuid.UUID
	status  model.OutboxStatus
	errMsg  *string
	retryAt *time.Time
}

// fakeOutboxStore serves canned pending events and records status updates.
// BeginTx hands out real transactions from a sqlmock connection so the
// commit/rollback flow in markStatus stays observable.
type fakeOutboxStore struct {
	db        *sql.DB
	pending   []*model.OutboxEvent
	updates   []statusUpdate
	updateErr error
	lastLimit int
}

func (f *fakeOutboxStore) Create(_ context.Context, _ *model.OutboxEvent) error { return nil }

func (f *fakeOutboxStore) CreateTx(_ context.Context, _ *sqlx.Tx, _ *model.OutboxEvent) error {
	return nil
}

func (f *fakeOutboxStore) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	f.lastLimit = limit
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutboxStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return f.db.BeginTx(ctx, nil)
}

func (f *fakeOutboxStore) UpdateStatusTx(_ context.Context, _ *sql.Tx, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, statusUpdate{id: id, status: status, errMsg: errMsg, retryAt: retryAt})
	return nil
}

func (f *fakeOutboxStore) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type publishRecord struct {
	channel string
	message messaging.Message
}

type fakeBroker struct {
	published []publishRecord
	failTypes map[string]error
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	msg := message.(messaging.Message)
	if err, ok := b.failTypes[msg.Type]; ok {
		return err
	}
	b.published = append(b.published, publishRecord{channel: channel, message: msg})
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, nil
}

func (b *fakeBroker) Close() error { return nil }

func pendingEvent(eventType string, retryCount int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		Payload:    json.RawMessage(`{"bed_code":"MED-101"}`),
		Status:     model.OutboxStatusPending,
		RetryCount: retryCount,
		CreatedAt:  time.Now(),
	}
}

func newProcessorFixture(t *testing.T, events ...*model.OutboxEvent) (*OutboxProcessor, *fakeOutboxStore, *fakeBroker, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	store := &fakeOutboxStore{db: raw, pending: events}
	broker := &fakeBroker{failTypes: map[string]error{}}
	p := NewOutboxProcessor(store, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}, testLogger(), nil)

	return p, store, broker, mock
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, messaging.ChannelBedMovements, messaging.ChannelFor(model.EventBedAdmitted))
	assert.Equal(t, messaging.ChannelBedMovements, messaging.ChannelFor(model.EventBedStateChanged))
	assert.Equal(t, messaging.ChannelDocumentLifecycle, messaging.ChannelFor(model.EventDocumentCreated))
	assert.Equal(t, messaging.ChannelDocumentLifecycle, messaging.ChannelFor(model.EventDocumentTransition))
}

func TestProcessEventsPublishesAndMarksProcessed(t *testing.T) {
	event := pendingEvent(model.EventBedAdmitted, 0)
	p, store, broker, mock := newProcessorFixture(t, event)

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, 10, store.lastLimit, "claim size follows the configured batch size")

	require.Len(t, broker.published, 1)
	assert.Equal(t, messaging.ChannelBedMovements, broker.published[0].channel)
	assert.Equal(t, model.EventBedAdmitted, broker.published[0].message.Type)

	require.Len(t, store.updates, 1)
	assert.Equal(t, event.ID, store.updates[0].id)
	assert.Equal(t, model.OutboxStatusProcessed, store.updates[0].status)
	assert.Nil(t, store.updates[0].errMsg)
	assert.Nil(t, store.updates[0].retryAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishFailureSchedulesRetry(t *testing.T) {
	event := pendingEvent(model.EventBedAdmitted, 0)
	p, store, broker, mock := newProcessorFixture(t, event)
	broker.failTypes[model.EventBedAdmitted] = errors.New("broker unavailable")

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, p.processEvents(context.Background()), "publish failures are logged, not bubbled")

	require.Len(t, store.updates, 1)
	update := store.updates[0]
	assert.Equal(t, model.OutboxStatusRetry, update.status)
	require.NotNil(t, update.errMsg)
	assert.Contains(t, *update.errMsg, "broker unavailable")
	require.NotNil(t, update.retryAt)
	assert.WithinDuration(t, time.Now().Add(time.Minute), *update.retryAt, 5*time.Second)
}

func TestRetryBackoffGrowsWithAttempts(t *testing.T) {
	event := pendingEvent(model.EventDocumentCreated, 1)
	p, store, broker, mock := newProcessorFixture(t, event)
	broker.failTypes[model.EventDocumentCreated] = errors.New("broker unavailable")

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, p.processEvents(context.Background()))

	require.Len(t, store.updates, 1)
	require.NotNil(t, store.updates[0].retryAt)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), *store.updates[0].retryAt, 5*time.Second,
		"second retry waits twice the base delay")
}

func TestExhaustedRetriesMarkFailed(t *testing.T) {
	event := pendingEvent(model.EventBedAdmitted, 2)
	p, store, broker, mock := newProcessorFixture(t, event)
	broker.failTypes[model.EventBedAdmitted] = errors.New("broker unavailable")

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, p.processEvents(context.Background()))

	require.Len(t, store.updates, 1)
	assert.Equal(t, model.OutboxStatusFailed, store.updates[0].status)
	require.NotNil(t, store.updates[0].errMsg)
	assert.Nil(t, store.updates[0].retryAt, "failed events are not rescheduled")
}

func TestProcessEventsContinuesPastFailures(t *testing.T) {
	failing := pendingEvent(model.EventBedAdmitted, 0)
	healthy := pendingEvent(model.EventDocumentCreated, 0)
	p, store, broker, mock := newProcessorFixture(t, failing, healthy)
	broker.failTypes[model.EventBedAdmitted] = errors.New("broker unavailable")

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, p.processEvents(context.Background()))

	require.Len(t, broker.published, 1, "the healthy event still goes out")
	assert.Equal(t, model.EventDocumentCreated, broker.published[0].message.Type)

	require.Len(t, store.updates, 2)
	assert.Equal(t, model.OutboxStatusRetry, store.updates[0].status)
	assert.Equal(t, model.OutboxStatusProcessed, store.updates[1].status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkStatusRollsBackOnUpdateFailure(t *testing.T) {
	event := pendingEvent(model.EventBedAdmitted, 0)
	p, store, _, mock := newProcessorFixture(t, event)
	store.updateErr = errors.New("row gone")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := p.processEvent(context.Background(), event)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "the status transaction is rolled back")
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	store := &fakeOutboxStore{}
	broker := &fakeBroker{}

	valid := OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}

	mutations := map[string]func(*OutboxProcessorConfig){
		"batch size":     func(c *OutboxProcessorConfig) { c.BatchSize = 0 },
		"poll interval":  func(c *OutboxProcessorConfig) { c.PollInterval = 0 },
		"retry attempts": func(c *OutboxProcessorConfig) { c.RetryAttempts = 0 },
		"retry delay":    func(c *OutboxProcessorConfig) { c.RetryDelay = 0 },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Panics(t, func() {
				NewOutboxProcessor(store, broker, cfg, testLogger(), nil)
			})
		})
	}
}
