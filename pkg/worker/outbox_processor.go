package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/internal/repository"
	"github.com/intisalud/hospital-api/pkg/logger"
	"github.com/intisalud/hospital-api/pkg/messaging"
	"github.com/intisalud/hospital-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// OutboxProcessor drains committed events from the outbox table and publishes
// them to the broker. Delivery is at-least-once: an event is marked PROCESSED
// only after a successful publish, and failed events are rescheduled with a
// linear backoff until RetryAttempts is exhausted.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	if p.metrics != nil {
		timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
		defer timer.ObserveDuration()
	}

	events, err := p.repo.GetPendingEventsWithLock(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	msg := messaging.Message{
		Type:    event.EventType,
		Payload: json.RawMessage(event.Payload),
	}

	if err := p.broker.Publish(ctx, messaging.ChannelFor(event.EventType), msg); err != nil {
		return p.reschedule(ctx, event, err)
	}

	if p.metrics != nil {
		p.metrics.OutboxEventsProcessed.Inc()
	}
	return p.markStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil)
}

// reschedule moves a failed event to RETRY with a linear backoff, or to FAILED
// once the attempt budget is spent.
func (p *OutboxProcessor) reschedule(ctx context.Context, event *model.OutboxEvent, cause error) error {
	errStr := cause.Error()

	if event.RetryCount+1 >= p.config.RetryAttempts {
		if p.metrics != nil {
			p.metrics.OutboxEventsFailed.Inc()
		}
		if err := p.markStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil); err != nil {
			return err
		}
		return fmt.Errorf("event exhausted %d attempts: %w", p.config.RetryAttempts, cause)
	}

	if p.metrics != nil {
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	}
	retryAt := time.Now().Add(p.config.RetryDelay * time.Duration(event.RetryCount+1))
	if err := p.markStatus(ctx, event.ID, model.OutboxStatusRetry, &errStr, &retryAt); err != nil {
		return err
	}
	return fmt.Errorf("publish failed, retry scheduled for %s: %w", retryAt.Format(time.RFC3339), cause)
}

func (p *OutboxProcessor) markStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	tx, err := p.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin status update: %w", err)
	}
	if err := p.repo.UpdateStatusTx(ctx, tx, id, status, errMsg, retryAt); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
