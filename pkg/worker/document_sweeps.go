package worker

import (
	"context"
	"time"

	"github.com/intisalud/hospital-api/internal/service/document"
	"github.com/intisalud/hospital-api/pkg/logger"
)

type DocumentSweeperConfig struct {
	ExpiryInterval  time.Duration
	ExpiryBatchSize int

	// Draft cleanup is destructive (soft delete), so it ships disabled and is
	// opted into per deployment.
	CleanupEnabled   bool
	CleanupInterval  time.Duration
	CleanupOlderThan time.Duration
	CleanupBatchSize int
}

// DocumentSweeper runs the periodic document maintenance jobs: expiring
// overdue prescriptions and cleaning up abandoned note drafts.
type DocumentSweeper struct {
	docs   *document.Service
	config DocumentSweeperConfig
	logger *logger.Logger
}

func NewDocumentSweeper(docs *document.Service, config DocumentSweeperConfig, logger *logger.Logger) *DocumentSweeper {
	if config.ExpiryInterval <= 0 {
		panic("ExpiryInterval must be greater than 0")
	}
	if config.ExpiryBatchSize <= 0 {
		panic("ExpiryBatchSize must be greater than 0")
	}
	if config.CleanupEnabled {
		if config.CleanupInterval <= 0 {
			panic("CleanupInterval must be greater than 0")
		}
		if config.CleanupOlderThan <= 0 {
			panic("CleanupOlderThan must be greater than 0")
		}
		if config.CleanupBatchSize <= 0 {
			panic("CleanupBatchSize must be greater than 0")
		}
	}

	return &DocumentSweeper{
		docs:   docs,
		config: config,
		logger: logger,
	}
}

func (w *DocumentSweeper) Start(ctx context.Context) {
	expiry := time.NewTicker(w.config.ExpiryInterval)
	defer expiry.Stop()

	var cleanup <-chan time.Time
	if w.config.CleanupEnabled {
		t := time.NewTicker(w.config.CleanupInterval)
		defer t.Stop()
		cleanup = t.C
	}

	w.logger.Info("Starting document sweeper",
		"expiry_interval", w.config.ExpiryInterval.String(),
		"cleanup_enabled", w.config.CleanupEnabled)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down document sweeper")
			return
		case <-expiry.C:
			expired, err := w.docs.ExpireOverduePrescriptions(ctx, w.config.ExpiryBatchSize)
			if err != nil {
				w.logger.Error(err, "prescription expiry sweep failed")
				continue
			}
			if expired > 0 {
				w.logger.Info("prescription expiry sweep", "expired", expired)
			}
		case <-cleanup:
			removed, err := w.docs.CleanupStaleDrafts(ctx, w.config.CleanupOlderThan, w.config.CleanupBatchSize)
			if err != nil {
				w.logger.Error(err, "draft cleanup sweep failed")
				continue
			}
			if removed > 0 {
				w.logger.Info("draft cleanup sweep", "removed", removed)
			}
		}
	}
}
