package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/intisalud/hospital-api/internal/config"
	"github.com/intisalud/hospital-api/internal/repository/postgres"
	auditService "github.com/intisalud/hospital-api/internal/service/audit"
	catalogService "github.com/intisalud/hospital-api/internal/service/catalog"
	documentService "github.com/intisalud/hospital-api/internal/service/document"
	"github.com/intisalud/hospital-api/pkg/circuitbreaker"
	"github.com/intisalud/hospital-api/pkg/clock"
	"github.com/intisalud/hospital-api/pkg/logger"
	"github.com/intisalud/hospital-api/pkg/messaging"
	"github.com/intisalud/hospital-api/pkg/messaging/redis"
	"github.com/intisalud/hospital-api/pkg/metrics"
	"github.com/intisalud/hospital-api/pkg/worker"
)

// The worker binary runs everything that is not request-driven: the outbox
// publisher, the prescription expiry sweep, the optional draft cleanup and
// audit retention.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	// Publishes go through a breaker so a Redis outage fails fast and the
	// outbox retry schedule paces redelivery.
	publisher := messaging.NewResilientBroker(broker, circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Redis.BreakerThreshold,
		Cooldown:         cfg.Redis.BreakerCooldown,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("redis breaker state change", "from", from.String(), "to", to.String())
		},
	}))

	outboxRepo := postgres.NewOutboxRepository(db)
	documentRepo := postgres.NewDocumentRepository(db)
	sequenceRepo := postgres.NewSequenceRepository(db)
	staffRepo := postgres.NewStaffRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	txRunner := postgres.NewTxRunner(db)

	m := metrics.NewMetrics("hospital_worker")
	clk := clock.New()
	auditor := auditService.NewService(auditRepo)
	catalogSvc := catalogService.NewService(catalogRepo, cfg.Catalog.CacheTTL)
	documentSvc := documentService.NewService(documentRepo, sequenceRepo, staffRepo, catalogSvc,
		outboxRepo, txRunner, auditor, m, clk, log, documentService.Options{
			AutoSignMaxLines:       cfg.Documents.AutoSignMaxLines,
			PrescriptionExpiryDays: cfg.Documents.PrescriptionExpiryDays,
		})

	processor := worker.NewOutboxProcessor(outboxRepo, publisher, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Worker.Outbox.BatchSize,
		PollInterval:  cfg.Worker.Outbox.PollInterval,
		RetryAttempts: cfg.Worker.Outbox.RetryAttempts,
		RetryDelay:    cfg.Worker.Outbox.RetryDelay,
	}, log, m)

	sweeper := worker.NewDocumentSweeper(documentSvc, worker.DocumentSweeperConfig{
		ExpiryInterval:   cfg.Worker.ExpirySweep.Interval,
		ExpiryBatchSize:  cfg.Worker.ExpirySweep.BatchSize,
		CleanupEnabled:   cfg.Worker.DraftCleanup.Enabled,
		CleanupInterval:  cfg.Worker.DraftCleanup.Interval,
		CleanupOlderThan: time.Duration(cfg.Worker.DraftCleanup.RetentionDays) * 24 * time.Hour,
		CleanupBatchSize: cfg.Worker.DraftCleanup.BatchSize,
	}, log)

	setupHealthCheck(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	start := func(run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}

	start(processor.Start)
	start(sweeper.Start)
	if cfg.Worker.AuditCleanup.Enabled {
		cleanup := worker.NewAuditCleanupWorker(auditRepo,
			cfg.Worker.AuditCleanup.RetentionDays, cfg.Worker.AuditCleanup.Interval, log)
		start(cleanup.Start)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutting down...")
	cancel()
	wg.Wait()
}

func setupHealthCheck(log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Error(err, "Health check server failed")
		}
	}()
}
