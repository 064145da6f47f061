package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/intisalud/hospital-api/internal/config"
	"github.com/intisalud/hospital-api/internal/handler"
	admissionHandler "github.com/intisalud/hospital-api/internal/handler/admission"
	auditHandler "github.com/intisalud/hospital-api/internal/handler/audit"
	bedHandler "github.com/intisalud/hospital-api/internal/handler/bed"
	catalogHandler "github.com/intisalud/hospital-api/internal/handler/catalog"
	documentHandler "github.com/intisalud/hospital-api/internal/handler/document"
	reportHandler "github.com/intisalud/hospital-api/internal/handler/report"
	staffHandler "github.com/intisalud/hospital-api/internal/handler/staff"
	"github.com/intisalud/hospital-api/internal/middleware"
	"github.com/intisalud/hospital-api/internal/repository/postgres"
	"github.com/intisalud/hospital-api/internal/router"
	auditService "github.com/intisalud/hospital-api/internal/service/audit"
	bedService "github.com/intisalud/hospital-api/internal/service/bed"
	catalogService "github.com/intisalud/hospital-api/internal/service/catalog"
	documentService "github.com/intisalud/hospital-api/internal/service/document"
	occupancyService "github.com/intisalud/hospital-api/internal/service/occupancy"
	reportService "github.com/intisalud/hospital-api/internal/service/report"
	staffService "github.com/intisalud/hospital-api/internal/service/staff"
	"github.com/intisalud/hospital-api/pkg/auth"
	"github.com/intisalud/hospital-api/pkg/clock"
	"github.com/intisalud/hospital-api/pkg/logger"
	"github.com/intisalud/hospital-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
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

	if cfg.Database.AutoMigrate {
		migrator := postgres.NewMigrator(db, cfg.Database.MigrationsDir)
		applied, err := migrator.Up(context.Background())
		if err != nil {
			log.Fatal(err, "failed to apply migrations")
		}
		if applied > 0 {
			log.Info("applied migrations", "count", applied)
		}
	}

	// Repositories
	bedRepo := postgres.NewBedRepository(db)
	occupancyRepo := postgres.NewOccupancyRepository(db)
	documentRepo := postgres.NewDocumentRepository(db)
	sequenceRepo := postgres.NewSequenceRepository(db)
	staffRepo := postgres.NewStaffRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	txRunner := postgres.NewTxRunner(db)

	// Services
	m := metrics.NewMetrics("hospital")
	clk := clock.New()
	auditor := auditService.NewService(auditRepo)
	catalogSvc := catalogService.NewService(catalogRepo, cfg.Catalog.CacheTTL)
	bedSvc := bedService.NewService(bedRepo, occupancyRepo, outboxRepo, txRunner, auditor, log)
	occupancySvc := occupancyService.NewService(bedRepo, occupancyRepo, outboxRepo, txRunner, auditor, m, clk, log)
	documentSvc := documentService.NewService(documentRepo, sequenceRepo, staffRepo, catalogSvc,
		outboxRepo, txRunner, auditor, m, clk, log, documentService.Options{
			AutoSignMaxLines:       cfg.Documents.AutoSignMaxLines,
			PrescriptionExpiryDays: cfg.Documents.PrescriptionExpiryDays,
		})
	staffSvc := staffService.NewService(staffRepo, auditor)
	reportSvc := reportService.NewService(occupancyRepo, clk)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(auth.NewValidator(cfg.JWT.Secret))

	h := handler.NewHandler(db)
	bedH := bedHandler.NewHandler(bedSvc, occupancySvc)
	admissionH := admissionHandler.NewHandler(occupancySvc)
	documentH := documentHandler.NewHandler(documentSvc)
	reportH := reportHandler.NewHandler(reportSvc)
	staffH := staffHandler.NewHandler(staffSvc)
	catalogH := catalogHandler.NewHandler(catalogSvc)
	auditH := auditHandler.NewHandler(auditor)

	var limit rate.Limit
	if cfg.RateLimit.Enabled {
		limit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}

	r := router.NewRouter(
		authMiddleware,
		bedH,
		admissionH,
		documentH,
		reportH,
		staffH,
		catalogH,
		auditH,
		h,
		router.RouterConfig{
			RateLimit:     limit,
			RateBurst:     cfg.RateLimit.Burst,
			Timeout:       cfg.Server.RequestTimeout,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "hospital_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
