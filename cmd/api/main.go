package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"trustdocs/internal/audit"
	"trustdocs/internal/bus"
	"trustdocs/internal/config"
	"trustdocs/internal/database"
	"trustdocs/internal/database/migration"
	handlers "trustdocs/internal/http/handler"
	"trustdocs/internal/http/middleware"
	"trustdocs/internal/intake"
	"trustdocs/internal/lock"
	"trustdocs/internal/otel"
	"trustdocs/internal/registry"
	"trustdocs/internal/repository/postgres"
	"trustdocs/internal/scanner"
	"trustdocs/internal/storage"
	"trustdocs/internal/validator"
	"trustdocs/internal/vault"
	"trustdocs/internal/verification"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Configuration from environment variables (.env auto-loaded if present).
	cfg := config.Load()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log); err != nil {
		return err
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		return err
	}

	// Repositories.
	docRepo := postgres.NewDocumentPostgres(db)
	catRepo := postgres.NewCategoryPostgres(db)
	auditRepo := postgres.NewAuditPostgres(db)
	verifRepo := postgres.NewVerificationPostgres(db)
	keyRepo := postgres.NewKeyPostgres(db)

	encVault, err := vault.New(cfg.Vault, objStore, keyRepo, log)
	if err != nil {
		return err
	}

	// Metrics registry, shared between the HTTP middleware and the domain
	// collectors, exposed on its own listener.
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMW, err := middleware.NewPrometheusMiddleware(promReg)
	if err != nil {
		return err
	}
	auditMetrics, err := audit.NewMetrics(promReg)
	if err != nil {
		return err
	}
	intakeMetrics, err := intake.NewMetrics(promReg)
	if err != nil {
		return err
	}

	// Category slot lock: Redis when configured, in-process otherwise.
	var locker lock.Locker
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		locker = lock.NewRedis(rdb, log)
	} else {
		locker = lock.NewMemory()
	}

	// Domain event publisher: Kafka when configured, in-process otherwise.
	var publisher bus.Publisher
	if cfg.Kafka.Enabled {
		kafka, err := bus.NewKafka(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = kafka
	} else {
		publisher = bus.NewInProcess()
	}

	auditQueue := audit.NewQueue(cfg.Audit, auditRepo, audit.NewLogNotifier(log), log, auditMetrics)

	reg := registry.New(docRepo, catRepo, log)

	var profiles verification.ProfileProvider
	if cfg.Profile.BaseURL != "" {
		profiles = verification.NewHTTPProfileProvider(cfg.Profile)
	} else {
		log.Warn("no profile service configured, profile signal treated as incomplete")
		profiles = verification.StaticProfileProvider(false)
	}
	reconciler := verification.New(verifRepo, reg, profiles, publisher, auditQueue, cfg.Intake.RequiredRole, log)

	svc := intake.NewPipeline(
		cfg.Intake,
		scanner.NewSignatureScanner(),
		validator.NewContentValidator(),
		encVault,
		reg,
		catRepo,
		locker,
		auditQueue,
		publisher,
		reconciler,
		log,
		intakeMetrics,
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    32 * 1024 * 1024,
	})
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))
	app.Use(promMW.Handler())
	handlers.RegisterRoutes(app, db, svc, reconciler)

	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := auditQueue.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("http listening", "port", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
