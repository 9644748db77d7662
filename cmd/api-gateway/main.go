package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/internal/handler"
	"github.com/noah-isme/tutorcrm-api/internal/middleware"
	"github.com/noah-isme/tutorcrm-api/internal/repository"
	"github.com/noah-isme/tutorcrm-api/internal/service"
	"github.com/noah-isme/tutorcrm-api/pkg/cache"
	"github.com/noah-isme/tutorcrm-api/pkg/config"
	"github.com/noah-isme/tutorcrm-api/pkg/database"
	"github.com/noah-isme/tutorcrm-api/pkg/export"
	"github.com/noah-isme/tutorcrm-api/pkg/jobs"
	"github.com/noah-isme/tutorcrm-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutorcrm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutorcrm-api/pkg/middleware/requestid"
)

// @title TutorCRM Availability API
// @version 1.0.0
// @description Teacher availability, slot search and session booking
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	// Redis is optional; without it templates are read straight from Postgres.
	var redisClient *redis.Client
	if cfg.Availability.TemplateCacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, template cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	metrics := service.NewMetricsService()
	deps := buildApp(cfg, db, redisClient, metrics, logr)

	deps.queue.Start(ctx)
	defer deps.queue.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	registerRoutes(r, cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown error", zap.Error(err))
	}
	logr.Info("server stopped")
	return nil
}

type app struct {
	availability *handler.AvailabilityHandler
	settings     *handler.AvailabilitySettingsHandler
	booking      *handler.BookingHandler
	metrics      *handler.MetricsHandler
	queue        *jobs.Queue
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService, logr *zap.Logger) *app {
	validate := validator.New()

	teachers := repository.NewTeacherRepository(db)
	templates := repository.NewAvailabilityTemplateRepository(db)
	blocks := repository.NewAvailabilityBlockRepository(db)
	sessions := repository.NewSessionRepository(db)

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Availability.TemplateCacheTTL, logr, redisClient != nil)

	invalidator := service.NewTemplateInvalidator(cacheSvc, logr)
	queue := jobs.NewQueue("cache-invalidation", invalidator.Handle, jobs.QueueConfig{
		Workers:    cfg.CacheWorker.Concurrency,
		MaxRetries: cfg.CacheWorker.Retries,
		RetryDelay: cfg.CacheWorker.RetryDelay,
		Logger:     logr,
	})
	invalidator.UseQueue(queue)

	engine := service.NewAvailabilityService(
		service.NewTemplateSource(templates, cacheSvc, cfg.Availability.TemplateCacheTTL, logr),
		service.NewBlockSource(blocks, logr),
		service.NewTeacherSessionSource(sessions, logr),
		metrics,
		logr,
		service.AvailabilityConfig{MaxRangeDays: cfg.Availability.MaxRangeDays},
	)

	probes := map[string]handler.ReadinessProbe{"postgres": db.PingContext}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	a := &app{
		availability: handler.NewAvailabilityHandler(engine, nil),
		settings: handler.NewAvailabilitySettingsHandler(
			service.NewAvailabilitySettingsService(teachers, templates, blocks, invalidator, validate, logr, cfg.Availability.DefaultTimezone),
		),
		metrics: handler.NewMetricsHandler(metrics, probes),
		queue:   queue,
	}
	// A nil exporter disables the export route.
	if cfg.Exports.Enabled {
		exporter := service.NewExportService(engine, logr, export.NewCSVExporter(), export.NewPDFExporter())
		a.availability = handler.NewAvailabilityHandler(engine, exporter)
	}
	if cfg.Bookings.Enabled {
		a.booking = handler.NewBookingHandler(service.NewBookingService(teachers, sessions, engine, validate, logr))
	}
	return a
}
