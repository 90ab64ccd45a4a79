package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ebd-attendance-api/api/swagger"
	"github.com/noah-isme/ebd-attendance-api/internal/handler"
	"github.com/noah-isme/ebd-attendance-api/internal/repository"
	"github.com/noah-isme/ebd-attendance-api/internal/service"
	"github.com/noah-isme/ebd-attendance-api/pkg/cache"
	"github.com/noah-isme/ebd-attendance-api/pkg/config"
	"github.com/noah-isme/ebd-attendance-api/pkg/database"
	"github.com/noah-isme/ebd-attendance-api/pkg/logger"
)

// @title EBD Attendance API
// @version 1.0.0
// @description Weekly class attendance and per-date attendance ranking.
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logr.Info("database migrated")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Ranking.CacheTTL, logr, cfg.Ranking.CacheEnabled && redisClient != nil)

	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	rankingRepo := repository.NewRankingRepository(db)

	classSvc := service.NewClassService(classRepo, metrics, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, cacheSvc, metrics, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, cacheSvc, metrics, validate, logr)
	rankingSvc := service.NewRankingService(service.RankingServiceParams{
		Repo:    rankingRepo,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr,
		Config: service.RankingServiceConfig{
			CacheTTL:    cfg.Ranking.CacheTTL,
			ExportTitle: cfg.Ranking.ExportTitle,
		},
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newRouter(cfg, logr, metrics, handlers{
		classes:    handler.NewClassHandler(classSvc),
		students:   handler.NewStudentHandler(studentSvc),
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		rankings:   handler.NewRankingHandler(rankingSvc),
		ops:        handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
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

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
