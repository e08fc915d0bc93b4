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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rushibamb/dig-village-sub001/internal/handler"
	"github.com/rushibamb/dig-village-sub001/internal/repository"
	"github.com/rushibamb/dig-village-sub001/internal/service"
	"github.com/rushibamb/dig-village-sub001/pkg/cache"
	"github.com/rushibamb/dig-village-sub001/pkg/config"
	"github.com/rushibamb/dig-village-sub001/pkg/database"
	"github.com/rushibamb/dig-village-sub001/pkg/jobs"
	"github.com/rushibamb/dig-village-sub001/pkg/logger"
	"github.com/rushibamb/dig-village-sub001/pkg/messaging"
	"github.com/rushibamb/dig-village-sub001/pkg/storage"
	"github.com/rushibamb/dig-village-sub001/pkg/validation"
)

// @title Smart Village Portal API
// @version 1.0.0
// @description Villager registration with OTP-authorized edits, and the grievance lifecycle.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	store, files, err := newObjectStore(ctx, cfg, logr)
	if err != nil {
		return err
	}

	var publisher service.MessagePublisher
	if cfg.RabbitMQ.Enabled {
		pub, err := messaging.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logr.Named("rabbitmq"))
		if err != nil {
			return err
		}
		defer pub.Close() //nolint:errcheck
		publisher = pub
	}

	metrics := service.NewMetricsService()
	validate := validation.New()

	audit := repository.NewAuditRepository(db)
	villagerRepo := repository.NewVillagerRepository(db)
	grievanceRepo := repository.NewGrievanceRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	otpRepo := repository.NewOTPRepository(rdb)
	listCache := service.NewCacheService(repository.NewCacheRepository(rdb, logr), metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	var notifications *service.NotificationService
	smsQueue := jobs.NewQueue("sms", func(ctx context.Context, job jobs.Job) error {
		return notifications.HandleJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr.Named("jobs"),
		OnExhausted: func(job jobs.Job, err error) {
			logr.Error("sms delivery abandoned", zap.String("job_id", job.ID), zap.Error(err))
		},
	})
	notifications = service.NewNotificationService(publisher, cfg.OTP.SenderID, logr,
		service.WithNotificationQueue(smsQueue),
		service.WithNotificationMetrics(metrics),
	)
	smsQueue.Start(ctx)
	defer smsQueue.Stop()

	otp := service.NewOTPService(otpRepo, notifications, logr, service.OTPConfig{
		TTL:            cfg.OTP.TTL,
		ResendCooldown: cfg.OTP.ResendCooldown,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		IssueLimit:     cfg.OTP.IssueLimit,
		IssueWindow:    cfg.OTP.IssueWindow,
		HashCost:       cfg.OTP.HashCost,
		SessionSecret:  cfg.OTP.SessionSecret,
		SessionTTL:     cfg.OTP.SessionTTL,
		Issuer:         cfg.JWT.Issuer,
	}, service.WithOTPMetrics(metrics))

	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})
	villagers := service.NewVillagerService(villagerRepo, otp, audit, validate, logr, service.WithVillagerCache(listCache))
	grievances := service.NewGrievanceService(grievanceRepo, workerRepo, audit, validate, logr,
		service.WithGrievanceCache(listCache),
		service.WithGrievanceMetrics(metrics),
	)
	workers := service.NewWorkerService(workerRepo, audit, validate, logr)
	uploads := service.NewUploadService(store, cfg.Uploads, metrics, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, logr, routes{
		auth:       auth,
		metrics:    metrics,
		audit:      audit,
		villagers:  handler.NewVillagerHandler(villagers),
		grievances: handler.NewGrievanceHandler(grievances),
		workers:    handler.NewWorkerHandler(workers),
		uploads:    handler.NewUploadHandler(uploads, files),
		ops:        handler.NewMetricsHandler(metrics, readinessChecks(db, rdb, store)...),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newObjectStore picks the upload backend. Only local storage serves files
// itself, so only it is returned as a FileOpener.
func newObjectStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (storage.ObjectStore, handler.FileOpener, error) {
	if cfg.Uploads.Backend == config.StorageBackendMinio {
		store, err := storage.NewMinioStorage(ctx, cfg.Minio, logr.Named("minio"))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, 0)
	local, err := storage.NewLocalStorage(cfg.Uploads.LocalDir, cfg.Uploads.PublicBaseURL, signer)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func readinessChecks(db *sqlx.DB, rdb *redis.Client, store storage.ObjectStore) []handler.ReadinessCheck {
	checks := []handler.ReadinessCheck{
		{Name: "postgres", Check: db.PingContext},
		{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	if p, ok := store.(pinger); ok {
		checks = append(checks, handler.ReadinessCheck{Name: "object_store", Check: p.Ping})
	}
	return checks
}
