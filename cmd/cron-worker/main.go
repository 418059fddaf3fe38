package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmersbracket/farmersbracket-backend/internal/cron"
	"github.com/farmersbracket/farmersbracket-backend/internal/farms"
	"github.com/farmersbracket/farmersbracket-backend/internal/notifications"
	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/instance"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
	"github.com/farmersbracket/farmersbracket-backend/pkg/migrate"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "read .env:", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg := logger.New(logger.Options{
		ServiceName: cfg.Service.Kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields: map[string]string{
			"env":      cfg.App.Env,
			"instance": instance.GetID("cron-0"),
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeLogged(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeLogged(ctx, logg, "redis", redisClient.Close)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker", envOrLocal(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(logg.WithFields(ctx, map[string]any{
		"interval":    cfg.Cron.Interval.String(),
		"job_timeout": cfg.Cron.JobTimeout.String(),
	}), "cron worker started")
	return service.Run(ctx)
}

// buildRegistry wires order expiry and the two retention sweeps.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	notificationsService, err := notifications.NewService(notificationsRepo, dbClient, outboxService, redisClient, logg)
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Outbox:   outboxService,
		Farms:    farms.NewRepository(dbClient.DB()),
		Notifier: notificationsService,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	expireJob, err := cron.NewExpireOrdersJob(cron.ExpireOrdersJobParams{
		Logger: logg,
		Orders: ordersService,
		TTL:    cfg.Cron.PendingOrderTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("order expiry job: %w", err)
	}
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	notificationJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
		Retention:  cfg.Cron.NotificationRetainDays,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}

	registry, err := cron.NewRegistry(expireJob, outboxJob, notificationJob)
	if err != nil {
		return nil, fmt.Errorf("register cron jobs: %w", err)
	}
	return registry, nil
}

func closeLogged(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "client", name), "close failed", err)
	}
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
