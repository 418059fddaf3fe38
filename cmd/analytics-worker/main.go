package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmersbracket/farmersbracket-backend/internal/analytics/router"
	"github.com/farmersbracket/farmersbracket-backend/internal/analytics/worker"
	"github.com/farmersbracket/farmersbracket-backend/internal/analytics/writer"
	"github.com/farmersbracket/farmersbracket-backend/pkg/bigquery"
	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/instance"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/idempotency"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pubsub"
	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID("analytics-0"),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "analytics worker stopped")
}

// run wires the Pub/Sub to BigQuery pipeline and blocks until ctx ends.
// Clients are closed in reverse order of creation.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logg.Error(ctx, "close client", err)
			}
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	closers = append(closers, redisClient)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	closers = append(closers, pubsubClient)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	closers = append(closers, bqClient)

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		return errors.New("analytics subscription not configured")
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}
	// Batch size stays at one: a message is acked only after its row is stored.
	sink, err := writer.New(bqClient, writer.Config{OrderEventsTable: bqClient.OrderEventsTable()})
	if err != nil {
		return fmt.Errorf("bigquery writer: %w", err)
	}
	routes, err := router.NewRouter(sink, logg, nil)
	if err != nil {
		return fmt.Errorf("analytics router: %w", err)
	}
	service, err := worker.NewService(subscription, routes, guard, logg,
		worker.WithRecorder(metrics.NewConsumerMetrics(prometheus.DefaultRegisterer)))
	if err != nil {
		return fmt.Errorf("analytics service: %w", err)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(ctx, "analytics worker ready")
	runErr := service.Run(ctx)
	if err := sink.Flush(context.WithoutCancel(ctx)); err != nil {
		logg.Error(ctx, "flush pending analytics rows", err)
	}
	return runErr
}
