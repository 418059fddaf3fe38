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

	"github.com/farmersbracket/farmersbracket-backend/api"
	"github.com/farmersbracket/farmersbracket-backend/api/routes"
	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/env"
	"github.com/farmersbracket/farmersbracket-backend/pkg/instance"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/migrate"
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
	cfg.Service.Kind = "api"

	logg := logger.New(logger.Options{
		ServiceName: cfg.Service.Kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields: map[string]string{
			"env":      cfg.App.Env,
			"instance": instance.GetID("local"),
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down")
}

// run owns the database and redis clients for the life of the server. Both
// are closed after the server has drained.
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

	deps, err := wire(ctx, cfg, logg, dbClient, redisClient, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	deps.Metrics = prometheus.DefaultGatherer

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logg.Info(logg.WithField(ctx, "addr", addr), "api server listening")
	return api.Serve(ctx, api.NewServer(addr, routes.NewRouter(deps)), logg)
}

func closeLogged(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "client", name), "close failed", err)
	}
}
