package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
	"github.com/farmersbracket/farmersbracket-backend/internal/reports/export"
	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "report"})

	_ = godotenv.Load()

	kindFlag := flag.String("type", "full", "report type: sales|products|farmers|full")
	formatFlag := flag.String("format", "", "file format: pdf|xlsx|csv (empty prints tables)")
	fromFlag := flag.String("from", "", "window start (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "window end, inclusive (YYYY-MM-DD)")
	farmerFlag := flag.String("farmer", "", "limit the report to one farmer id")
	outFlag := flag.String("out", ".", "directory for exported files")
	flag.Parse()

	kind, err := export.ParseKind(*kindFlag)
	requireResource(ctx, logg, "type flag", err)

	req, err := buildRequest(*fromFlag, *toFlag, *farmerFlag)
	requireResource(ctx, logg, "window flags", err)

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "report",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	svc, err := reports.NewService(reports.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "reports service", err)

	report, err := svc.Generate(ctx, req)
	requireResource(ctx, logg, "report", err)

	if *formatFlag == "" {
		requireResource(ctx, logg, "print", export.WriteText(os.Stdout, *report, kind))
		return
	}

	format, err := export.ParseFormat(*formatFlag)
	requireResource(ctx, logg, "format flag", err)

	file, err := export.Render(*report, kind, format, time.Now())
	requireResource(ctx, logg, "render", err)

	path := filepath.Join(*outFlag, file.Name)
	requireResource(ctx, logg, "write", os.WriteFile(path, file.Body, 0o644))
	logg.Info(logg.WithField(ctx, "path", path), "report written")
}

// buildRequest maps flags onto a report request. Without -farmer the report
// covers the whole marketplace.
func buildRequest(from, to, farmer string) (reports.Request, error) {
	req := reports.Request{ActorRole: enums.RoleAdmin}
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return req, fmt.Errorf("-from: %w", err)
		}
		req.From = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return req, fmt.Errorf("-to: %w", err)
		}
		req.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if farmer != "" {
		id, err := uuid.Parse(farmer)
		if err != nil {
			return req, fmt.Errorf("-farmer: %w", err)
		}
		req.ActorID = id
		req.ActorRole = enums.RoleFarmer
	}
	return req, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
