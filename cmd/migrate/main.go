package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/migrate"
)

type options struct {
	command string
	dir     string
	name    string
	version string
}

// offline commands work on the migration files and never open a connection.
var offline = map[string]bool{"create": true, "validate": true}

var gooseCommands = map[string]bool{"up": true, "down": true, "status": true, "redo": true}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.command, "cmd", "up", "up|down|status|redo|version|create|validate")
	fs.StringVar(&opts.dir, "dir", "", "migrations directory on disk, for create and validate")
	fs.StringVar(&opts.name, "name", "", "migration name, for create")
	fs.StringVar(&opts.version, "version", "", "target version YYYYMMDDHHMMSS, for version")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch {
	case opts.command == "create" && opts.name == "":
		return options{}, errors.New("create needs -name")
	case opts.command == "version" && opts.version == "":
		return options{}, errors.New("version needs -version")
	case !offline[opts.command] && !gooseCommands[opts.command] && opts.command != "version":
		return options{}, fmt.Errorf("unknown -cmd %q", opts.command)
	}
	if opts.command == "create" && opts.dir == "" {
		opts.dir = migrate.DefaultDir
	}
	return opts, nil
}

// runOffline handles commands that only touch files.
func runOffline(opts options, stdout io.Writer) error {
	switch opts.command {
	case "create":
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, "created", path)
	case "validate":
		var err error
		if opts.dir == "" {
			err = migrate.ValidateEmbedded()
		} else {
			err = migrate.ValidateDir(opts.dir)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, "migrations valid")
	}
	return nil
}

func runOnline(ctx context.Context, sqlDB *sql.DB, opts options) error {
	if opts.command == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, opts.version)
	}
	return migrate.Run(ctx, sqlDB, opts.command)
}

func main() {
	_ = godotenv.Load()

	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if offline[opts.command] {
		if err := runOffline(opts, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.command,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		logg.Error(ctx, "failed to open sql handle", err)
		os.Exit(1)
	}

	if err := runOnline(ctx, sqlDB, opts); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}
