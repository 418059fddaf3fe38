package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

// sqlSource is satisfied by *db.Client.
type sqlSource interface {
	SQL() (*sql.DB, error)
}

func shouldAutoMigrate(cfg *config.Config) bool {
	return cfg != nil && cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}

// MaybeRunDev applies pending migrations at boot. It only acts in the dev
// environment with FARMERSBRACKET_AUTO_MIGRATE set; elsewhere cmd/migrate is
// the way schemas move.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, source sqlSource) error {
	if !shouldAutoMigrate(cfg) {
		return nil
	}
	pool, err := source.SQL()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	started := time.Now()
	if err := Run(ctx, pool, "up"); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logg.Info(logg.WithField(ctx, "duration_ms", time.Since(started).Milliseconds()), "dev migrations applied")
	return nil
}
