package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 48 * time.Hour
	defaultExpireBatch     = 200
)

type pendingOrderExpirer interface {
	ExpireStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ExpireOrdersJobParams configure the stale order expiry job.
type ExpireOrdersJobParams struct {
	Logger    *logger.Logger
	Orders    pendingOrderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewExpireOrdersJob builds the job that cancels card and PayFast orders
// whose payment never arrived within TTL.
func NewExpireOrdersJob(params ExpireOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpireBatch
	}
	return &expireOrdersJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type expireOrdersJob struct {
	logg   *logger.Logger
	orders pendingOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *expireOrdersJob) Name() string { return "expire_pending_orders" }

func (j *expireOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.orders.ExpireStalePending(ctx, cutoff, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"ttl_hours":      j.ttl.Hours(),
		"orders_expired": expired,
	})
	if err != nil {
		return fmt.Errorf("expire pending orders: %w", err)
	}
	j.logg.Info(logCtx, "stale pending orders expired")
	return nil
}
