package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const (
	outboxRetentionDays       = 30
	notificationRetentionDays = 90
)

// outboxPruner is satisfied by *outbox.Repository.
type outboxPruner interface {
	DeletePublishedBefore(cutoff time.Time) (int64, error)
}

type readNotificationPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxPruner
	Retention  int
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository readNotificationPruner
	Retention  int
}

// NewOutboxRetentionJob deletes published outbox rows older than Retention
// days. Undelivered rows are kept whatever their age.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	return newRetentionJob("prune_outbox", params.Logger, params.Retention, outboxRetentionDays,
		func(_ context.Context, cutoff time.Time) (int64, error) {
			return params.Repository.DeletePublishedBefore(cutoff)
		})
}

// NewNotificationCleanupJob deletes notifications read more than Retention
// days ago. Unread rows are never touched.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	return newRetentionJob("prune_read_notifications", params.Logger, params.Retention, notificationRetentionDays,
		params.Repository.DeleteReadBefore)
}

type pruneFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// retentionJob deletes rows older than a fixed number of days.
type retentionJob struct {
	name  string
	logg  *logger.Logger
	days  int
	prune pruneFunc
	now   func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, days, fallback int, prune pruneFunc) (Job, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if days <= 0 {
		days = fallback
	}
	return &retentionJob{name: name, logg: logg, days: days, prune: prune, now: time.Now}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune rows before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "retention prune complete")
	return nil
}
