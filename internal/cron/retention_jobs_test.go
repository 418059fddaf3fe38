package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

type fakeOutboxPruner struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type fakeNotificationPruner struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeNotificationPruner) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return 3, f.err
}

func TestOutboxRetentionJobPrunesThirtyDays(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), Repository: repo})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	if job.Name() != "prune_outbox" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)
	if !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		Repository: &fakeOutboxPruner{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotificationCleanupJobUsesRetention(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationPruner{}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.Nop(),
		Repository: repo,
		Retention:  10,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := time.Date(2026, 4, 21, 0, 0, 0, 0, time.UTC)
	if !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}

	repo.err = errors.New("locked")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetentionJobsRequireDependencies(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected missing repository error")
	}
	if _, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Repository: &fakeNotificationPruner{}}); err == nil {
		t.Fatal("expected missing logger error")
	}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Repository: &fakeNotificationPruner{}})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if job.(*retentionJob).days != notificationRetentionDays {
		t.Fatalf("expected default retention, got %d", job.(*retentionJob).days)
	}
}
