package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/farmersbracket/farmersbracket-backend/internal/analytics/types"
	pkgbigquery "github.com/farmersbracket/farmersbracket-backend/pkg/bigquery"
)

// Config controls batching and retries. Zero values fall back to defaults.
type Config struct {
	OrderEventsTable string
	BatchSize        int
	RetryPolicy      RetryPolicy
}

// RetryPolicy bounds streaming insert retries.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 250 * time.Millisecond
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = max(2*time.Second, p.InitialBackoff)
	}
	return p
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter streams order event rows into one table. Pub/Sub delivers
// messages concurrently so the buffer is guarded.
type BigQueryWriter struct {
	client    tableInserter
	table     string
	batchSize int
	retry     RetryPolicy

	mu     sync.Mutex
	buffer []types.OrderEventRow
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return newWriter(client, cfg)
}

func newWriter(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	table := strings.TrimSpace(cfg.OrderEventsTable)
	if table == "" {
		return nil, errors.New("order events table is required")
	}
	return &BigQueryWriter{
		client:    client,
		table:     table,
		batchSize: max(cfg.BatchSize, 1),
		retry:     cfg.RetryPolicy.withDefaults(),
	}, nil
}

// InsertOrderEvent queues row and writes the batch once it is full.
func (w *BigQueryWriter) InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, row)
	if len(w.buffer) < w.batchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

// Flush writes whatever is queued. On failure the rows are kept for the next
// attempt.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *BigQueryWriter) flushLocked(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}
	rows := make([]any, 0, len(w.buffer))
	for i := range w.buffer {
		rows = append(rows, &w.buffer[i])
	}
	if err := w.put(ctx, rows); err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(rows), w.table, err)
	}
	w.buffer = w.buffer[:0]
	return nil
}

// put retries transient failures with capped exponential backoff. A
// cancelled context stops the loop with ctx.Err().
func (w *BigQueryWriter) put(ctx context.Context, rows []any) error {
	backoff := retry.NewExponential(w.retry.InitialBackoff)
	backoff = retry.WithCappedDuration(w.retry.MaximumBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(w.retry.MaxAttempts-1), backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := w.client.InsertRows(ctx, w.table, rows)
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
