package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "expire_pending_orders"
	m.Observe(job, 250*time.Millisecond, nil)
	m.Observe(job, 10*time.Millisecond, errors.New("db down"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, outcome := range []string{OutcomeSuccess, OutcomeFailure} {
		labels := map[string]string{"job": job, "outcome": outcome}
		if got := counterValue(t, mfs, "farmersbracket_cron_job_runs_total", labels); got != 1 {
			t.Fatalf("expected %s=1, got %f", outcome, got)
		}
	}

	hist := sample(mfs, "farmersbracket_cron_job_duration_seconds", map[string]string{"job": job})
	if hist == nil {
		t.Fatal("duration histogram missing")
	}
	if got := hist.GetHistogram(); got.GetSampleCount() != 2 || got.GetSampleSum() <= 0.25 {
		t.Fatalf("unexpected histogram count=%d sum=%f", got.GetSampleCount(), got.GetSampleSum())
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewCronJobMetrics(nil).Observe("x", time.Second, nil)
	NewCheckoutMetrics(nil).Submission("card", OutcomeSuccess)
	NewOutboxMetrics(nil).Published("order.created")
	NewConsumerMetrics(nil).Delivery("analytics", "order.created", OutcomeRetry)
	var m *CheckoutMetrics
	m.Confirmation("stripe", OutcomeFailure)
}
