package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRunCountsOutcomesSeparately(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveRun("invoice_overdue_sweep", 120*time.Millisecond, nil)
	m.ObserveRun("invoice_overdue_sweep", 90*time.Millisecond, nil)
	m.ObserveRun("invoice_overdue_sweep", 45*time.Millisecond, errors.New("db down"))

	success := testutil.ToFloat64(m.runs.WithLabelValues("invoice_overdue_sweep", "success"))
	if success != 2 {
		t.Fatalf("expected 2 successful runs, got %f", success)
	}
	failure := testutil.ToFloat64(m.runs.WithLabelValues("invoice_overdue_sweep", "failure"))
	if failure != 1 {
		t.Fatalf("expected 1 failed run, got %f", failure)
	}

	series := testutil.CollectAndCount(m.duration, "convexa_billing_jobs_duration_seconds")
	if series != 1 {
		t.Fatalf("expected one duration series for the job, got %d", series)
	}
}

func TestObserveRunLabelsUnnamedJobs(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveRun("", time.Millisecond, nil)

	got := testutil.ToFloat64(m.runs.WithLabelValues("unnamed", "success"))
	if got != 1 {
		t.Fatalf("expected unnamed job run to be counted, got %f", got)
	}
}

func TestNilJobMetricsIsNoop(t *testing.T) {
	var m *JobMetrics
	// must not panic
	m.ObserveRun("invoice_overdue_sweep", time.Second, nil)

	if NewJobMetrics(nil) != nil {
		t.Fatal("expected nil metrics without a registerer")
	}
}
