package cron

import (
	"context"
	"testing"
)

type namedJob struct{ name string }

func (j *namedJob) Name() string              { return j.name }
func (j *namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	sweep := &namedJob{name: "invoice_overdue_sweep"}
	audit := &namedJob{name: "coupon_expiry_audit"}

	registry := NewRegistry(sweep, audit)
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != sweep || jobs[1] != audit {
		t.Fatalf("expected [sweep, audit], got %v", jobs)
	}
}

func TestRegistryIgnoresDuplicateNames(t *testing.T) {
	registry := NewRegistry(
		&namedJob{name: "invoice_overdue_sweep"},
		&namedJob{name: "invoice_overdue_sweep"},
		nil,
	)
	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("expected one job after dedupe, got %d", got)
	}
}

func TestRegistryJobsReturnsACopy(t *testing.T) {
	sweep := &namedJob{name: "invoice_overdue_sweep"}
	registry := NewRegistry(sweep)

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] != sweep {
		t.Fatal("mutating the returned slice must not affect the registry")
	}
}
