package finance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
)

func money(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func invoice(amount string, status enums.InvoiceStatus, periodStart time.Time) models.Invoice {
	return models.Invoice{
		ID:           uuid.New(),
		ProposalID:   uuid.New(),
		BilledAmount: money(amount),
		Status:       status,
		PeriodStart:  periodStart,
	}
}

func TestSummarizeEmptyCollection(t *testing.T) {
	got := Summarize(nil)

	if !got.TotalReceivables.IsZero() || !got.TotalPaid.IsZero() || !got.TotalOverdue.IsZero() {
		t.Fatalf("expected all-zero totals, got %+v", got)
	}
	if !got.DefaultRatePct.IsZero() {
		t.Fatalf("default rate on empty collection must be 0, got %s", got.DefaultRatePct)
	}
	if len(got.MonthlySeries) != 0 {
		t.Fatalf("expected empty series, got %+v", got.MonthlySeries)
	}
}

func TestSummarizeTotalsAndDefaultRate(t *testing.T) {
	jan := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		invoice("600.00", enums.InvoiceStatusPaid, jan),
		invoice("300.00", enums.InvoiceStatusOverdue, jan),
		invoice("100.00", enums.InvoiceStatusPending, jan),
	}

	got := Summarize(invoices)

	if !got.TotalReceivables.Equal(money("1000.00")) {
		t.Fatalf("receivables: expected 1000.00, got %s", got.TotalReceivables)
	}
	if !got.TotalPaid.Equal(money("600.00")) {
		t.Fatalf("paid: expected 600.00, got %s", got.TotalPaid)
	}
	if !got.TotalOverdue.Equal(money("300.00")) {
		t.Fatalf("overdue: expected 300.00, got %s", got.TotalOverdue)
	}
	if !got.DefaultRatePct.Equal(money("30.00")) {
		t.Fatalf("default rate: expected 30.00, got %s", got.DefaultRatePct)
	}
}

func TestSummarizeMonthlySeriesIsSparse(t *testing.T) {
	jan := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	// March on purpose: February has no invoices and must be absent from the
	// series, not zero-filled.
	mar := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)

	invoices := []models.Invoice{
		invoice("500.00", enums.InvoiceStatusPaid, jan),
		invoice("200.00", enums.InvoiceStatusPending, jan),
		invoice("150.00", enums.InvoiceStatusOverdue, mar),
	}

	got := Summarize(invoices)

	if len(got.MonthlySeries) != 2 {
		t.Fatalf("expected two months in series, got %+v", got.MonthlySeries)
	}
	first, second := got.MonthlySeries[0], got.MonthlySeries[1]
	if first.Month != "2025-01" || second.Month != "2025-03" {
		t.Fatalf("expected sorted sparse months, got %s and %s", first.Month, second.Month)
	}
	if !first.Revenue.Equal(money("500.00")) || !first.Projected.Equal(money("200.00")) {
		t.Fatalf("january: expected revenue 500.00 / projected 200.00, got %+v", first)
	}
	if !second.Revenue.IsZero() || !second.Projected.Equal(money("150.00")) {
		t.Fatalf("march: expected projected 150.00 only, got %+v", second)
	}
}

func TestSummarizeRoundsDefaultRate(t *testing.T) {
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	invoices := []models.Invoice{
		invoice("300.00", enums.InvoiceStatusPending, jan),
		invoice("100.00", enums.InvoiceStatusOverdue, jan),
		invoice("200.00", enums.InvoiceStatusPaid, jan),
	}

	got := Summarize(invoices)

	// 100 / 600 = 16.666..% rounded to two decimals.
	if !got.DefaultRatePct.Equal(money("16.67")) {
		t.Fatalf("default rate: expected 16.67, got %s", got.DefaultRatePct)
	}
}

type stubSource struct {
	invoices []models.Invoice
}

func (s stubSource) AllForSummary(_ context.Context) ([]models.Invoice, error) {
	return s.invoices, nil
}

func TestServiceSummary(t *testing.T) {
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{Invoices: stubSource{invoices: []models.Invoice{
		invoice("250.00", enums.InvoiceStatusPaid, jan),
	}}})
	if err != nil {
		t.Fatalf("unexpected error building service: %v", err)
	}

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.TotalPaid.Equal(money("250.00")) {
		t.Fatalf("expected paid 250.00, got %s", summary.TotalPaid)
	}
}
