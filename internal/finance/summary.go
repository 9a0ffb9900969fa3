package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
)

var oneHundred = decimal.NewFromInt(100)

// MonthlyPoint is one month of the revenue-vs-projection series. Revenue is
// the paid volume; projected is everything billed but not yet settled.
type MonthlyPoint struct {
	Month     string          `json:"month"`
	Revenue   decimal.Decimal `json:"revenue"`
	Projected decimal.Decimal `json:"projected"`
}

// Summary is the aggregated financial position over a set of invoices.
// MonthlySeries is sparse: months without invoices are omitted, not
// zero-filled, so chart consumers must not assume contiguous months.
type Summary struct {
	TotalReceivables decimal.Decimal `json:"total_receivables"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOverdue     decimal.Decimal `json:"total_overdue"`
	DefaultRatePct   decimal.Decimal `json:"default_rate_pct"`
	MonthlySeries    []MonthlyPoint  `json:"monthly_series"`
}

// Summarize aggregates invoices into totals, the default rate and a monthly
// series keyed by the calendar month of each invoice's period start. It is a
// pure function: no mutation, safe for any number of concurrent callers, and
// an empty collection yields all-zero metrics with an empty series.
func Summarize(invoices []models.Invoice) Summary {
	summary := Summary{
		TotalReceivables: decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOverdue:     decimal.Zero,
		DefaultRatePct:   decimal.Zero,
	}

	type bucket struct {
		revenue   decimal.Decimal
		projected decimal.Decimal
	}
	months := make(map[string]*bucket)

	for _, invoice := range invoices {
		summary.TotalReceivables = summary.TotalReceivables.Add(invoice.BilledAmount)

		key := invoice.PeriodStart.UTC().Format("2006-01")
		b, ok := months[key]
		if !ok {
			b = &bucket{revenue: decimal.Zero, projected: decimal.Zero}
			months[key] = b
		}

		switch invoice.Status {
		case enums.InvoiceStatusPaid:
			summary.TotalPaid = summary.TotalPaid.Add(invoice.BilledAmount)
			b.revenue = b.revenue.Add(invoice.BilledAmount)
		case enums.InvoiceStatusOverdue:
			summary.TotalOverdue = summary.TotalOverdue.Add(invoice.BilledAmount)
			b.projected = b.projected.Add(invoice.BilledAmount)
		default:
			b.projected = b.projected.Add(invoice.BilledAmount)
		}
	}

	// Division by zero is defined as a zero rate, not an error.
	if summary.TotalReceivables.IsPositive() {
		summary.DefaultRatePct = oneHundred.
			Mul(summary.TotalOverdue).
			Div(summary.TotalReceivables).
			Round(2)
	}

	keys := make([]string, 0, len(months))
	for key := range months {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	summary.MonthlySeries = make([]MonthlyPoint, 0, len(keys))
	for _, key := range keys {
		summary.MonthlySeries = append(summary.MonthlySeries, MonthlyPoint{
			Month:     key,
			Revenue:   months[key].revenue,
			Projected: months[key].projected,
		})
	}
	return summary
}
