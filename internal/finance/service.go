package finance

import (
	"context"
	"errors"

	"github.com/convexa-app/backoffice-backend/pkg/db/models"
)

// InvoiceSource provides the invoice collection the summary aggregates,
// with overdue status already derived for invoices past their grace period.
type InvoiceSource interface {
	AllForSummary(ctx context.Context) ([]models.Invoice, error)
}

// ServiceParams groups dependencies for the finance service.
type ServiceParams struct {
	Invoices InvoiceSource
}

// Service serves the reporting dashboard's financial summary.
type Service struct {
	invoices InvoiceSource
}

// NewService builds a finance service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Invoices == nil {
		return nil, errors.New("invoice source is required")
	}
	return &Service{invoices: params.Invoices}, nil
}

// Summary aggregates the current invoice collection.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	invoices, err := s.invoices.AllForSummary(ctx)
	if err != nil {
		return nil, err
	}
	summary := Summarize(invoices)
	return &summary, nil
}
