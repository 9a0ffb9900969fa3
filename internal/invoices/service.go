package invoices

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/convexa-app/backoffice-backend/pkg/config"
	"github.com/convexa-app/backoffice-backend/pkg/db"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
	"github.com/convexa-app/backoffice-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the invoice service.
type ServiceParams struct {
	Repo    Repository
	Billing config.BillingConfig
	Retry   db.RetryPolicy
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service owns the invoice lifecycle: issuance on proposal acceptance,
// overdue detection and exact-amount settlement.
type Service struct {
	repo    Repository
	billing config.BillingConfig
	retry   db.RetryPolicy
	log     *logger.Logger
	now     func() time.Time
}

// NewService builds an invoice service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Billing.OverdueGracePeriod <= 0 {
		params.Billing.OverdueGracePeriod = 240 * time.Hour
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		repo:    params.Repo,
		billing: params.Billing,
		retry:   db.EnsureRetryPolicy(params.Retry),
		log:     params.Logger,
		now:     params.Now,
	}, nil
}

// IssueFirstInvoice creates the opening invoice for a freshly accepted
// proposal, billed at the proposal's frozen grand total. It participates in
// the caller's transaction.
func (s *Service) IssueFirstInvoice(ctx context.Context, tx *gorm.DB, proposal *models.Proposal) (*models.Invoice, error) {
	if proposal == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "proposal is required to issue an invoice")
	}

	periodStart := s.now()
	periodEnd := periodStart.AddDate(0, 1, 0)
	invoice := &models.Invoice{
		ProposalID:   proposal.ID,
		BilledAmount: proposal.GrandTotal,
		Status:       enums.InvoiceStatusPending,
		PeriodStart:  periodStart,
		PeriodEnd:    &periodEnd,
	}
	if err := s.repo.WithTx(tx).Create(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "invoices.issue")
	}
	return invoice, nil
}

// Get loads an invoice. An invoice past its due date reads as overdue even if
// the sweep has not persisted the flip yet.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.retry.Do(ctx, "invoices.find", func(ctx context.Context) error {
		var opErr error
		invoice, opErr = s.repo.FindByID(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
			WithDetails(map[string]any{"invoice_id": id})
	}
	s.applyDerivedStatus(invoice)
	return invoice, nil
}

// Page is one page of invoices plus the cursor for the next one.
type Page struct {
	Invoices   []models.Invoice `json:"invoices"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// List pages through invoices, newest first, with optional status and
// proposal filters.
func (s *Service) List(ctx context.Context, status *enums.InvoiceStatus, proposalID *uuid.UUID, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	var invoices []models.Invoice
	err = s.retry.Do(ctx, "invoices.list", func(ctx context.Context) error {
		var opErr error
		invoices, opErr = s.repo.List(ctx, ListFilter{
			Status:     status,
			ProposalID: proposalID,
			Cursor:     cursor,
			Limit:      limit,
		})
		return opErr
	})
	if err != nil {
		return nil, err
	}

	page := &Page{Invoices: invoices}
	if len(invoices) > limit {
		page.Invoices = invoices[:limit]
		last := page.Invoices[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range page.Invoices {
		s.applyDerivedStatus(&page.Invoices[i])
	}
	return page, nil
}

// PaymentInput carries a settlement attempt against an invoice.
type PaymentInput struct {
	Amount    decimal.Decimal     `json:"amount"`
	Method    enums.PaymentMethod `json:"method"`
	Reference string              `json:"reference"`
}

// RecordPayment settles a payable invoice. The amount must match the billed
// amount exactly; partial payments and overpayments are both rejected.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, input PaymentInput) (*models.Invoice, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"method": input.Method.String()})
	}

	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.IsPayable() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "invoice is already settled").
			WithDetails(map[string]any{"status": invoice.Status.String()})
	}
	if !input.Amount.Equal(invoice.BilledAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "payment must match the billed amount exactly").
			WithDetails(map[string]any{
				"billed_amount": invoice.BilledAmount.String(),
				"paid_amount":   input.Amount.String(),
			})
	}

	payment := PaymentRecord{
		PaidAt:    s.now(),
		Method:    input.Method,
		Reference: strings.TrimSpace(input.Reference),
	}
	err = s.retry.Do(ctx, "invoices.mark_paid", func(ctx context.Context) error {
		settled, opErr := s.repo.MarkPaid(ctx, id, payment)
		if opErr != nil {
			return opErr
		}
		if !settled {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "invoice settled concurrently").
				WithDetails(map[string]any{"invoice_id": id})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invoice.Status = enums.InvoiceStatusPaid
	invoice.PaidAt = &payment.PaidAt
	invoice.PaymentMethod = &payment.Method
	if payment.Reference != "" {
		invoice.PaymentReference = &payment.Reference
	}

	paidCtx := s.log.WithFields(ctx, map[string]any{
		"invoice_id":     invoice.ID.String(),
		"payment_method": payment.Method.String(),
	})
	s.log.Info(paidCtx, "invoice paid")
	return invoice, nil
}

// SweepOverdue persists the overdue flip for every pending invoice whose
// grace period has elapsed. Safe to run repeatedly.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.billing.OverdueGracePeriod)

	var flipped int64
	err := s.retry.Do(ctx, "invoices.sweep_overdue", func(ctx context.Context) error {
		var opErr error
		flipped, opErr = s.repo.MarkOverdueBefore(ctx, cutoff)
		return opErr
	})
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		sweepCtx := s.log.WithField(ctx, "flipped", flipped)
		s.log.Info(sweepCtx, "pending invoices marked overdue")
	}
	return flipped, nil
}

// AllForSummary returns every invoice with derived overdue status applied,
// the input the financial summary works from.
func (s *Service) AllForSummary(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.retry.Do(ctx, "invoices.all", func(ctx context.Context) error {
		var opErr error
		invoices, opErr = s.repo.All(ctx)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		s.applyDerivedStatus(&invoices[i])
	}
	return invoices, nil
}

// applyDerivedStatus presents a pending invoice past its due date as overdue
// without waiting for the sweep to persist it.
func (s *Service) applyDerivedStatus(invoice *models.Invoice) {
	if invoice.Status != enums.InvoiceStatusPending {
		return
	}
	if s.now().After(invoice.DueAt(s.billing.OverdueGracePeriod)) {
		invoice.Status = enums.InvoiceStatusOverdue
	}
}
