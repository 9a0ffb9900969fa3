package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/convexa-app/backoffice-backend/pkg/config"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/pagination"
)

func money(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

type stubRepo struct {
	invoices map[uuid.UUID]*models.Invoice
}

func newStubRepo() *stubRepo {
	return &stubRepo{invoices: make(map[uuid.UUID]*models.Invoice)}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	invoice.CreatedAt = time.Now()
	s.invoices[invoice.ID] = invoice
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, nil
	}
	copied := *invoice
	return &copied, nil
}

func (s *stubRepo) List(_ context.Context, filter ListFilter) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, invoice := range s.invoices {
		if filter.Status != nil && invoice.Status != *filter.Status {
			continue
		}
		if filter.ProposalID != nil && invoice.ProposalID != *filter.ProposalID {
			continue
		}
		out = append(out, *invoice)
	}
	return out, nil
}

func (s *stubRepo) All(_ context.Context) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, invoice := range s.invoices {
		out = append(out, *invoice)
	}
	return out, nil
}

func (s *stubRepo) MarkPaid(_ context.Context, id uuid.UUID, payment PaymentRecord) (bool, error) {
	invoice, ok := s.invoices[id]
	if !ok || !invoice.Status.IsPayable() {
		return false, nil
	}
	invoice.Status = enums.InvoiceStatusPaid
	invoice.PaidAt = &payment.PaidAt
	invoice.PaymentMethod = &payment.Method
	if payment.Reference != "" {
		invoice.PaymentReference = &payment.Reference
	}
	return true, nil
}

func (s *stubRepo) MarkOverdueBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var flipped int64
	for _, invoice := range s.invoices {
		if invoice.Status == enums.InvoiceStatusPending && invoice.PeriodStart.Before(cutoff) {
			invoice.Status = enums.InvoiceStatusOverdue
			flipped++
		}
	}
	return flipped, nil
}

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

const grace = 240 * time.Hour

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Billing: config.BillingConfig{OverdueGracePeriod: grace},
		Now:     func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("unexpected error building service: %v", err)
	}
	return svc
}

func seedInvoice(repo *stubRepo, amount string, status enums.InvoiceStatus, periodStart time.Time) *models.Invoice {
	invoice := &models.Invoice{
		ID:           uuid.New(),
		ProposalID:   uuid.New(),
		BilledAmount: money(amount),
		Status:       status,
		PeriodStart:  periodStart,
		CreatedAt:    periodStart,
	}
	repo.invoices[invoice.ID] = invoice
	return invoice
}

func TestIssueFirstInvoiceUsesFrozenTotal(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	proposal := &models.Proposal{ID: uuid.New(), GrandTotal: money("761.60")}
	invoice, err := svc.IssueFirstInvoice(context.Background(), nil, proposal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !invoice.BilledAmount.Equal(money("761.60")) {
		t.Fatalf("expected billed amount 761.60, got %s", invoice.BilledAmount)
	}
	if invoice.Status != enums.InvoiceStatusPending {
		t.Fatalf("expected pending invoice, got %s", invoice.Status)
	}
	if !invoice.PeriodStart.Equal(testNow) {
		t.Fatalf("expected period start at issuance time, got %s", invoice.PeriodStart)
	}
	if invoice.PeriodEnd == nil || !invoice.PeriodEnd.Equal(testNow.AddDate(0, 1, 0)) {
		t.Fatalf("expected one-month billing period, got %v", invoice.PeriodEnd)
	}
}

func TestRecordPaymentExactAmount(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)
	seeded := seedInvoice(repo, "646.60", enums.InvoiceStatusPending, testNow)

	paid, err := svc.RecordPayment(context.Background(), seeded.ID, PaymentInput{
		Amount:    money("646.60"),
		Method:    enums.PaymentMethodPix,
		Reference: "E2E-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Status != enums.InvoiceStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(testNow) {
		t.Fatalf("expected paid_at %s, got %v", testNow, paid.PaidAt)
	}
	if paid.PaymentMethod == nil || *paid.PaymentMethod != enums.PaymentMethodPix {
		t.Fatalf("expected pix payment method, got %v", paid.PaymentMethod)
	}
	if paid.PaymentReference == nil || *paid.PaymentReference != "E2E-123" {
		t.Fatalf("expected payment reference, got %v", paid.PaymentReference)
	}
}

func TestRecordPaymentAmountMismatch(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)
	seeded := seedInvoice(repo, "646.60", enums.InvoiceStatusPending, testNow)

	for _, amount := range []string{"646.59", "646.61", "0", "1000.00"} {
		_, err := svc.RecordPayment(context.Background(), seeded.ID, PaymentInput{
			Amount: money(amount),
			Method: enums.PaymentMethodBoleto,
		})
		if !pkgerrors.HasCode(err, pkgerrors.CodeAmountMismatch) {
			t.Fatalf("amount %s: expected AMOUNT_MISMATCH, got %v", amount, err)
		}
	}

	stored, err := svc.Get(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != enums.InvoiceStatusPending {
		t.Fatalf("rejected payments must not change status, got %s", stored.Status)
	}
}

func TestRecordPaymentOnOverdueInvoice(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)
	seeded := seedInvoice(repo, "199.90", enums.InvoiceStatusOverdue, testNow.AddDate(0, -2, 0))

	paid, err := svc.RecordPayment(context.Background(), seeded.ID, PaymentInput{
		Amount: money("199.90"),
		Method: enums.PaymentMethodTransfer,
	})
	if err != nil {
		t.Fatalf("overdue invoices must accept payment, got %v", err)
	}
	if paid.Status != enums.InvoiceStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
}

func TestRecordPaymentTwiceFails(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)
	seeded := seedInvoice(repo, "199.90", enums.InvoiceStatusPending, testNow)

	input := PaymentInput{Amount: money("199.90"), Method: enums.PaymentMethodPix}
	if _, err := svc.RecordPayment(context.Background(), seeded.ID, input); err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	_, err := svc.RecordPayment(context.Background(), seeded.ID, input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION on second payment, got %v", err)
	}
}

func TestRecordPaymentUnknownMethod(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)
	seeded := seedInvoice(repo, "199.90", enums.InvoiceStatusPending, testNow)

	_, err := svc.RecordPayment(context.Background(), seeded.ID, PaymentInput{
		Amount: money("199.90"),
		Method: enums.PaymentMethod("cash"),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestGetDerivesOverdueBeyondGracePeriod(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	// Period started 11 days ago against a 10-day grace period: reads as
	// overdue even though the sweep has not persisted it yet.
	late := seedInvoice(repo, "100.00", enums.InvoiceStatusPending, testNow.Add(-11*24*time.Hour))
	fresh := seedInvoice(repo, "100.00", enums.InvoiceStatusPending, testNow.Add(-24*time.Hour))

	got, err := svc.Get(context.Background(), late.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != enums.InvoiceStatusOverdue {
		t.Fatalf("expected derived overdue, got %s", got.Status)
	}
	if repo.invoices[late.ID].Status != enums.InvoiceStatusPending {
		t.Fatal("reads must not persist the overdue flip")
	}

	got, err = svc.Get(context.Background(), fresh.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != enums.InvoiceStatusPending {
		t.Fatalf("invoice inside grace period must stay pending, got %s", got.Status)
	}
}

func TestSweepOverdueIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	seedInvoice(repo, "100.00", enums.InvoiceStatusPending, testNow.Add(-11*24*time.Hour))
	seedInvoice(repo, "100.00", enums.InvoiceStatusPending, testNow.Add(-12*24*time.Hour))
	seedInvoice(repo, "100.00", enums.InvoiceStatusPending, testNow.Add(-24*time.Hour))

	flipped, err := svc.SweepOverdue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flipped != 2 {
		t.Fatalf("expected 2 invoices flipped, got %d", flipped)
	}

	flipped, err = svc.SweepOverdue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flipped != 0 {
		t.Fatalf("second sweep must be a no-op, got %d", flipped)
	}
}

func TestListFiltersByProposal(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	target := seedInvoice(repo, "100.00", enums.InvoiceStatusPending, testNow)
	seedInvoice(repo, "200.00", enums.InvoiceStatusPending, testNow)

	page, err := svc.List(context.Background(), nil, &target.ProposalID, pagination.Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Invoices) != 1 || page.Invoices[0].ID != target.ID {
		t.Fatalf("expected only the target proposal's invoice, got %+v", page.Invoices)
	}
}
