package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/convexa-app/backoffice-backend/api/responses"
	"github.com/convexa-app/backoffice-backend/api/validators"
	"github.com/convexa-app/backoffice-backend/internal/invoices"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
	"github.com/convexa-app/backoffice-backend/pkg/pagination"
)

// InvoiceService is the slice of the invoice lifecycle the HTTP layer needs.
type InvoiceService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, status *enums.InvoiceStatus, proposalID *uuid.UUID, params pagination.Params) (*invoices.Page, error)
	RecordPayment(ctx context.Context, id uuid.UUID, input invoices.PaymentInput) (*models.Invoice, error)
}

// GetInvoice returns one invoice by id, with derived overdue status applied.
func GetInvoice(svc InvoiceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		id, err := parsePathID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}

// ListInvoices pages through invoices with optional status and proposal
// filters.
func ListInvoices(svc InvoiceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		var status *enums.InvoiceStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseInvoiceStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		var proposalID *uuid.UUID
		if raw := strings.TrimSpace(r.URL.Query().Get("proposal_id")); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid proposal_id filter"))
				return
			}
			proposalID = &parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), status, proposalID, pagination.Params{
			Cursor: r.URL.Query().Get("cursor"),
			Limit:  limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// RecordInvoicePayment settles a payable invoice with an exact-amount payment.
func RecordInvoicePayment(svc InvoiceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		id, err := parsePathID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoices.PaymentInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.RecordPayment(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}
