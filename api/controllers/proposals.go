package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/convexa-app/backoffice-backend/api/responses"
	"github.com/convexa-app/backoffice-backend/api/validators"
	"github.com/convexa-app/backoffice-backend/internal/proposals"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
	"github.com/convexa-app/backoffice-backend/pkg/pagination"
)

// ProposalService is the slice of the proposal lifecycle the HTTP layer needs.
type ProposalService interface {
	Create(ctx context.Context, input proposals.CreateProposalInput) (*models.Proposal, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	List(ctx context.Context, status *enums.ProposalStatus, params pagination.Params) (*proposals.Page, error)
	Accept(ctx context.Context, id uuid.UUID) (*models.Proposal, *models.Invoice, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateProposal drafts a proposal with a frozen pricing snapshot.
func CreateProposal(svc ProposalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "proposal service unavailable"))
			return
		}

		var payload proposals.CreateProposalInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposal, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, proposal)
	}
}

// GetProposal returns one proposal by id.
func GetProposal(svc ProposalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "proposal service unavailable"))
			return
		}

		id, err := parsePathID(r, "proposalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposal, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, proposal)
	}
}

// ListProposals pages through proposals newest first, optionally filtered by
// status.
func ListProposals(svc ProposalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "proposal service unavailable"))
			return
		}

		var status *enums.ProposalStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseProposalStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), status, pagination.Params{
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

// AcceptProposal closes a pending proposal as accepted and issues the first
// invoice in the same transaction.
func AcceptProposal(svc ProposalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "proposal service unavailable"))
			return
		}

		id, err := parsePathID(r, "proposalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposal, invoice, err := svc.Accept(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"proposal": proposal,
			"invoice":  invoice,
		})
	}
}

// RejectProposal closes a pending proposal as rejected.
func RejectProposal(svc ProposalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "proposal service unavailable"))
			return
		}

		id, err := parsePathID(r, "proposalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposal, err := svc.Reject(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, proposal)
	}
}

// DeleteProposal discards a proposal that is still pending.
func DeleteProposal(svc ProposalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "proposal service unavailable"))
			return
		}

		id, err := parsePathID(r, "proposalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
