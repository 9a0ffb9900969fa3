package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/convexa-app/backoffice-backend/internal/proposals"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/pagination"
)

type stubProposalService struct {
	proposal *models.Proposal
	invoice  *models.Invoice
	page     *proposals.Page
	err      error

	created   *proposals.CreateProposalInput
	gotStatus *enums.ProposalStatus
	gotParams pagination.Params
	deleted   []uuid.UUID
}

func (s *stubProposalService) Create(_ context.Context, input proposals.CreateProposalInput) (*models.Proposal, error) {
	s.created = &input
	return s.proposal, s.err
}

func (s *stubProposalService) Get(context.Context, uuid.UUID) (*models.Proposal, error) {
	return s.proposal, s.err
}

func (s *stubProposalService) List(_ context.Context, status *enums.ProposalStatus, params pagination.Params) (*proposals.Page, error) {
	s.gotStatus = status
	s.gotParams = params
	return s.page, s.err
}

func (s *stubProposalService) Accept(context.Context, uuid.UUID) (*models.Proposal, *models.Invoice, error) {
	return s.proposal, s.invoice, s.err
}

func (s *stubProposalService) Reject(context.Context, uuid.UUID) (*models.Proposal, error) {
	return s.proposal, s.err
}

func (s *stubProposalService) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func TestCreateProposalSuccess(t *testing.T) {
	planID := uuid.New()
	svc := &stubProposalService{proposal: &models.Proposal{
		ID:         uuid.New(),
		PlanID:     planID,
		Status:     enums.ProposalStatusPending,
		GrandTotal: decimal.RequireFromString("646.60"),
	}}
	handler := CreateProposal(svc, nil)

	payload := []byte(`{
		"plan_id": "` + planID.String() + `",
		"addon_ids": [],
		"coupon": "",
		"company_name": "Acme SA",
		"company_tax_id": "ACM010203XYZ",
		"responsible_name": "Ana Gomez",
		"responsible_email": "ana@acme.com",
		"responsible_phone": "+5215587654321"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.created == nil {
		t.Fatal("expected service call")
	}
	if svc.created.PlanID != planID {
		t.Fatalf("expected plan id forwarded, got %s", svc.created.PlanID)
	}

	var envelope struct {
		Data models.Proposal `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.ProposalStatusPending {
		t.Fatalf("expected pending status got %s", envelope.Data.Status)
	}
}

func TestCreateProposalUnknownCoupon(t *testing.T) {
	svc := &stubProposalService{err: pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon code is unknown")}
	handler := CreateProposal(svc, nil)

	payload := []byte(`{
		"plan_id": "` + uuid.NewString() + `",
		"coupon": "CVX-NOPE-123",
		"company_name": "Acme SA",
		"company_tax_id": "ACM010203XYZ",
		"responsible_name": "Ana Gomez",
		"responsible_email": "ana@acme.com"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestListProposalsForwardsFilter(t *testing.T) {
	svc := &stubProposalService{page: &proposals.Page{Proposals: []models.Proposal{{ID: uuid.New()}}}}
	handler := ListProposals(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/proposals?status=pending&limit=10&cursor=abc", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotStatus == nil || *svc.gotStatus != enums.ProposalStatusPending {
		t.Fatal("expected pending status filter forwarded")
	}
	if svc.gotParams.Limit != 10 || svc.gotParams.Cursor != "abc" {
		t.Fatalf("unexpected pagination params %+v", svc.gotParams)
	}
}

func TestListProposalsRejectsUnknownStatus(t *testing.T) {
	handler := ListProposals(&stubProposalService{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/proposals?status=archived", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAcceptProposalReturnsInvoice(t *testing.T) {
	proposalID := uuid.New()
	svc := &stubProposalService{
		proposal: &models.Proposal{ID: proposalID, Status: enums.ProposalStatusAccepted},
		invoice:  &models.Invoice{ID: uuid.New(), ProposalID: proposalID, BilledAmount: decimal.RequireFromString("646.60")},
	}
	router := chi.NewRouter()
	router.Post("/api/v1/proposals/{proposalId}/accept", AcceptProposal(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/"+proposalID.String()+"/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data struct {
			Proposal models.Proposal `json:"proposal"`
			Invoice  models.Invoice  `json:"invoice"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Invoice.ProposalID != proposalID {
		t.Fatal("expected issued invoice in response")
	}
}

func TestAcceptClosedProposal(t *testing.T) {
	svc := &stubProposalService{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "proposal is already closed")}
	router := chi.NewRouter()
	router.Post("/api/v1/proposals/{proposalId}/accept", AcceptProposal(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/"+uuid.NewString()+"/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestDeleteProposalSuccess(t *testing.T) {
	proposalID := uuid.New()
	svc := &stubProposalService{}
	router := chi.NewRouter()
	router.Delete("/api/v1/proposals/{proposalId}", DeleteProposal(svc, nil))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/proposals/"+proposalID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != proposalID {
		t.Fatal("expected delete forwarded to service")
	}
}
