package proposals

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convexa-app/backoffice-backend/internal/pricing"
	"github.com/convexa-app/backoffice-backend/pkg/db"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	dbtypes "github.com/convexa-app/backoffice-backend/pkg/db/types"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
	"github.com/convexa-app/backoffice-backend/pkg/pagination"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// PlanCatalog is the catalog surface the proposal flow needs.
type PlanCatalog interface {
	GetActivePlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ResolveAddons(ctx context.Context, ids []uuid.UUID) ([]models.Addon, error)
}

// CouponResolver validates coupon codes into discounts.
type CouponResolver interface {
	ResolveCoupon(ctx context.Context, code string) (*pricing.CouponDiscount, error)
}

// InvoiceIssuer creates the first invoice when a proposal is accepted. It runs
// inside the acceptance transaction.
type InvoiceIssuer interface {
	IssueFirstInvoice(ctx context.Context, tx *gorm.DB, proposal *models.Proposal) (*models.Invoice, error)
}

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the proposal service.
type ServiceParams struct {
	Repo     Repository
	Catalog  PlanCatalog
	Coupons  CouponResolver
	Invoices InvoiceIssuer
	Tx       TxRunner
	Retry    db.RetryPolicy
	Logger   *logger.Logger
	Now      func() time.Time
}

// Service owns the proposal lifecycle: creation with a frozen pricing
// snapshot, acceptance, rejection and deletion.
type Service struct {
	repo     Repository
	catalog  PlanCatalog
	coupons  CouponResolver
	invoices InvoiceIssuer
	tx       TxRunner
	retry    db.RetryPolicy
	log      *logger.Logger
	now      func() time.Time
}

// NewService builds a proposal service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if params.Coupons == nil {
		return nil, errors.New("coupon resolver is required")
	}
	if params.Invoices == nil {
		return nil, errors.New("invoice issuer is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		repo:     params.Repo,
		catalog:  params.Catalog,
		coupons:  params.Coupons,
		invoices: params.Invoices,
		tx:       params.Tx,
		retry:    db.EnsureRetryPolicy(params.Retry),
		log:      params.Logger,
		now:      params.Now,
	}, nil
}

// CreateProposalInput carries everything a new proposal needs. The pricing
// snapshot is computed here, never supplied by the caller.
type CreateProposalInput struct {
	PlanID   uuid.UUID   `json:"plan_id"`
	AddonIDs []uuid.UUID `json:"addon_ids"`
	Coupon   string      `json:"coupon"`

	CompanyName      string `json:"company_name"`
	CompanyTaxID     string `json:"company_tax_id"`
	ResponsibleName  string `json:"responsible_name"`
	ResponsibleEmail string `json:"responsible_email"`
	ResponsiblePhone string `json:"responsible_phone"`
}

// Create validates the input, freezes the pricing snapshot and persists the
// proposal in pending status. Every field violation is reported at once, not
// just the first one.
func (s *Service) Create(ctx context.Context, input CreateProposalInput) (*models.Proposal, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	plan, err := s.catalog.GetActivePlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	addons, err := s.catalog.ResolveAddons(ctx, input.AddonIDs)
	if err != nil {
		return nil, err
	}

	var coupon *pricing.CouponDiscount
	if code := strings.TrimSpace(input.Coupon); code != "" {
		coupon, err = s.coupons.ResolveCoupon(ctx, code)
		if err != nil {
			return nil, err
		}
	}

	breakdown := pricing.ComputeTotal(*plan, addons, coupon)

	proposal := &models.Proposal{
		PlanID:   plan.ID,
		AddonIDs: dbtypes.UUIDArray(input.AddonIDs),

		CompanyName:      strings.TrimSpace(input.CompanyName),
		CompanyTaxID:     strings.TrimSpace(input.CompanyTaxID),
		ResponsibleName:  strings.TrimSpace(input.ResponsibleName),
		ResponsibleEmail: strings.TrimSpace(input.ResponsibleEmail),
		ResponsiblePhone: strings.TrimSpace(input.ResponsiblePhone),

		Subtotal:       breakdown.Subtotal,
		AddonTotal:     breakdown.AddonTotal,
		DiscountAmount: breakdown.DiscountAmount,
		GrandTotal:     breakdown.GrandTotal,
		TotalClamped:   breakdown.Clamped,

		Status: enums.ProposalStatusPending,
	}
	if coupon != nil {
		code := coupon.Code
		affiliateID := coupon.AffiliateID
		proposal.CouponCode = &code
		proposal.AffiliateID = &affiliateID
	}

	err = s.retry.Do(ctx, "proposals.create", func(ctx context.Context) error {
		return s.repo.Create(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	createdCtx := s.log.WithProposalID(ctx, proposal.ID.String())
	s.log.Info(createdCtx, "proposal created")
	return proposal, nil
}

// Get loads a proposal by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal *models.Proposal
	err := s.retry.Do(ctx, "proposals.find", func(ctx context.Context) error {
		var opErr error
		proposal, opErr = s.repo.FindByID(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "proposal not found").
			WithDetails(map[string]any{"proposal_id": id})
	}
	return proposal, nil
}

// Page is one page of proposals plus the cursor for the next one.
type Page struct {
	Proposals  []models.Proposal `json:"proposals"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// List pages through proposals, newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *enums.ProposalStatus, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	var proposals []models.Proposal
	err = s.retry.Do(ctx, "proposals.list", func(ctx context.Context) error {
		var opErr error
		proposals, opErr = s.repo.List(ctx, ListFilter{
			Status: status,
			Cursor: cursor,
			Limit:  limit,
		})
		return opErr
	})
	if err != nil {
		return nil, err
	}

	page := &Page{Proposals: proposals}
	if len(proposals) > limit {
		page.Proposals = proposals[:limit]
		last := page.Proposals[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// Accept moves a pending proposal to accepted and issues its first invoice in
// the same transaction. A proposal already closed, by this request or a
// concurrent one, fails the transition.
func (s *Service) Accept(ctx context.Context, id uuid.UUID) (*models.Proposal, *models.Invoice, error) {
	proposal, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if proposal.Status != enums.ProposalStatusPending {
		return nil, nil, transitionError(proposal.Status, enums.ProposalStatusAccepted)
	}

	closedAt := s.now()
	var invoice *models.Invoice
	err = s.retry.Do(ctx, "proposals.accept", func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			moved, txErr := s.repo.WithTx(tx).TransitionStatus(
				ctx, id,
				enums.ProposalStatusPending, enums.ProposalStatusAccepted,
				closedAt,
			)
			if txErr != nil {
				return txErr
			}
			if !moved {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "proposal closed concurrently").
					WithDetails(map[string]any{"proposal_id": id})
			}

			invoice, txErr = s.invoices.IssueFirstInvoice(ctx, tx, proposal)
			return txErr
		})
	})
	if err != nil {
		return nil, nil, err
	}

	proposal.Status = enums.ProposalStatusAccepted
	proposal.ClosedAt = &closedAt

	acceptedCtx := s.log.WithFields(ctx, map[string]any{
		"proposal_id": proposal.ID.String(),
		"invoice_id":  invoice.ID.String(),
	})
	s.log.Info(acceptedCtx, "proposal accepted, first invoice issued")
	return proposal, invoice, nil
}

// Reject moves a pending proposal to rejected. No invoice is ever issued.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if proposal.Status != enums.ProposalStatusPending {
		return nil, transitionError(proposal.Status, enums.ProposalStatusRejected)
	}

	closedAt := s.now()
	err = s.retry.Do(ctx, "proposals.reject", func(ctx context.Context) error {
		moved, opErr := s.repo.TransitionStatus(
			ctx, id,
			enums.ProposalStatusPending, enums.ProposalStatusRejected,
			closedAt,
		)
		if opErr != nil {
			return opErr
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "proposal closed concurrently").
				WithDetails(map[string]any{"proposal_id": id})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	proposal.Status = enums.ProposalStatusRejected
	proposal.ClosedAt = &closedAt

	rejectedCtx := s.log.WithProposalID(ctx, proposal.ID.String())
	s.log.Info(rejectedCtx, "proposal rejected")
	return proposal, nil
}

// Delete removes a proposal that is still pending. Closed proposals are part
// of the financial record and cannot be deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	proposal, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if proposal.Status != enums.ProposalStatusPending {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only pending proposals can be deleted").
			WithDetails(map[string]any{"status": proposal.Status.String()})
	}

	return s.retry.Do(ctx, "proposals.delete", func(ctx context.Context) error {
		deleted, opErr := s.repo.DeleteIfStatus(ctx, id, enums.ProposalStatusPending)
		if opErr != nil {
			return opErr
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "proposal closed concurrently").
				WithDetails(map[string]any{"proposal_id": id})
		}
		return nil
	})
}

func transitionError(from, to enums.ProposalStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "proposal status is terminal").
		WithDetails(map[string]any{
			"from": from.String(),
			"to":   to.String(),
		})
}

func validateCreate(input CreateProposalInput) error {
	violations := map[string]string{}
	if input.PlanID == uuid.Nil {
		violations["plan_id"] = "plan id is required"
	}
	if strings.TrimSpace(input.CompanyName) == "" {
		violations["company_name"] = "company name is required"
	}
	if strings.TrimSpace(input.CompanyTaxID) == "" {
		violations["company_tax_id"] = "company tax id is required"
	}
	if strings.TrimSpace(input.ResponsibleName) == "" {
		violations["responsible_name"] = "responsible name is required"
	}
	email := strings.TrimSpace(input.ResponsibleEmail)
	if email == "" {
		violations["responsible_email"] = "responsible email is required"
	} else if !emailPattern.MatchString(email) {
		violations["responsible_email"] = "responsible email is malformed"
	}
	if len(violations) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "proposal input is invalid").
			WithDetails(violations)
	}
	return nil
}
