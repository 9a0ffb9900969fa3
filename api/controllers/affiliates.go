package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/convexa-app/backoffice-backend/api/responses"
	"github.com/convexa-app/backoffice-backend/api/validators"
	"github.com/convexa-app/backoffice-backend/internal/affiliates"
	"github.com/convexa-app/backoffice-backend/internal/pricing"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
)

// AffiliateService is the slice of affiliate management the HTTP layer needs.
type AffiliateService interface {
	Create(ctx context.Context, input affiliates.CreateAffiliateInput) (*models.Affiliate, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Affiliate, error)
	List(ctx context.Context, limit, offset int) ([]models.Affiliate, int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Affiliate, error)
	ResolveCoupon(ctx context.Context, code string) (*pricing.CouponDiscount, error)
}

// CreateAffiliate registers an affiliate and generates their coupon code.
func CreateAffiliate(svc AffiliateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliate service unavailable"))
			return
		}

		var payload affiliates.CreateAffiliateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		affiliate, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, affiliate)
	}
}

// GetAffiliate returns one affiliate by id.
func GetAffiliate(svc AffiliateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliate service unavailable"))
			return
		}

		id, err := parsePathID(r, "affiliateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		affiliate, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, affiliate)
	}
}

// ListAffiliates pages through affiliates with limit/offset semantics.
func ListAffiliates(svc AffiliateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliate service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, total, err := svc.List(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"affiliates": list,
			"total":      total,
		})
	}
}

// SetAffiliateActive toggles an affiliate, which also disables their coupon.
func SetAffiliateActive(svc AffiliateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliate service unavailable"))
			return
		}

		id, err := parsePathID(r, "affiliateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		affiliate, err := svc.SetActive(r.Context(), id, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, affiliate)
	}
}

// ValidateCoupon resolves a coupon code to its discount without creating
// anything; useful for live validation while drafting a proposal.
func ValidateCoupon(svc AffiliateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliate service unavailable"))
			return
		}

		code := validators.SanitizeString(chi.URLParam(r, "code"), 64)
		discount, err := svc.ResolveCoupon(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, discount)
	}
}
