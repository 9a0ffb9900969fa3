package affiliates

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/convexa-app/backoffice-backend/internal/pricing"
	"github.com/convexa-app/backoffice-backend/pkg/config"
	"github.com/convexa-app/backoffice-backend/pkg/db"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
)

var oneHundred = decimal.NewFromInt(100)

// ServiceParams groups dependencies for the affiliate service.
type ServiceParams struct {
	Repo    Repository
	Billing config.BillingConfig
	Retry   db.RetryPolicy
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service manages affiliates and resolves their coupon codes.
type Service struct {
	repo    Repository
	billing config.BillingConfig
	retry   db.RetryPolicy
	log     *logger.Logger
	now     func() time.Time
}

// NewService builds an affiliate service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Billing.CouponPrefix == "" {
		params.Billing.CouponPrefix = "CVX"
	}
	if params.Billing.CouponMaxRetries <= 0 {
		params.Billing.CouponMaxRetries = 3
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

// CreateAffiliateInput carries the fields a new affiliate needs. The coupon
// code is generated, never supplied.
type CreateAffiliateInput struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	DiscountPct   decimal.Decimal `json:"discount_pct"`
	CommissionPct decimal.Decimal `json:"commission_pct"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// Create registers an affiliate with a freshly generated coupon code,
// regenerating on a unique-index conflict up to the configured retry budget.
func (s *Service) Create(ctx context.Context, input CreateAffiliateInput) (*models.Affiliate, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.billing.CouponMaxRetries; attempt++ {
		code, err := GenerateCouponCode(s.billing.CouponPrefix, s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate coupon code")
		}

		affiliate := &models.Affiliate{
			Name:          strings.TrimSpace(input.Name),
			Email:         strings.TrimSpace(input.Email),
			Phone:         strings.TrimSpace(input.Phone),
			CouponCode:    code,
			DiscountPct:   input.DiscountPct.Round(2),
			CommissionPct: input.CommissionPct.Round(2),
			ExpiresAt:     input.ExpiresAt,
			Active:        true,
		}
		err = s.retry.Do(ctx, "affiliates.create", func(ctx context.Context) error {
			return s.repo.Create(ctx, affiliate)
		})
		if err == nil {
			return affiliate, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, err
		}
		lastErr = err
		attemptCtx := s.log.WithFields(ctx, map[string]any{
			"coupon_code": code,
			"attempt":     attempt + 1,
		})
		s.log.Warn(attemptCtx, "coupon code collision, regenerating")
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "coupon code generation exhausted retries")
}

// ResolveCoupon validates a coupon code against its affiliate and returns the
// discount to apply. Unknown or deactivated codes are invalid; a code is
// expired from the start of its expiration day onward.
func (s *Service) ResolveCoupon(ctx context.Context, code string) (*pricing.CouponDiscount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon code is empty")
	}

	var affiliate *models.Affiliate
	err := s.retry.Do(ctx, "affiliates.find_by_coupon", func(ctx context.Context) error {
		var opErr error
		affiliate, opErr = s.repo.FindByCouponCode(ctx, code)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if affiliate == nil || !affiliate.Active {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon code is not recognized").
			WithDetails(map[string]any{"coupon_code": code})
	}
	if couponExpired(affiliate.ExpiresAt, s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeExpiredCoupon, "coupon code has expired").
			WithDetails(map[string]any{
				"coupon_code": code,
				"expired_at":  affiliate.ExpiresAt.Format(time.DateOnly),
			})
	}

	return &pricing.CouponDiscount{
		Code:        affiliate.CouponCode,
		AffiliateID: affiliate.ID,
		DiscountPct: affiliate.DiscountPct,
	}, nil
}

// Get loads an affiliate by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	var affiliate *models.Affiliate
	err := s.retry.Do(ctx, "affiliates.find", func(ctx context.Context) error {
		var opErr error
		affiliate, opErr = s.repo.FindByID(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "affiliate not found").
			WithDetails(map[string]any{"affiliate_id": id})
	}
	return affiliate, nil
}

// List pages through affiliates, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Affiliate, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var (
		affiliates []models.Affiliate
		total      int64
	)
	err := s.retry.Do(ctx, "affiliates.list", func(ctx context.Context) error {
		var opErr error
		affiliates, total, opErr = s.repo.List(ctx, limit, offset)
		return opErr
	})
	if err != nil {
		return nil, 0, err
	}
	return affiliates, total, nil
}

// SetActive flips an affiliate's coupon availability. Deactivation only stops
// new proposals from using the code; accepted proposals keep their snapshot.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Affiliate, error) {
	affiliate, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	affiliate.Active = active
	err = s.retry.Do(ctx, "affiliates.update", func(ctx context.Context) error {
		return s.repo.Update(ctx, affiliate)
	})
	if err != nil {
		return nil, err
	}
	return affiliate, nil
}

func (s *Service) validateCreate(input CreateAffiliateInput) error {
	violations := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		violations["name"] = "name is required"
	}
	if strings.TrimSpace(input.Email) == "" {
		violations["email"] = "email is required"
	}
	if input.DiscountPct.IsNegative() || input.DiscountPct.GreaterThan(oneHundred) {
		violations["discount_pct"] = "discount percentage must be between 0 and 100"
	}
	if input.CommissionPct.IsNegative() || input.CommissionPct.GreaterThan(oneHundred) {
		violations["commission_pct"] = "commission percentage must be between 0 and 100"
	}
	// The expiration day itself already counts as expired, so the date must be
	// strictly after today for the coupon to ever be usable.
	if couponExpired(input.ExpiresAt, s.now()) {
		violations["expires_at"] = "expiration date must be in the future"
	}
	if len(violations) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "affiliate input is invalid").
			WithDetails(violations)
	}
	return nil
}

// couponExpired compares calendar days in UTC: the coupon stops working at the
// start of its expiration day.
func couponExpired(expiresAt, now time.Time) bool {
	expDay := expiresAt.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)
	return !today.Before(expDay)
}
