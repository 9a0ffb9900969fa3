package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/convexa-app/backoffice-backend/pkg/db/models"
)

var oneHundred = decimal.NewFromInt(100)

// CouponDiscount is the resolved discount input for a breakdown. The
// commission percentage is deliberately absent: commission is payout
// accounting and never affects the client-facing total.
type CouponDiscount struct {
	Code        string
	AffiliateID uuid.UUID
	DiscountPct decimal.Decimal
}

// Breakdown is the priced result for a plan plus addons plus an optional
// coupon. Identical inputs always produce an identical breakdown.
type Breakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	AddonTotal     decimal.Decimal `json:"addon_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Clamped        bool            `json:"clamped"`
}

// ComputeTotal prices a plan with the selected addons and an optional
// resolved coupon. The discount applies to the plan subtotal only; addons are
// additive line items and are never discounted. The grand total is clamped at
// zero and the clamp is flagged so callers can disclose it.
func ComputeTotal(plan models.Plan, addons []models.Addon, coupon *CouponDiscount) Breakdown {
	subtotal := round2(plan.BasePrice)

	addonTotal := decimal.Zero
	for _, addon := range addons {
		addonTotal = addonTotal.Add(round2(addon.UnitPrice))
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = round2(subtotal.Mul(coupon.DiscountPct).Div(oneHundred))
	}

	grand := subtotal.Add(addonTotal).Sub(discount)
	clamped := false
	if grand.IsNegative() {
		grand = decimal.Zero
		clamped = true
	}

	return Breakdown{
		Subtotal:       subtotal,
		AddonTotal:     round2(addonTotal),
		DiscountAmount: discount,
		GrandTotal:     round2(grand),
		Clamped:        clamped,
	}
}

// round2 rounds to two decimal places, half up. decimal.Round rounds half
// away from zero, which matches half-up for the non-negative money handled
// here.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
