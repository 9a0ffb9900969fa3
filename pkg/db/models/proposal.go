package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/convexa-app/backoffice-backend/pkg/db/types"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
)

// Proposal is a priced offer composed of a plan, addons and an optional
// coupon. The pricing snapshot is frozen at creation time: later plan or
// addon price changes never alter it, and it is never recomputed in place.
type Proposal struct {
	ID       uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlanID   uuid.UUID         `gorm:"column:plan_id;type:uuid;not null;index" json:"plan_id"`
	AddonIDs dbtypes.UUIDArray `gorm:"column:addon_ids;type:uuid[]" json:"addon_ids"`

	CouponCode  *string    `gorm:"column:coupon_code" json:"coupon_code,omitempty"`
	AffiliateID *uuid.UUID `gorm:"column:affiliate_id;type:uuid" json:"affiliate_id,omitempty"`

	CompanyName      string `gorm:"column:company_name;not null" json:"company_name"`
	CompanyTaxID     string `gorm:"column:company_tax_id;not null" json:"company_tax_id"`
	ResponsibleName  string `gorm:"column:responsible_name;not null" json:"responsible_name"`
	ResponsibleEmail string `gorm:"column:responsible_email;not null" json:"responsible_email"`
	ResponsiblePhone string `gorm:"column:responsible_phone" json:"responsible_phone"`

	// Frozen pricing snapshot.
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	AddonTotal     decimal.Decimal `gorm:"column:addon_total;type:numeric(12,2);not null" json:"addon_total"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null" json:"discount_amount"`
	GrandTotal     decimal.Decimal `gorm:"column:grand_total;type:numeric(12,2);not null" json:"grand_total"`
	TotalClamped   bool            `gorm:"column:total_clamped;not null;default:false" json:"total_clamped"`

	Status    enums.ProposalStatus `gorm:"column:status;type:proposal_status;not null;default:'pending'" json:"status"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	ClosedAt  *time.Time           `gorm:"column:closed_at" json:"closed_at,omitempty"`
}
