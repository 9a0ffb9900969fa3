package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Affiliate owns a coupon code granting clients a discount and crediting the
// affiliate a commission. The coupon code is generated with advisory
// uniqueness only; the unique index is the authority and callers retry on
// conflict.
type Affiliate struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name  string    `gorm:"column:name;not null" json:"name"`
	Email string    `gorm:"column:email;not null" json:"email"`
	Phone string    `gorm:"column:phone" json:"phone"`

	CouponCode    string          `gorm:"column:coupon_code;not null;uniqueIndex" json:"coupon_code"`
	DiscountPct   decimal.Decimal `gorm:"column:discount_pct;type:numeric(5,2);not null" json:"discount_pct"`
	CommissionPct decimal.Decimal `gorm:"column:commission_pct;type:numeric(5,2);not null" json:"commission_pct"`
	ExpiresAt     time.Time       `gorm:"column:expires_at;not null" json:"expires_at"`

	Active    bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
