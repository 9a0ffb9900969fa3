package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/convexa-app/backoffice-backend/pkg/enums"
)

// Invoice is a billing-period obligation derived from an accepted proposal.
// It persists independently of the proposal so proposal mutation never
// changes historical invoices.
type Invoice struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProposalID uuid.UUID `gorm:"column:proposal_id;type:uuid;not null;index" json:"proposal_id"`

	BilledAmount decimal.Decimal     `gorm:"column:billed_amount;type:numeric(12,2);not null" json:"billed_amount"`
	Status       enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'pending'" json:"status"`

	PeriodStart time.Time  `gorm:"column:period_start;not null" json:"period_start"`
	PeriodEnd   *time.Time `gorm:"column:period_end" json:"period_end,omitempty"`

	PaidAt           *time.Time           `gorm:"column:paid_at" json:"paid_at,omitempty"`
	PaymentMethod    *enums.PaymentMethod `gorm:"column:payment_method;type:payment_method" json:"payment_method,omitempty"`
	PaymentReference *string              `gorm:"column:payment_reference" json:"payment_reference,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// DueAt derives the implicit due date from the configured grace period.
func (i Invoice) DueAt(gracePeriod time.Duration) time.Time {
	return i.PeriodStart.Add(gracePeriod)
}
