package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	"github.com/convexa-app/backoffice-backend/pkg/pagination"
)

// ListFilter narrows and pages an invoice listing.
type ListFilter struct {
	Status     *enums.InvoiceStatus
	ProposalID *uuid.UUID
	Cursor     *pagination.Cursor
	Limit      int
}

// PaymentRecord carries the fields persisted when an invoice is settled.
type PaymentRecord struct {
	PaidAt    time.Time
	Method    enums.PaymentMethod
	Reference string
}

// Repository handles invoice persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]models.Invoice, error)
	All(ctx context.Context) ([]models.Invoice, error)
	// MarkPaid settles an invoice only while it is still payable and reports
	// whether a row actually changed.
	MarkPaid(ctx context.Context, id uuid.UUID, payment PaymentRecord) (bool, error)
	// MarkOverdueBefore flips every pending invoice whose due date passed
	// before the cutoff. Returns how many rows changed; re-running is a no-op.
	MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoice repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ProposalID != nil {
		query = query.Where("proposal_id = ?", *filter.ProposalID)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}

	var invoices []models.Invoice
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) All(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Order("period_start ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, payment PaymentRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status IN ?", id, []enums.InvoiceStatus{
			enums.InvoiceStatusPending,
			enums.InvoiceStatusOverdue,
		}).
		Updates(map[string]any{
			"status":            enums.InvoiceStatusPaid,
			"paid_at":           payment.PaidAt,
			"payment_method":    payment.Method,
			"payment_reference": payment.Reference,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("status = ? AND period_start < ?", enums.InvoiceStatusPending, cutoff).
		Update("status", enums.InvoiceStatusOverdue)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
