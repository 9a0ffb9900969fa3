package proposals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	"github.com/convexa-app/backoffice-backend/pkg/pagination"
)

// ListFilter narrows and pages a proposal listing.
type ListFilter struct {
	Status *enums.ProposalStatus
	Cursor *pagination.Cursor
	Limit  int
}

// Repository handles proposal persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, proposal *models.Proposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	List(ctx context.Context, filter ListFilter) ([]models.Proposal, error)
	// TransitionStatus conditionally moves a proposal from one status to
	// another and reports whether a row actually changed. A false return with
	// a nil error means the proposal was not in the expected status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.ProposalStatus, closedAt time.Time) (bool, error)
	// DeleteIfStatus removes a proposal only while it is in the given status.
	DeleteIfStatus(ctx context.Context, id uuid.UUID, status enums.ProposalStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a proposal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, proposal *models.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var proposal models.Proposal
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&proposal).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Proposal, error) {
	query := r.db.WithContext(ctx).Model(&models.Proposal{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}

	var proposals []models.Proposal
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.ProposalStatus, closedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":    to,
			"closed_at": closedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) DeleteIfStatus(ctx context.Context, id uuid.UUID, status enums.ProposalStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		Delete(&models.Proposal{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
