package affiliates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convexa-app/backoffice-backend/pkg/db/models"
)

// Repository handles affiliate persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, affiliate *models.Affiliate) error
	Update(ctx context.Context, affiliate *models.Affiliate) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error)
	FindByCouponCode(ctx context.Context, code string) (*models.Affiliate, error)
	List(ctx context.Context, limit, offset int) ([]models.Affiliate, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an affiliate repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, affiliate *models.Affiliate) error {
	return r.db.WithContext(ctx).Create(affiliate).Error
}

func (r *repository) Update(ctx context.Context, affiliate *models.Affiliate) error {
	return r.db.WithContext(ctx).Save(affiliate).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&affiliate).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

func (r *repository) FindByCouponCode(ctx context.Context, code string) (*models.Affiliate, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.WithContext(ctx).
		Where("coupon_code = ?", code).
		First(&affiliate).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]models.Affiliate, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Affiliate{}).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var affiliates []models.Affiliate
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&affiliates).Error; err != nil {
		return nil, 0, err
	}
	return affiliates, total, nil
}
