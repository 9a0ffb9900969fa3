package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/convexa-app/backoffice-backend/pkg/db/models"
)

// Repository handles catalog persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePlan(ctx context.Context, plan *models.Plan) error
	UpdatePlan(ctx context.Context, plan *models.Plan) error
	ListActivePlans(ctx context.Context) ([]models.Plan, error)
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	CreateAddon(ctx context.Context, addon *models.Addon) error
	UpdateAddon(ctx context.Context, addon *models.Addon) error
	ListActiveAddons(ctx context.Context) ([]models.Addon, error)
	FindAddonsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Addon, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePlan(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) UpdatePlan(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repository) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("base_price ASC, name ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) CreateAddon(ctx context.Context, addon *models.Addon) error {
	return r.db.WithContext(ctx).Create(addon).Error
}

func (r *repository) UpdateAddon(ctx context.Context, addon *models.Addon) error {
	return r.db.WithContext(ctx).Save(addon).Error
}

func (r *repository) ListActiveAddons(ctx context.Context) ([]models.Addon, error) {
	var addons []models.Addon
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("unit_price ASC, name ASC").
		Find(&addons).Error; err != nil {
		return nil, err
	}
	return addons, nil
}

func (r *repository) FindAddonsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Addon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var addons []models.Addon
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", ids).
		Find(&addons).Error; err != nil {
		return nil, err
	}
	return addons, nil
}
