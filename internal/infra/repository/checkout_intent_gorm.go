package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type CheckoutIntentGormRepository struct {
	db *gorm.DB
}

func NewCheckoutIntentGormRepository(db *gorm.DB) *CheckoutIntentGormRepository {
	return &CheckoutIntentGormRepository{db: db}
}

func (r *CheckoutIntentGormRepository) Create(ctx context.Context, in model.CheckoutIntent) (model.CheckoutIntent, error) {
	if err := r.db.WithContext(ctx).Create(&in).Error; err != nil {
		if isUniqueViolation(err) {
			return model.CheckoutIntent{}, repo.ErrDuplicate
		}
		return model.CheckoutIntent{}, err
	}
	return in, nil
}

func (r *CheckoutIntentGormRepository) FindByExternalOrderID(ctx context.Context, externalOrderID string) (model.CheckoutIntent, error) {
	var in model.CheckoutIntent
	err := r.db.WithContext(ctx).Where("external_order_id = ?", externalOrderID).First(&in).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CheckoutIntent{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CheckoutIntent{}, err
	}
	return in, nil
}
