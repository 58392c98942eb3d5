package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 在庫行の現在価格と在庫を返す
func (r *ProductGormRepository) FindVariant(ctx context.Context, ref model.VariantRef) (model.CatalogVariant, error) {
	p, err := r.FindByID(ctx, ref.ProductID)
	if err != nil {
		return model.CatalogVariant{}, err
	}

	//商品の在庫形と指定が違うものは存在しない扱い
	if p.StockShape != ref.Shape() {
		return model.CatalogVariant{}, repo.ErrNotFound
	}

	out := model.CatalogVariant{
		Ref:       ref,
		Name:      p.Name,
		Label:     ref.Label(),
		UnitPrice: p.Price,
		Stock:     p.Stock,
		IsActive:  p.IsActive,
	}

	switch ref.Shape() {
	case model.StockShapeSize:
		var sv model.SizeVariant
		err := r.db.WithContext(ctx).
			Where("product_id = ? AND size = ?", ref.ProductID, ref.Size).
			First(&sv).Error
		if isNotFound(err) {
			return model.CatalogVariant{}, repo.ErrNotFound
		}
		if err != nil {
			return model.CatalogVariant{}, err
		}
		out.Stock = sv.Stock

	case model.StockShapeWeight:
		var wo model.WeightOption
		err := r.db.WithContext(ctx).
			Where("product_id = ? AND label = ?", ref.ProductID, ref.Weight).
			First(&wo).Error
		if isNotFound(err) {
			return model.CatalogVariant{}, repo.ErrNotFound
		}
		if err != nil {
			return model.CatalogVariant{}, err
		}
		out.UnitPrice = wo.Price
		out.Stock = wo.Stock
	}

	return out, nil
}
