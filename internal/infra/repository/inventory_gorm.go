package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫行ごとの対象テーブルと条件
func stockRow(db *gorm.DB, ref model.VariantRef) *gorm.DB {
	switch ref.Shape() {
	case model.StockShapeSize:
		return db.Model(&model.SizeVariant{}).
			Where("product_id = ? AND size = ?", ref.ProductID, ref.Size)
	case model.StockShapeWeight:
		return db.Model(&model.WeightOption{}).
			Where("product_id = ? AND label = ?", ref.ProductID, ref.Weight)
	default:
		return db.Model(&model.Product{}).
			Where("id = ? AND stock_shape = ?", ref.ProductID, model.StockShapePlain)
	}
}

// 現在の在庫数
func (r *InventoryGormRepository) StockOf(ctx context.Context, ref model.VariantRef) (int64, error) {
	var stocks []int64
	if err := stockRow(r.db.WithContext(ctx), ref).Pluck("stock", &stocks).Error; err != nil {
		return 0, err
	}
	if len(stocks) == 0 {
		return 0, repo.ErrNotFound
	}
	return stocks[0], nil
}

// 在庫が足りるときだけ減らす（1文の条件付きUPDATE）
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, ref model.VariantRef, qty int64) (bool, error) {
	res := stockRow(r.db.WithContext(ctx), ref).
		Where("stock >= ?", qty).
		Update("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル）
func (r *InventoryGormRepository) IncreaseStock(ctx context.Context, ref model.VariantRef, qty int64) error {
	res := stockRow(r.db.WithContext(ctx), ref).
		Update("stock", gorm.Expr("stock + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}
