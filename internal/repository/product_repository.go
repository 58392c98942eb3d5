package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// カタログの読み取り窓口（商品CRUDは扱わない）
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// 在庫行の現在価格と在庫。商品・バリアントが無い、または形が合わなければErrNotFound
	FindVariant(ctx context.Context, ref model.VariantRef) (model.CatalogVariant, error)
}
