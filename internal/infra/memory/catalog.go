package memory

import (
	"context"
	"fmt"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

func variantKey(productID int64, label string) string {
	return fmt.Sprintf("%d|%s", productID, label)
}

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var out model.Product
	err := r.s.run(false, func(t *tables) error {
		p, ok := t.products[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *ProductRepository) FindVariant(ctx context.Context, ref model.VariantRef) (model.CatalogVariant, error) {
	var out model.CatalogVariant
	err := r.s.run(false, func(t *tables) error {
		p, ok := t.products[ref.ProductID]
		if !ok || p.StockShape != ref.Shape() {
			return repo.ErrNotFound
		}
		out = model.CatalogVariant{
			Ref:       ref,
			Name:      p.Name,
			Label:     ref.Label(),
			UnitPrice: p.Price,
			Stock:     p.Stock,
			IsActive:  p.IsActive,
		}

		switch ref.Shape() {
		case model.StockShapeSize:
			sv, ok := t.sizes[variantKey(ref.ProductID, ref.Size)]
			if !ok {
				return repo.ErrNotFound
			}
			out.Stock = sv.Stock
		case model.StockShapeWeight:
			wo, ok := t.weights[variantKey(ref.ProductID, ref.Weight)]
			if !ok {
				return repo.ErrNotFound
			}
			out.UnitPrice = wo.Price
			out.Stock = wo.Stock
		}
		return nil
	})
	if err != nil {
		return model.CatalogVariant{}, err
	}
	return out, nil
}

type InventoryRepository struct {
	s    *Store
	inTx bool
}

// 在庫行の読み書き（見つからなければfalse）
func stockOf(t *tables, ref model.VariantRef) (int64, bool) {
	switch ref.Shape() {
	case model.StockShapeSize:
		sv, ok := t.sizes[variantKey(ref.ProductID, ref.Size)]
		return sv.Stock, ok
	case model.StockShapeWeight:
		wo, ok := t.weights[variantKey(ref.ProductID, ref.Weight)]
		return wo.Stock, ok
	default:
		p, ok := t.products[ref.ProductID]
		if !ok || p.StockShape != model.StockShapePlain {
			return 0, false
		}
		return p.Stock, true
	}
}

func setStock(t *tables, ref model.VariantRef, stock int64) {
	switch ref.Shape() {
	case model.StockShapeSize:
		k := variantKey(ref.ProductID, ref.Size)
		sv := t.sizes[k]
		sv.Stock = stock
		t.sizes[k] = sv
	case model.StockShapeWeight:
		k := variantKey(ref.ProductID, ref.Weight)
		wo := t.weights[k]
		wo.Stock = stock
		t.weights[k] = wo
	default:
		p := t.products[ref.ProductID]
		p.Stock = stock
		t.products[ref.ProductID] = p
	}
}

func (r *InventoryRepository) StockOf(ctx context.Context, ref model.VariantRef) (int64, error) {
	var out int64
	err := r.s.run(r.inTx, func(t *tables) error {
		stock, ok := stockOf(t, ref)
		if !ok {
			return repo.ErrNotFound
		}
		out = stock
		return nil
	})
	return out, err
}

func (r *InventoryRepository) DecreaseStockIfEnough(ctx context.Context, ref model.VariantRef, qty int64) (bool, error) {
	var done bool
	err := r.s.run(r.inTx, func(t *tables) error {
		stock, ok := stockOf(t, ref)
		if !ok || stock < qty {
			return nil
		}
		setStock(t, ref, stock-qty)
		done = true
		return nil
	})
	return done, err
}

func (r *InventoryRepository) IncreaseStock(ctx context.Context, ref model.VariantRef, qty int64) error {
	return r.s.run(r.inTx, func(t *tables) error {
		stock, ok := stockOf(t, ref)
		if !ok {
			return repo.ErrNotFound
		}
		setStock(t, ref, stock+qty)
		return nil
	})
}

func (r *InventoryRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	return r.s.run(r.inTx, func(t *tables) error {
		adj.ID = t.nextID("inventory_adjustments")
		adj.CreatedAt = r.s.now()
		t.adjustments = append(t.adjustments, adj)
		return nil
	})
}

// Adjustments は在庫調整履歴（テスト確認用）
func (r *InventoryRepository) Adjustments() []model.InventoryAdjustment {
	var out []model.InventoryAdjustment
	_ = r.s.run(r.inTx, func(t *tables) error {
		out = append(out, t.adjustments...)
		return nil
	})
	return out
}
