package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// 現在のカタログ価格で確認したカート明細
type pricedLine struct {
	Ref       model.VariantRef
	Name      string
	Label     string
	UnitPrice int64
	Quantity  int64
	Available int64
}

func (l pricedLine) Subtotal() int64 {
	return l.UnitPrice * l.Quantity
}

// 同じ在庫行の明細は1つにまとめる（最初に出た順を保つ）
func coalesceLines(lines []model.CartLine) []model.CartLine {
	idx := map[string]int{}
	out := make([]model.CartLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.Key()]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.Key()] = len(out)
		out = append(out, l)
	}
	return out
}

// CheckAvailability は参考用の在庫確認（何もロックしない）
func CheckAvailability(ctx context.Context, products repo.ProductRepository, ref model.VariantRef, qty int64) (bool, int64, error) {
	v, err := products.FindVariant(ctx, ref)
	if err != nil {
		return false, 0, err
	}
	return v.IsActive && v.Stock >= qty, v.Stock, nil
}

func hydrateLines(ctx context.Context, products repo.ProductRepository, lines []model.CartLine) ([]pricedLine, error) {
	merged := coalesceLines(lines)
	out := make([]pricedLine, 0, len(merged))
	for _, l := range merged {
		if !l.Valid() {
			return nil, newValidationError("cart", fmt.Sprintf("invalid item for product %d", l.ProductID))
		}
		if l.Quantity <= 0 {
			return nil, newValidationError("cart", fmt.Sprintf("quantity must be positive for product %d", l.ProductID))
		}

		v, err := products.FindVariant(ctx, l.VariantRef)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newValidationError("cart", fmt.Sprintf("product %d (%s) is no longer available", l.ProductID, l.Label()))
		}
		if err != nil {
			return nil, fmt.Errorf("find variant: %w", err)
		}
		if !v.IsActive {
			return nil, newValidationError("cart", fmt.Sprintf("%s is no longer available", v.Name))
		}

		out = append(out, pricedLine{
			Ref:       l.VariantRef,
			Name:      v.Name,
			Label:     v.Label,
			UnitPrice: v.UnitPrice,
			Quantity:  l.Quantity,
			Available: v.Stock,
		})
	}
	return out, nil
}

// 事前チェック（確定時は条件付きUPDATEで再判定する）
func checkStock(lines []pricedLine) error {
	for _, l := range lines {
		if l.Available < l.Quantity {
			return &InsufficientStockError{
				ProductID:    l.Ref.ProductID,
				ProductName:  l.Name,
				VariantLabel: l.Label,
				Requested:    l.Quantity,
				Available:    l.Available,
			}
		}
	}
	return nil
}

// ロックを取る順番（どの注文でも在庫行のキー順）
func lockOrder(lines []pricedLine) []pricedLine {
	out := append([]pricedLine(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ref.Key() < out[j].Ref.Key()
	})
	return out
}

// Tx内で在庫を減らす。1行でも足りなければエラー（呼び出し側でロールバック）
func decrementStock(ctx context.Context, inv repo.InventoryRepository, lines []pricedLine) error {
	for _, l := range lockOrder(lines) {
		ok, err := inv.DecreaseStockIfEnough(ctx, l.Ref, l.Quantity)
		if err != nil {
			return fmt.Errorf("decrease stock: %w", err)
		}
		if ok {
			continue
		}

		available, err := inv.StockOf(ctx, l.Ref)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("stock of: %w", err)
		}
		return &InsufficientStockError{
			ProductID:    l.Ref.ProductID,
			ProductName:  l.Name,
			VariantLabel: l.Label,
			Requested:    l.Quantity,
			Available:    available,
		}
	}
	return nil
}

func subtotalOf(lines []pricedLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

func toOrderItems(lines []pricedLine) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, model.OrderItem{
			ProductID:           l.Ref.ProductID,
			Size:                l.Ref.Size,
			Weight:              l.Ref.Weight,
			ProductNameSnapshot: l.Name,
			VariantLabel:        l.Label,
			UnitPriceSnapshot:   l.UnitPrice,
			Quantity:            l.Quantity,
			Subtotal:            l.Subtotal(),
		})
	}
	return items
}
