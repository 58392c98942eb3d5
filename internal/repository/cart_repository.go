package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// セッションカートの保存先。競合時は後勝ちでよい。
type CartStore interface {
	// 無ければ空のカートを返す
	Get(ctx context.Context, key string) (model.Cart, error)
	Save(ctx context.Context, cart model.Cart) error
	Delete(ctx context.Context, key string) error
}
