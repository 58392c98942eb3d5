package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type DeliveryRuleRepository interface {
	ListActive(ctx context.Context) ([]model.DeliveryRule, error)
	Create(ctx context.Context, rule model.DeliveryRule) (model.DeliveryRule, error)
}

type DeliverySlotRepository interface {
	FindByID(ctx context.Context, slotID int64) (model.DeliverySlot, error)
	// 有効・未来日・空きありの枠を日付順に返す
	ListAvailable(ctx context.Context, from time.Time, to time.Time) ([]model.DeliverySlot, error)
	Create(ctx context.Context, slot model.DeliverySlot) (model.DeliverySlot, error)

	// 空きがあるときだけbooked_countを+1（false=満席・期限切れ）
	ClaimSeat(ctx context.Context, slotID int64, today time.Time) (bool, error)
	// booked_countを-1（0未満にはしない）
	ReleaseSeat(ctx context.Context, slotID int64) error
}
