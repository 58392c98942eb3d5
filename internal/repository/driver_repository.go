package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type DriverRepository interface {
	FindByID(ctx context.Context, driverID int64) (model.Driver, error)
	FindByAccountID(ctx context.Context, accountID int64) (model.Driver, error)
	List(ctx context.Context, status *model.DriverStatus) ([]model.Driver, error)
	Create(ctx context.Context, d model.Driver) (model.Driver, error)

	// availableな配達員を1人だけ確保してbusyにする。
	// 他のトランザクションがロック中の行は待たずに飛ばす。いなければfalse
	ClaimAvailable(ctx context.Context, now time.Time) (model.Driver, bool, error)
	// 指定の配達員がavailableならbusyにする
	ClaimByID(ctx context.Context, driverID int64, now time.Time) (bool, error)
	// busyならavailableへ戻す（それ以外は何もしない）
	Release(ctx context.Context, driverID int64) (bool, error)
	// available <-> offline の切り替え（busy中は変更しない）
	SetAvailability(ctx context.Context, driverID int64, status model.DriverStatus) (bool, error)
}
