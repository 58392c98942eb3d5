package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page      int
	Limit     int
	Status    string
	AccountID *int64
	DriverID  *int64
	From      *time.Time
	To        *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByAccountID(ctx context.Context, accountID int64, page int, limit int) ([]model.Order, int64, error)
	// 配達員の担当注文（activeOnlyなら終端状態を除く）
	ListByDriverID(ctx context.Context, driverID int64, activeOnly bool) ([]model.Order, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	// 一意制約に当たったらErrDuplicate
	Create(ctx context.Context, order model.Order) (int64, error)

	// 現在がfromのときだけtoへ更新（false=他で変更済み）
	UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) (bool, error)
	SetDriver(ctx context.Context, orderID int64, driverID *int64) error

	// 外部決済IDで検索（同じIDなら同じ注文）
	FindByPaymentRef(ctx context.Context, externalOrderID string, paymentID string) (model.Order, bool, error)
	//検索（同じキーなら同じ結果を返す）
	// 冪等キーは持ち主（カートのキー）ごと
	FindByIdempotencyKey(ctx context.Context, ownerKey string, key string) (model.Order, bool, error)

	// 配達員が担当中の未完了注文数（excludeOrderIDは除く）
	CountActiveByDriver(ctx context.Context, driverID int64, excludeOrderID int64) (int64, error)
}
