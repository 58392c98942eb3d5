package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventStockInsufficient  EventType = "stock_insufficient"
	EventSlotFull           EventType = "slot_full"
	EventDriverAssigned     EventType = "driver_assigned"
	EventDriverReleased     EventType = "driver_released"
	EventDriverUnavailable  EventType = "driver_unavailable"
	EventOrderDelivered     EventType = "order_delivered"
	EventOrderStatusChanged EventType = "order_status_changed"
)

// Event は確定処理などで発生した出来事（通知・分析側で消費する）
type Event struct {
	Type      EventType
	OrderID   int64
	DriverID  int64
	SlotID    int64
	ProductID int64
	Detail    string
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event)
	// 確定処理の所要時間（outcome: created / duplicate / insufficient_stock / error）
	ObserveFinalize(method model.PaymentMethod, outcome string, d time.Duration)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event)                             {}
func (NopPublisher) ObserveFinalize(model.PaymentMethod, string, time.Duration) {}

type IntentRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

type Intent struct {
	ExternalOrderID string
	ClientSecret    string
	Amount          int64
	Currency        string
}

// 決済ゲートウェイ（プロトコル自体は外部の責務）
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	VerifyCallback(externalOrderID string, paymentID string, signature string) bool
}

type Clock func() time.Time
