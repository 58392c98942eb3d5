package model

import "time"

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodPrepaid PaymentMethod = "prepaid"
)

// 注文は作成後、statusとdriver以外は変更しない
type Order struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID *int64 `gorm:"index" json:"account_id"`

	CustomerName  string `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone string `gorm:"type:varchar(30);not null" json:"customer_phone"`
	CustomerEmail string `gorm:"type:varchar(255)" json:"customer_email"`
	Address       string `gorm:"type:varchar(500);not null" json:"address"`
	City          string `gorm:"type:varchar(255)" json:"city"`
	PostalCode    string `gorm:"type:varchar(20)" json:"postal_code"`

	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	DeliveryFee int64 `gorm:"not null" json:"delivery_fee"`
	Total       int64 `gorm:"not null" json:"total"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	// 外部決済の識別子（前払いの冪等キー）
	ExternalOrderID *string `gorm:"type:varchar(255);uniqueIndex" json:"external_order_id,omitempty"`
	PaymentID       *string `gorm:"type:varchar(255);uniqueIndex" json:"payment_id,omitempty"`
	// カートの持ち主（account:<id> / session:<token>）
	OwnerKey string `gorm:"type:varchar(160);not null;default:'';uniqueIndex:idx_orders_owner_idem" json:"-"`
	// 代引きの二重送信防止キー（持ち主ごとに一意）
	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex:idx_orders_owner_idem" json:"-"`

	DriverID              *int64    `gorm:"index" json:"driver_id"`
	DeliverySlotID        *int64    `gorm:"index" json:"delivery_slot_id"`
	EstimatedDeliveryDate time.Time `gorm:"type:date;not null" json:"estimated_delivery_date"`

	Status    OrderStatus `gorm:"type:varchar(30);not null;index" json:"status"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
