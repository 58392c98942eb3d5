package model

import "time"

// 決済インテント作成時のチェックアウト内容。
// コールバックではクライアントの値ではなくこちらを使う。
type CheckoutIntent struct {
	ID              int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalOrderID string `gorm:"type:varchar(255);not null;uniqueIndex" json:"external_order_id"`
	CartKey         string `gorm:"type:varchar(255);not null" json:"-"`
	AccountID       *int64 `json:"account_id"`

	CustomerName  string `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone string `gorm:"type:varchar(30);not null" json:"customer_phone"`
	CustomerEmail string `gorm:"type:varchar(255)" json:"customer_email"`
	Address       string `gorm:"type:varchar(500);not null" json:"address"`
	City          string `gorm:"type:varchar(255)" json:"city"`
	PostalCode    string `gorm:"type:varchar(20)" json:"postal_code"`

	DeliverySlotID *int64    `json:"delivery_slot_id"`
	Amount         int64     `gorm:"not null" json:"amount"`
	Currency       string    `gorm:"type:varchar(10);not null" json:"currency"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
