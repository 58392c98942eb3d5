package model

import "time"

// 在庫の増減履歴（キャンセル時の在庫戻しなど）
type InventoryAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"not null;index" json:"product_id"`
	Size        string    `gorm:"type:varchar(50)" json:"size,omitempty"`
	Weight      string    `gorm:"type:varchar(50)" json:"weight,omitempty"`
	OrderID     *int64    `gorm:"index" json:"order_id"`
	ActorUserID int64     `gorm:"not null;index" json:"actor_user_id"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
