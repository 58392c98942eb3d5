package model

import "time"

// 配送料の段階ルール
type DeliveryRule struct {
	ID             int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MinOrderAmount int64 `gorm:"not null;index" json:"min_order_amount"`
	DeliveryFee    int64 `gorm:"not null" json:"delivery_fee"`
	// nilなら閾値なし（送料無料にならない）
	FreeDeliveryThreshold *int64    `json:"free_delivery_threshold"`
	IsActive              bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt             time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 配送枠
type DeliverySlot struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Date        time.Time `gorm:"type:date;not null;index" json:"date"`
	StartTime   string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime     string    `gorm:"type:varchar(5);not null" json:"end_time"`
	MaxOrders   *int64    `json:"max_orders"`
	BookedCount int64     `gorm:"not null;default:0" json:"booked_count"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

const (
	SlotReasonInactive = "slot inactive"
	SlotReasonPast     = "slot date has passed"
	SlotReasonFull     = "slot full"
)

// UnavailableReason は予約できない理由を返す（空なら予約可）。
func (s DeliverySlot) UnavailableReason(today time.Time) string {
	if !s.IsActive {
		return SlotReasonInactive
	}
	if DateOf(s.Date).Before(DateOf(today)) {
		return SlotReasonPast
	}
	if s.MaxOrders != nil && s.BookedCount >= *s.MaxOrders {
		return SlotReasonFull
	}
	return ""
}

// DateOf は日付部分だけ（UTC 0時）にそろえる。
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
