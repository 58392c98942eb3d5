package model

import "time"

type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusBusy      DriverStatus = "busy"
	DriverStatusOffline   DriverStatus = "offline"
)

// 配達員（busyの間は担当中の注文がある）
type Driver struct {
	ID             int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID      int64        `gorm:"not null;uniqueIndex" json:"account_id"`
	Name           string       `gorm:"type:varchar(255);not null" json:"name"`
	Phone          string       `gorm:"type:varchar(30)" json:"phone"`
	Status         DriverStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	LastAssignedAt *time.Time   `json:"last_assigned_at"`
	CreatedAt      time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
