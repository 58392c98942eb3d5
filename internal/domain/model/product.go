package model

import (
	"time"

	"gorm.io/gorm"
)

// 在庫の持ち方（商品ごとに1つだけ）
type StockShape string

const (
	StockShapePlain  StockShape = "plain"
	StockShapeSize   StockShape = "size"
	StockShapeWeight StockShape = "weight"
)

type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	Stock       int64          `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	StockShape  StockShape     `gorm:"type:varchar(10);not null;default:'plain'" json:"stock_shape"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// サイズ別在庫（価格は商品本体と同じ）
type SizeVariant struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64  `gorm:"not null;uniqueIndex:idx_size_variant" json:"product_id"`
	Size      string `gorm:"type:varchar(50);not null;uniqueIndex:idx_size_variant" json:"size"`
	Stock     int64  `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
}

// 重量オプション別在庫（オプションごとに価格を持つ）
type WeightOption struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64  `gorm:"not null;uniqueIndex:idx_weight_option" json:"product_id"`
	Label     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_weight_option" json:"label"`
	Price     int64  `gorm:"not null" json:"price"`
	Stock     int64  `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
}
