package model

import "fmt"

// VariantRef は購入対象の在庫行を指す。
// Size/Weightがどちらも空なら商品本体の在庫。
type VariantRef struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Weight    string `json:"weight,omitempty"`
}

func (v VariantRef) Shape() StockShape {
	switch {
	case v.Size != "":
		return StockShapeSize
	case v.Weight != "":
		return StockShapeWeight
	default:
		return StockShapePlain
	}
}

// 同じ在庫行なら同じキー（明細の合算に使う）
func (v VariantRef) Key() string {
	return fmt.Sprintf("%d|%s|%s", v.ProductID, v.Size, v.Weight)
}

// 表示用のラベル
func (v VariantRef) Label() string {
	switch v.Shape() {
	case StockShapeSize:
		return "size " + v.Size
	case StockShapeWeight:
		return v.Weight
	default:
		return ""
	}
}

func (v VariantRef) Valid() bool {
	return v.ProductID > 0 && !(v.Size != "" && v.Weight != "")
}

// CatalogVariant はカタログから読んだ現在の価格と在庫。
type CatalogVariant struct {
	Ref       VariantRef
	Name      string
	Label     string
	UnitPrice int64
	Stock     int64
	IsActive  bool
}
