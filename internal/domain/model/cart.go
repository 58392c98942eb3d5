package model

import "time"

// Cart はセッショントークン（またはアカウント）単位の一時カート。
// 注文確定後に削除する。
type Cart struct {
	Key       string     `json:"-"`
	AccountID *int64     `json:"account_id,omitempty"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartLine struct {
	VariantRef
	Quantity int64 `json:"quantity"`
}

// 同じ在庫行は数量を足す
func (c *Cart) Add(ref VariantRef, qty int64) {
	for i := range c.Lines {
		if c.Lines[i].Key() == ref.Key() {
			c.Lines[i].Quantity += qty
			return
		}
	}
	c.Lines = append(c.Lines, CartLine{VariantRef: ref, Quantity: qty})
}

// 数量を上書き（0以下なら削除）
func (c *Cart) Set(ref VariantRef, qty int64) bool {
	for i := range c.Lines {
		if c.Lines[i].Key() != ref.Key() {
			continue
		}
		if qty <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		} else {
			c.Lines[i].Quantity = qty
		}
		return true
	}
	return false
}

// ログイン時にゲストカートを取り込む
func (c *Cart) Merge(other Cart) {
	for _, l := range other.Lines {
		c.Add(l.VariantRef, l.Quantity)
	}
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
