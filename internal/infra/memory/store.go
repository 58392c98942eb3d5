// Package memory はDBを使わない開発・テスト用のストア。
// トランザクションは1つのmutexで直列化し、失敗時はスナップショットへ戻す。
package memory

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type tables struct {
	products    map[int64]model.Product
	sizes       map[string]model.SizeVariant  // productID|size
	weights     map[string]model.WeightOption // productID|label
	rules       map[int64]model.DeliveryRule
	slots       map[int64]model.DeliverySlot
	drivers     map[int64]model.Driver
	orders      map[int64]model.Order
	items       map[int64][]model.OrderItem
	intents     map[string]model.CheckoutIntent
	adjustments []model.InventoryAdjustment
	audits      []model.AuditLog
	seq         map[string]int64
}

func newTables() *tables {
	return &tables{
		products: map[int64]model.Product{},
		sizes:    map[string]model.SizeVariant{},
		weights:  map[string]model.WeightOption{},
		rules:    map[int64]model.DeliveryRule{},
		slots:    map[int64]model.DeliverySlot{},
		drivers:  map[int64]model.Driver{},
		orders:   map[int64]model.Order{},
		items:    map[int64][]model.OrderItem{},
		intents:  map[string]model.CheckoutIntent{},
		seq:      map[string]int64{},
	}
}

// ロールバック用の複製（値型なのでmapを作り直せば十分）
func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.products {
		c.products[k] = v
	}
	for k, v := range t.sizes {
		c.sizes[k] = v
	}
	for k, v := range t.weights {
		c.weights[k] = v
	}
	for k, v := range t.rules {
		c.rules[k] = v
	}
	for k, v := range t.slots {
		c.slots[k] = v
	}
	for k, v := range t.drivers {
		c.drivers[k] = v
	}
	for k, v := range t.orders {
		c.orders[k] = v
	}
	for k, v := range t.items {
		c.items[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range t.intents {
		c.intents[k] = v
	}
	c.adjustments = append([]model.InventoryAdjustment(nil), t.adjustments...)
	c.audits = append([]model.AuditLog(nil), t.audits...)
	for k, v := range t.seq {
		c.seq[k] = v
	}
	return c
}

func (t *tables) nextID(table string) int64 {
	t.seq[table]++
	return t.seq[table]
}

type Store struct {
	mu  sync.Mutex
	t   *tables
	now func() time.Time
}

func NewStore() *Store {
	return &Store{t: newTables(), now: time.Now}
}

// Tx外のアクセスはここでロックする（Tx内はWithinTxが保持している）
func (s *Store) run(inTx bool, fn func(t *tables) error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.t)
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.t.clone()
	if err := fn(&txRepos{s: s}); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

type txRepos struct {
	s *Store
}

func (r *txRepos) Orders() repo.OrderRepository         { return &OrderRepository{s: r.s, inTx: true} }
func (r *txRepos) OrderItems() repo.OrderItemRepository { return &OrderItemRepository{s: r.s, inTx: true} }
func (r *txRepos) Inventory() repo.InventoryRepository  { return &InventoryRepository{s: r.s, inTx: true} }
func (r *txRepos) Slots() repo.DeliverySlotRepository   { return &SlotRepository{s: r.s, inTx: true} }
func (r *txRepos) Drivers() repo.DriverRepository       { return &DriverRepository{s: r.s, inTx: true} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository   { return &AuditLogRepository{s: r.s, inTx: true} }

// Tx外で使うリポジトリ
func (s *Store) Products() *ProductRepository               { return &ProductRepository{s: s} }
func (s *Store) Inventory() *InventoryRepository            { return &InventoryRepository{s: s} }
func (s *Store) Orders() *OrderRepository                   { return &OrderRepository{s: s} }
func (s *Store) OrderItems() *OrderItemRepository           { return &OrderItemRepository{s: s} }
func (s *Store) DeliveryRules() *DeliveryRuleRepository     { return &DeliveryRuleRepository{s: s} }
func (s *Store) Slots() *SlotRepository                     { return &SlotRepository{s: s} }
func (s *Store) Drivers() *DriverRepository                 { return &DriverRepository{s: s} }
func (s *Store) CheckoutIntents() *CheckoutIntentRepository { return &CheckoutIntentRepository{s: s} }
func (s *Store) AuditLogs() *AuditLogRepository             { return &AuditLogRepository{s: s} }

// SeedProduct は商品とその在庫行を登録する（開発用データ・テスト用）。
func (s *Store) SeedProduct(p model.Product, sizes []model.SizeVariant, weights []model.WeightOption) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.t.nextID("products")
	}
	if p.StockShape == "" {
		p.StockShape = model.StockShapePlain
	}
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.t.products[p.ID] = p

	for _, sv := range sizes {
		sv.ProductID = p.ID
		sv.ID = s.t.nextID("size_variants")
		s.t.sizes[variantKey(p.ID, sv.Size)] = sv
	}
	for _, wo := range weights {
		wo.ProductID = p.ID
		wo.ID = s.t.nextID("weight_options")
		s.t.weights[variantKey(p.ID, wo.Label)] = wo
	}
	return p
}
