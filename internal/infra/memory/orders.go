package memory

import (
	"context"
	"sort"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type OrderRepository struct {
	s    *Store
	inTx bool
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var out model.Order
	err := r.s.run(r.inTx, func(t *tables) error {
		o, ok := t.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		out = o
		return nil
	})
	return out, err
}

// 新しい順（id desc）にして絞り込む
func (r *OrderRepository) collect(match func(o model.Order) bool) []model.Order {
	out := []model.Order{}
	_ = r.s.run(r.inTx, func(t *tables) error {
		for _, o := range t.orders {
			if match(o) {
				out = append(out, o)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func paginate(items []model.Order, page int, limit int) []model.Order {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		return []model.Order{}
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []model.Order{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (r *OrderRepository) ListByAccountID(ctx context.Context, accountID int64, page int, limit int) ([]model.Order, int64, error) {
	all := r.collect(func(o model.Order) bool {
		return o.AccountID != nil && *o.AccountID == accountID
	})
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *OrderRepository) ListByDriverID(ctx context.Context, driverID int64, activeOnly bool) ([]model.Order, error) {
	out := r.collect(func(o model.Order) bool {
		if o.DriverID == nil || *o.DriverID != driverID {
			return false
		}
		return !activeOnly || !o.Status.IsTerminal()
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EstimatedDeliveryDate.Equal(out[j].EstimatedDeliveryDate) {
			return out[i].EstimatedDeliveryDate.Before(out[j].EstimatedDeliveryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *OrderRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	all := r.collect(func(o model.Order) bool {
		if f.Status != "" && string(o.Status) != f.Status {
			return false
		}
		if f.AccountID != nil && (o.AccountID == nil || *o.AccountID != *f.AccountID) {
			return false
		}
		if f.DriverID != nil && (o.DriverID == nil || *o.DriverID != *f.DriverID) {
			return false
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			return false
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			return false
		}
		return true
	})
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func sameRef(a *string, b string) bool {
	return a != nil && b != "" && *a == b
}

func (r *OrderRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	var id int64
	err := r.s.run(r.inTx, func(t *tables) error {
		//一意制約（payment系・冪等キー）
		for _, o := range t.orders {
			if order.ExternalOrderID != nil && sameRef(o.ExternalOrderID, *order.ExternalOrderID) {
				return repo.ErrDuplicate
			}
			if order.PaymentID != nil && sameRef(o.PaymentID, *order.PaymentID) {
				return repo.ErrDuplicate
			}
			if order.IdempotencyKey != nil && o.OwnerKey == order.OwnerKey && sameRef(o.IdempotencyKey, *order.IdempotencyKey) {
				return repo.ErrDuplicate
			}
		}

		order.ID = t.nextID("orders")
		order.CreatedAt = r.s.now()
		order.UpdatedAt = order.CreatedAt
		t.orders[order.ID] = order
		id = order.ID
		return nil
	})
	return id, err
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) (bool, error) {
	var done bool
	err := r.s.run(r.inTx, func(t *tables) error {
		o, ok := t.orders[orderID]
		if !ok || o.Status != from {
			return nil
		}
		o.Status = to
		o.UpdatedAt = r.s.now()
		t.orders[orderID] = o
		done = true
		return nil
	})
	return done, err
}

func (r *OrderRepository) SetDriver(ctx context.Context, orderID int64, driverID *int64) error {
	return r.s.run(r.inTx, func(t *tables) error {
		o, ok := t.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		o.DriverID = driverID
		o.UpdatedAt = r.s.now()
		t.orders[orderID] = o
		return nil
	})
}

func (r *OrderRepository) FindByPaymentRef(ctx context.Context, externalOrderID string, paymentID string) (model.Order, bool, error) {
	all := r.collect(func(o model.Order) bool {
		return sameRef(o.ExternalOrderID, externalOrderID) || sameRef(o.PaymentID, paymentID)
	})
	if len(all) == 0 {
		return model.Order{}, false, nil
	}
	return all[len(all)-1], true, nil
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, ownerKey string, key string) (model.Order, bool, error) {
	all := r.collect(func(o model.Order) bool {
		return o.OwnerKey == ownerKey && sameRef(o.IdempotencyKey, key)
	})
	if len(all) == 0 {
		return model.Order{}, false, nil
	}
	return all[0], true, nil
}

func (r *OrderRepository) CountActiveByDriver(ctx context.Context, driverID int64, excludeOrderID int64) (int64, error) {
	all := r.collect(func(o model.Order) bool {
		return o.DriverID != nil && *o.DriverID == driverID && o.ID != excludeOrderID && !o.Status.IsTerminal()
	})
	return int64(len(all)), nil
}

type OrderItemRepository struct {
	s    *Store
	inTx bool
}

func (r *OrderItemRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	return r.s.run(r.inTx, func(t *tables) error {
		if _, ok := t.orders[orderID]; !ok {
			return repo.ErrNotFound
		}
		for _, it := range items {
			it.ID = t.nextID("order_items")
			it.OrderID = orderID
			it.CreatedAt = r.s.now()
			t.items[orderID] = append(t.items[orderID], it)
		}
		return nil
	})
}

func (r *OrderItemRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	out := []model.OrderItem{}
	err := r.s.run(r.inTx, func(t *tables) error {
		out = append(out, t.items[orderID]...)
		return nil
	})
	return out, err
}
