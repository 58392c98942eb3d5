package memory

import (
	"context"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type DeliveryRuleRepository struct {
	s *Store
}

func (r *DeliveryRuleRepository) ListActive(ctx context.Context) ([]model.DeliveryRule, error) {
	out := []model.DeliveryRule{}
	_ = r.s.run(false, func(t *tables) error {
		for _, rule := range t.rules {
			if rule.IsActive {
				out = append(out, rule)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinOrderAmount != out[j].MinOrderAmount {
			return out[i].MinOrderAmount < out[j].MinOrderAmount
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *DeliveryRuleRepository) Create(ctx context.Context, rule model.DeliveryRule) (model.DeliveryRule, error) {
	err := r.s.run(false, func(t *tables) error {
		rule.ID = t.nextID("delivery_rules")
		rule.CreatedAt = r.s.now()
		rule.UpdatedAt = rule.CreatedAt
		t.rules[rule.ID] = rule
		return nil
	})
	return rule, err
}

type SlotRepository struct {
	s    *Store
	inTx bool
}

func hasSeat(s model.DeliverySlot) bool {
	return s.MaxOrders == nil || s.BookedCount < *s.MaxOrders
}

func (r *SlotRepository) FindByID(ctx context.Context, slotID int64) (model.DeliverySlot, error) {
	var out model.DeliverySlot
	err := r.s.run(r.inTx, func(t *tables) error {
		s, ok := t.slots[slotID]
		if !ok {
			return repo.ErrNotFound
		}
		out = s
		return nil
	})
	return out, err
}

func (r *SlotRepository) ListAvailable(ctx context.Context, from time.Time, to time.Time) ([]model.DeliverySlot, error) {
	from, to = model.DateOf(from), model.DateOf(to)

	out := []model.DeliverySlot{}
	_ = r.s.run(r.inTx, func(t *tables) error {
		for _, s := range t.slots {
			d := model.DateOf(s.Date)
			if !s.IsActive || d.Before(from) || d.After(to) || !hasSeat(s) {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *SlotRepository) Create(ctx context.Context, slot model.DeliverySlot) (model.DeliverySlot, error) {
	err := r.s.run(r.inTx, func(t *tables) error {
		slot.ID = t.nextID("delivery_slots")
		slot.Date = model.DateOf(slot.Date)
		slot.CreatedAt = r.s.now()
		slot.UpdatedAt = slot.CreatedAt
		t.slots[slot.ID] = slot
		return nil
	})
	return slot, err
}

func (r *SlotRepository) ClaimSeat(ctx context.Context, slotID int64, today time.Time) (bool, error) {
	var done bool
	err := r.s.run(r.inTx, func(t *tables) error {
		s, ok := t.slots[slotID]
		if !ok || s.UnavailableReason(today) != "" {
			return nil
		}
		s.BookedCount++
		t.slots[slotID] = s
		done = true
		return nil
	})
	return done, err
}

func (r *SlotRepository) ReleaseSeat(ctx context.Context, slotID int64) error {
	return r.s.run(r.inTx, func(t *tables) error {
		s, ok := t.slots[slotID]
		if !ok || s.BookedCount <= 0 {
			return nil
		}
		s.BookedCount--
		t.slots[slotID] = s
		return nil
	})
}
