package memory

import (
	"context"
	"sort"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type CheckoutIntentRepository struct {
	s *Store
}

func (r *CheckoutIntentRepository) Create(ctx context.Context, in model.CheckoutIntent) (model.CheckoutIntent, error) {
	err := r.s.run(false, func(t *tables) error {
		if _, ok := t.intents[in.ExternalOrderID]; ok {
			return repo.ErrDuplicate
		}
		in.ID = t.nextID("checkout_intents")
		in.CreatedAt = r.s.now()
		t.intents[in.ExternalOrderID] = in
		return nil
	})
	if err != nil {
		return model.CheckoutIntent{}, err
	}
	return in, nil
}

func (r *CheckoutIntentRepository) FindByExternalOrderID(ctx context.Context, externalOrderID string) (model.CheckoutIntent, error) {
	var out model.CheckoutIntent
	err := r.s.run(false, func(t *tables) error {
		in, ok := t.intents[externalOrderID]
		if !ok {
			return repo.ErrNotFound
		}
		out = in
		return nil
	})
	return out, err
}

type AuditLogRepository struct {
	s    *Store
	inTx bool
}

func (r *AuditLogRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.s.run(r.inTx, func(t *tables) error {
		log.ID = t.nextID("audit_logs")
		log.CreatedAt = r.s.now()
		t.audits = append(t.audits, log)
		return nil
	})
}

func (r *AuditLogRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	out := []model.AuditLog{}
	_ = r.s.run(r.inTx, func(t *tables) error {
		for _, l := range t.audits {
			if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
				continue
			}
			if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
				continue
			}
			if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
