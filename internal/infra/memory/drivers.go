package memory

import (
	"context"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type DriverRepository struct {
	s    *Store
	inTx bool
}

func (r *DriverRepository) FindByID(ctx context.Context, driverID int64) (model.Driver, error) {
	var out model.Driver
	err := r.s.run(r.inTx, func(t *tables) error {
		d, ok := t.drivers[driverID]
		if !ok {
			return repo.ErrNotFound
		}
		out = d
		return nil
	})
	return out, err
}

func (r *DriverRepository) FindByAccountID(ctx context.Context, accountID int64) (model.Driver, error) {
	var out model.Driver
	err := r.s.run(r.inTx, func(t *tables) error {
		for _, d := range t.drivers {
			if d.AccountID == accountID {
				out = d
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *DriverRepository) List(ctx context.Context, status *model.DriverStatus) ([]model.Driver, error) {
	out := []model.Driver{}
	_ = r.s.run(r.inTx, func(t *tables) error {
		for _, d := range t.drivers {
			if status == nil || d.Status == *status {
				out = append(out, d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *DriverRepository) Create(ctx context.Context, d model.Driver) (model.Driver, error) {
	err := r.s.run(r.inTx, func(t *tables) error {
		for _, other := range t.drivers {
			if other.AccountID == d.AccountID {
				return repo.ErrDuplicate
			}
		}
		if d.Status == "" {
			d.Status = model.DriverStatusOffline
		}
		d.ID = t.nextID("drivers")
		d.CreatedAt = r.s.now()
		d.UpdatedAt = d.CreatedAt
		t.drivers[d.ID] = d
		return nil
	})
	if err != nil {
		return model.Driver{}, err
	}
	return d, nil
}

// 最後に割り当てた時刻が古い順（未割り当てが先頭）
func lessRecentlyAssigned(a, b model.Driver) bool {
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt != nil:
		return true
	case a.LastAssignedAt != nil && b.LastAssignedAt == nil:
		return false
	case a.LastAssignedAt != nil && !a.LastAssignedAt.Equal(*b.LastAssignedAt):
		return a.LastAssignedAt.Before(*b.LastAssignedAt)
	}
	return a.ID < b.ID
}

func (r *DriverRepository) ClaimAvailable(ctx context.Context, now time.Time) (model.Driver, bool, error) {
	var (
		out   model.Driver
		found bool
	)
	err := r.s.run(r.inTx, func(t *tables) error {
		for _, d := range t.drivers {
			if d.Status != model.DriverStatusAvailable {
				continue
			}
			if !found || lessRecentlyAssigned(d, out) {
				out = d
				found = true
			}
		}
		if !found {
			return nil
		}
		out.Status = model.DriverStatusBusy
		out.LastAssignedAt = &now
		out.UpdatedAt = now
		t.drivers[out.ID] = out
		return nil
	})
	if err != nil || !found {
		return model.Driver{}, false, err
	}
	return out, true, nil
}

func (r *DriverRepository) ClaimByID(ctx context.Context, driverID int64, now time.Time) (bool, error) {
	var done bool
	err := r.s.run(r.inTx, func(t *tables) error {
		d, ok := t.drivers[driverID]
		if !ok || d.Status != model.DriverStatusAvailable {
			return nil
		}
		d.Status = model.DriverStatusBusy
		d.LastAssignedAt = &now
		d.UpdatedAt = now
		t.drivers[driverID] = d
		done = true
		return nil
	})
	return done, err
}

func (r *DriverRepository) Release(ctx context.Context, driverID int64) (bool, error) {
	return r.flip(driverID, model.DriverStatusBusy, model.DriverStatusAvailable)
}

func (r *DriverRepository) SetAvailability(ctx context.Context, driverID int64, status model.DriverStatus) (bool, error) {
	var done bool
	err := r.s.run(r.inTx, func(t *tables) error {
		d, ok := t.drivers[driverID]
		if !ok || d.Status == model.DriverStatusBusy {
			return nil
		}
		d.Status = status
		d.UpdatedAt = r.s.now()
		t.drivers[driverID] = d
		done = true
		return nil
	})
	return done, err
}

func (r *DriverRepository) flip(driverID int64, from model.DriverStatus, to model.DriverStatus) (bool, error) {
	var done bool
	err := r.s.run(r.inTx, func(t *tables) error {
		d, ok := t.drivers[driverID]
		if !ok || d.Status != from {
			return nil
		}
		d.Status = to
		d.UpdatedAt = r.s.now()
		t.drivers[driverID] = d
		done = true
		return nil
	})
	return done, err
}
