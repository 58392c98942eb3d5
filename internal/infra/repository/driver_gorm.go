package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DriverGormRepository struct {
	db *gorm.DB
}

func NewDriverGormRepository(db *gorm.DB) *DriverGormRepository {
	return &DriverGormRepository{db: db}
}

// 確保の再試行回数（ロック外で呼ばれたときの保険）
const claimAttempts = 3

func (r *DriverGormRepository) FindByID(ctx context.Context, driverID int64) (model.Driver, error) {
	var d model.Driver
	err := r.db.WithContext(ctx).First(&d, driverID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Driver{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Driver{}, err
	}
	return d, nil
}

func (r *DriverGormRepository) FindByAccountID(ctx context.Context, accountID int64) (model.Driver, error) {
	var d model.Driver
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Driver{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Driver{}, err
	}
	return d, nil
}

func (r *DriverGormRepository) List(ctx context.Context, status *model.DriverStatus) ([]model.Driver, error) {
	q := r.db.WithContext(ctx)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var out []model.Driver
	if err := q.Order("id asc").Find(&out).Error; err != nil {
		return []model.Driver{}, err
	}
	return out, nil
}

func (r *DriverGormRepository) Create(ctx context.Context, d model.Driver) (model.Driver, error) {
	if d.Status == "" {
		d.Status = model.DriverStatusOffline
	}
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Driver{}, repo.ErrDuplicate
		}
		return model.Driver{}, err
	}
	return d, nil
}

// SELECT ... FOR UPDATE SKIP LOCKED で1人だけ確保する。
// 他のチェックアウトがロック中の行は待たずに次の候補へ進む。
func (r *DriverGormRepository) ClaimAvailable(ctx context.Context, now time.Time) (model.Driver, bool, error) {
	for i := 0; i < claimAttempts; i++ {
		var d model.Driver
		res := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", model.DriverStatusAvailable).
			Order("last_assigned_at ASC NULLS FIRST").
			Order("id ASC").
			Limit(1).
			Find(&d)
		if res.Error != nil {
			return model.Driver{}, false, res.Error
		}
		if res.RowsAffected == 0 {
			return model.Driver{}, false, nil
		}

		ok, err := r.ClaimByID(ctx, d.ID, now)
		if err != nil {
			return model.Driver{}, false, err
		}
		if ok {
			d.Status = model.DriverStatusBusy
			d.LastAssignedAt = &now
			return d, true, nil
		}
	}
	return model.Driver{}, false, nil
}

func (r *DriverGormRepository) ClaimByID(ctx context.Context, driverID int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Driver{}).
		Where("id = ? AND status = ?", driverID, model.DriverStatusAvailable).
		Updates(map[string]interface{}{
			"status":           model.DriverStatusBusy,
			"last_assigned_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// busyのときだけ戻す（既にavailable・存在しないなら何もしない）
func (r *DriverGormRepository) Release(ctx context.Context, driverID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Driver{}).
		Where("id = ? AND status = ?", driverID, model.DriverStatusBusy).
		Update("status", model.DriverStatusAvailable)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *DriverGormRepository) SetAvailability(ctx context.Context, driverID int64, status model.DriverStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Driver{}).
		Where("id = ? AND status <> ?", driverID, model.DriverStatusBusy).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
