package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type DeliveryRuleGormRepository struct {
	db *gorm.DB
}

func NewDeliveryRuleGormRepository(db *gorm.DB) *DeliveryRuleGormRepository {
	return &DeliveryRuleGormRepository{db: db}
}

func (r *DeliveryRuleGormRepository) ListActive(ctx context.Context) ([]model.DeliveryRule, error) {
	var rules []model.DeliveryRule
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("min_order_amount asc, id asc").
		Find(&rules).Error; err != nil {
		return []model.DeliveryRule{}, err
	}
	return rules, nil
}

func (r *DeliveryRuleGormRepository) Create(ctx context.Context, rule model.DeliveryRule) (model.DeliveryRule, error) {
	if err := r.db.WithContext(ctx).Create(&rule).Error; err != nil {
		return model.DeliveryRule{}, err
	}
	return rule, nil
}

type DeliverySlotGormRepository struct {
	db *gorm.DB
}

func NewDeliverySlotGormRepository(db *gorm.DB) *DeliverySlotGormRepository {
	return &DeliverySlotGormRepository{db: db}
}

// 満席でない条件
const slotHasSeat = "(max_orders IS NULL OR booked_count < max_orders)"

func (r *DeliverySlotGormRepository) FindByID(ctx context.Context, slotID int64) (model.DeliverySlot, error) {
	var s model.DeliverySlot
	err := r.db.WithContext(ctx).First(&s, slotID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DeliverySlot{}, repo.ErrNotFound
	}
	if err != nil {
		return model.DeliverySlot{}, err
	}
	return s, nil
}

func (r *DeliverySlotGormRepository) ListAvailable(ctx context.Context, from time.Time, to time.Time) ([]model.DeliverySlot, error) {
	var slots []model.DeliverySlot
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("date >= ? AND date <= ?", dateParam(from), dateParam(to)).
		Where(slotHasSeat).
		Order("date asc, start_time asc, id asc").
		Find(&slots).Error
	if err != nil {
		return []model.DeliverySlot{}, err
	}
	return slots, nil
}

func (r *DeliverySlotGormRepository) Create(ctx context.Context, slot model.DeliverySlot) (model.DeliverySlot, error) {
	slot.Date = model.DateOf(slot.Date)
	if err := r.db.WithContext(ctx).Create(&slot).Error; err != nil {
		return model.DeliverySlot{}, err
	}
	return slot, nil
}

// 空きがあるときだけ1席確保（確認時の結果は信用せずここで再判定）
func (r *DeliverySlotGormRepository) ClaimSeat(ctx context.Context, slotID int64, today time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.DeliverySlot{}).
		Where("id = ? AND is_active = ? AND date >= ?", slotID, true, dateParam(today)).
		Where(slotHasSeat).
		Update("booked_count", gorm.Expr("booked_count + 1"))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *DeliverySlotGormRepository) ReleaseSeat(ctx context.Context, slotID int64) error {
	res := r.db.WithContext(ctx).Model(&model.DeliverySlot{}).
		Where("id = ? AND booked_count > 0", slotID).
		Update("booked_count", gorm.Expr("booked_count - 1"))
	return res.Error
}
