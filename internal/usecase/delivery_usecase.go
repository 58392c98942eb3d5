package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	repo "storefront/internal/repository"
)

// DeliveryUsecase は配送料の計算と配送枠の一覧・事前チェック。
type DeliveryUsecase struct {
	rules      repo.DeliveryRuleRepository
	slots      repo.DeliverySlotRepository
	windowDays int
	now        Clock
}

func NewDeliveryUsecase(rules repo.DeliveryRuleRepository, slots repo.DeliverySlotRepository, windowDays int, now Clock) *DeliveryUsecase {
	return &DeliveryUsecase{rules: rules, slots: slots, windowDays: windowDays, now: now}
}

// Quote は現在有効なルールで配送料を計算する（毎回読み直す）。
func (u *DeliveryUsecase) Quote(ctx context.Context, subtotal int64) (pricing.Quote, error) {
	rules, err := u.rules.ListActive(ctx)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("list delivery rules: %w", err)
	}
	return pricing.PriceFor(rules, subtotal), nil
}

func (u *DeliveryUsecase) ListRules(ctx context.Context) ([]model.DeliveryRule, error) {
	rules, err := u.rules.ListActive(ctx)
	if err != nil {
		return []model.DeliveryRule{}, fmt.Errorf("list delivery rules: %w", err)
	}
	return rules, nil
}

// ListAvailableSlots はfromからwindowDays日分の予約可能な枠。
// 過去日は指定されても今日からにする。
func (u *DeliveryUsecase) ListAvailableSlots(ctx context.Context, from *time.Time, windowDays int) ([]model.DeliverySlot, error) {
	today := model.DateOf(u.now())
	start := today
	if from != nil && model.DateOf(*from).After(today) {
		start = model.DateOf(*from)
	}
	if windowDays <= 0 {
		windowDays = u.windowDays
	}
	if windowDays > 60 {
		return []model.DeliverySlot{}, newValidationError("days", "must be <= 60")
	}

	end := start.AddDate(0, 0, windowDays-1)
	slots, err := u.slots.ListAvailable(ctx, start, end)
	if err != nil {
		return []model.DeliverySlot{}, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// ValidateSlot は決済前の事前チェック（席は確保しない）。
func (u *DeliveryUsecase) ValidateSlot(ctx context.Context, slotID int64) (model.DeliverySlot, error) {
	if slotID <= 0 {
		return model.DeliverySlot{}, newValidationError("delivery_slot_id", "invalid")
	}
	s, err := u.slots.FindByID(ctx, slotID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.DeliverySlot{}, &SlotUnavailableError{SlotID: slotID, Reason: "slot not found"}
	}
	if err != nil {
		return model.DeliverySlot{}, fmt.Errorf("find slot: %w", err)
	}
	if reason := s.UnavailableReason(u.now()); reason != "" {
		return model.DeliverySlot{}, &SlotUnavailableError{SlotID: slotID, Reason: reason}
	}
	return s, nil
}

type CreateDeliveryRuleInput struct {
	MinOrderAmount        int64
	DeliveryFee           int64
	FreeDeliveryThreshold *int64
}

func (u *DeliveryUsecase) CreateRule(ctx context.Context, in CreateDeliveryRuleInput) (model.DeliveryRule, error) {
	if in.MinOrderAmount < 0 {
		return model.DeliveryRule{}, newValidationError("min_order_amount", "must be >= 0")
	}
	if in.DeliveryFee < 0 {
		return model.DeliveryRule{}, newValidationError("delivery_fee", "must be >= 0")
	}
	if in.FreeDeliveryThreshold != nil && *in.FreeDeliveryThreshold < 0 {
		return model.DeliveryRule{}, newValidationError("free_delivery_threshold", "must be >= 0")
	}

	rule, err := u.rules.Create(ctx, model.DeliveryRule{
		MinOrderAmount:        in.MinOrderAmount,
		DeliveryFee:           in.DeliveryFee,
		FreeDeliveryThreshold: in.FreeDeliveryThreshold,
		IsActive:              true,
	})
	if err != nil {
		return model.DeliveryRule{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return rule, nil
}

type CreateDeliverySlotInput struct {
	Date      string // 2006-01-02
	StartTime string // HH:MM
	EndTime   string
	MaxOrders *int64
}

func (u *DeliveryUsecase) CreateSlot(ctx context.Context, in CreateDeliverySlotInput) (model.DeliverySlot, error) {
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return model.DeliverySlot{}, newValidationError("date", "must be YYYY-MM-DD")
	}
	if date.Before(model.DateOf(u.now())) {
		return model.DeliverySlot{}, newValidationError("date", "must not be in the past")
	}
	start, err := time.Parse("15:04", in.StartTime)
	if err != nil {
		return model.DeliverySlot{}, newValidationError("start_time", "must be HH:MM")
	}
	end, err := time.Parse("15:04", in.EndTime)
	if err != nil {
		return model.DeliverySlot{}, newValidationError("end_time", "must be HH:MM")
	}
	if !end.After(start) {
		return model.DeliverySlot{}, newValidationError("end_time", "must be after start_time")
	}
	if in.MaxOrders != nil && *in.MaxOrders < 1 {
		return model.DeliverySlot{}, newValidationError("max_orders", "must be >= 1")
	}

	slot, err := u.slots.Create(ctx, model.DeliverySlot{
		Date:      date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		MaxOrders: in.MaxOrders,
		IsActive:  true,
	})
	if err != nil {
		return model.DeliverySlot{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return slot, nil
}
