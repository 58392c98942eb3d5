package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/logging"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// DriverUsecase は配達員の登録・稼働切替・注文への割り当て。
type DriverUsecase struct {
	tx      repo.TransactionManager
	drivers repo.DriverRepository
	orders  repo.OrderRepository
	items   repo.OrderItemRepository
	events  EventPublisher
	now     Clock
}

func NewDriverUsecase(
	tx repo.TransactionManager,
	drivers repo.DriverRepository,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	events EventPublisher,
	now Clock,
) *DriverUsecase {
	if events == nil {
		events = NopPublisher{}
	}
	return &DriverUsecase{tx: tx, drivers: drivers, orders: orders, items: items, events: events, now: now}
}

type CreateDriverInput struct {
	AccountID int64
	Name      string
	Phone     string
}

type AssignDriverInput struct {
	// nilならプールから自動で選ぶ
	DriverID *int64
}

func (u *DriverUsecase) List(ctx context.Context, status string) ([]model.Driver, error) {
	var filter *model.DriverStatus
	if status != "" {
		s := model.DriverStatus(status)
		switch s {
		case model.DriverStatusAvailable, model.DriverStatusBusy, model.DriverStatusOffline:
		default:
			return []model.Driver{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		filter = &s
	}

	drivers, err := u.drivers.List(ctx, filter)
	if err != nil {
		return []model.Driver{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return drivers, nil
}

func (u *DriverUsecase) Create(ctx context.Context, in CreateDriverInput) (model.Driver, error) {
	if in.AccountID <= 0 {
		return model.Driver{}, newValidationError("account_id", "invalid")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return model.Driver{}, newValidationError("name", "is required")
	}

	d, err := u.drivers.Create(ctx, model.Driver{
		AccountID: in.AccountID,
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Status:    model.DriverStatusOffline,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Driver{}, NewHTTPError(http.StatusConflict, "driver already registered for this account")
	}
	if err != nil {
		return model.Driver{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return d, nil
}

func (u *DriverUsecase) me(ctx context.Context, accountID int64) (model.Driver, error) {
	if accountID <= 0 {
		return model.Driver{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	d, err := u.drivers.FindByAccountID(ctx, accountID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Driver{}, NewHTTPError(http.StatusForbidden, "not a registered driver")
	}
	if err != nil {
		return model.Driver{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return d, nil
}

func (u *DriverUsecase) Me(ctx context.Context, accountID int64) (model.Driver, error) {
	return u.me(ctx, accountID)
}

// SetMyAvailability はavailable/offlineの切り替え（配達中は変えられない）
func (u *DriverUsecase) SetMyAvailability(ctx context.Context, accountID int64, status string) (model.Driver, error) {
	s := model.DriverStatus(strings.ToLower(strings.TrimSpace(status)))
	if s != model.DriverStatusAvailable && s != model.DriverStatusOffline {
		return model.Driver{}, newValidationError("status", "must be available or offline")
	}
	d, err := u.me(ctx, accountID)
	if err != nil {
		return model.Driver{}, err
	}
	if d.Status == s {
		return d, nil
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Drivers().SetAvailability(ctx, d.ID, s)
		if err != nil {
			return fmt.Errorf("set availability: %w", err)
		}
		if !ok {
			return NewHTTPError(http.StatusConflict, "driver is busy with an active order")
		}
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  accountID,
			Action:       model.AuditActionSetAvailability,
			ResourceType: model.AuditResourceDriver,
			ResourceID:   d.ID,
			BeforeJSON:   toJSON(map[string]any{"status": d.Status}),
			AfterJSON:    toJSON(map[string]any{"status": s}),
			CreatedAt:    u.now(),
		}); err != nil {
			return fmt.Errorf("create audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return model.Driver{}, err
		}
		logging.FromContext(ctx).Error("set availability failed", zap.Int64("driver_id", d.ID), zap.Error(err))
		return model.Driver{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	d.Status = s
	return d, nil
}

// ListMyOrders は自分に割り当てられた注文
func (u *DriverUsecase) ListMyOrders(ctx context.Context, accountID int64, activeOnly bool) ([]OrderOutput, error) {
	d, err := u.me(ctx, accountID)
	if err != nil {
		return []OrderOutput{}, err
	}
	orders, err := u.orders.ListByDriverID(ctx, d.ID, activeOnly)
	if err != nil {
		return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return withItems(ctx, u.items, orders)
}

// AssignDriver は管理者による割り当て・付け替え。
// 前の配達員を先に解放してから新しい配達員を確保する。
func (u *DriverUsecase) AssignDriver(ctx context.Context, actor Actor, orderID int64, in AssignDriverInput) (OrderOutput, error) {
	if actor.AccountID <= 0 || actor.Role != model.RoleAdmin {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.DriverID != nil && *in.DriverID <= 0 {
		return OrderOutput{}, newValidationError("driver_id", "invalid")
	}

	var (
		order    model.Order
		released *int64
		assigned int64
		noop     bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o.Status.IsTerminal() {
			return NewHTTPError(http.StatusConflict, "order is already "+string(o.Status))
		}
		if in.DriverID != nil && o.DriverID != nil && *o.DriverID == *in.DriverID {
			order = o
			noop = true
			return nil
		}

		var previous *int64
		if o.DriverID != nil {
			previous = o.DriverID
			released, err = releaseIfIdle(ctx, r, *o.DriverID, o.ID)
			if err != nil {
				return err
			}
		}

		now := u.now()
		if in.DriverID != nil {
			ok, err := r.Drivers().ClaimByID(ctx, *in.DriverID, now)
			if err != nil {
				return fmt.Errorf("claim driver: %w", err)
			}
			if !ok {
				if _, err := r.Drivers().FindByID(ctx, *in.DriverID); errors.Is(err, repo.ErrNotFound) {
					return NewHTTPError(http.StatusNotFound, "driver not found")
				}
				return NewHTTPError(http.StatusConflict, "driver is not available")
			}
			assigned = *in.DriverID
		} else {
			d, ok, err := r.Drivers().ClaimAvailable(ctx, now)
			if err != nil {
				return fmt.Errorf("claim driver: %w", err)
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, "no driver available")
			}
			assigned = d.ID
		}

		if err := r.Orders().SetDriver(ctx, o.ID, &assigned); err != nil {
			return fmt.Errorf("set driver: %w", err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.AccountID,
			Action:       model.AuditActionAssignDriver,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   toJSON(map[string]any{"driver_id": previous}),
			AfterJSON:    toJSON(map[string]any{"driver_id": assigned}),
			CreatedAt:    time.Now(),
		}); err != nil {
			return fmt.Errorf("create audit log: %w", err)
		}

		o.DriverID = &assigned
		order = o
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return OrderOutput{}, err
		}
		logging.FromContext(ctx).Error("assign driver failed", zap.Int64("order_id", orderID), zap.Error(err))
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !noop {
		if released != nil {
			u.events.Publish(ctx, Event{Type: EventDriverReleased, OrderID: order.ID, DriverID: *released})
		}
		u.events.Publish(ctx, Event{Type: EventDriverAssigned, OrderID: order.ID, DriverID: assigned})
	}

	items, err := u.items.ListByOrderID(ctx, order.ID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutput(order, items), nil
}
