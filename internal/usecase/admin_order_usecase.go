package usecase

import (
	"context"
	"encoding/json"
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

// Actor は操作したユーザー（JWTのsubとrole）
type Actor struct {
	AccountID int64
	Role      model.Role
}

type AdminOrderUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	items   repo.OrderItemRepository
	drivers repo.DriverRepository
	audits  repo.AuditLogRepository
	events  EventPublisher
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	drivers repo.DriverRepository,
	audits repo.AuditLogRepository,
	events EventPublisher,
) *AdminOrderUsecase {
	if events == nil {
		events = NopPublisher{}
	}
	return &AdminOrderUsecase{tx: tx, orders: orders, items: items, drivers: drivers, audits: audits, events: events}
}

type UpdateOrderStatusInput struct {
	Status string
}

type AdminOrderDetail struct {
	Order       OrderOutput      `json:"order"`
	AllowedNext []string         `json:"allowed_next"`
	History     []model.AuditLog `json:"history"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	outs, err := withItems(ctx, u.items, orders)
	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Items: outs, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (AdminOrderDetail, error) {
	if orderID <= 0 {
		return AdminOrderDetail{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return AdminOrderDetail{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return AdminOrderDetail{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return AdminOrderDetail{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	resource := model.AuditResourceOrder
	history, err := u.audits.List(ctx, repo.AuditLogFilter{ResourceType: &resource, ResourceID: &orderID})
	if err != nil {
		return AdminOrderDetail{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return AdminOrderDetail{
		Order:       toOrderOutput(o, items),
		AllowedNext: statusStrings(o.Status.AllowedNext()),
		History:     history,
	}, nil
}

// 状態遷移の結果（commit後のイベント用）
type transitionResult struct {
	order          model.Order
	from           model.OrderStatus
	releasedDriver *int64
}

// UpdateStatus は状態遷移表とロールに従ってステータスを変える。
// 配達員は自分に割り当てられた注文の配送系の遷移だけ行える。
// cancelledなら在庫と配送枠を戻し、delivered/cancelledなら配達員を解放する。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actor Actor, orderID int64, in UpdateOrderStatusInput) (OrderOutput, error) {
	if actor.AccountID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	to := model.OrderStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !to.Valid() {
		return OrderOutput{}, newValidationError("status", "unknown status")
	}

	var actingDriverID int64
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleDriver:
		d, err := u.drivers.FindByAccountID(ctx, actor.AccountID)
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, NewHTTPError(http.StatusForbidden, "not a registered driver")
		}
		if err != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		actingDriverID = d.ID
	default:
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	var res transitionResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if actor.Role == model.RoleDriver && (o.DriverID == nil || *o.DriverID != actingDriverID) {
			return NewHTTPError(http.StatusForbidden, "order is not assigned to you")
		}

		if !o.Status.CanTransitionAs(actor.Role, to) {
			return &TransitionNotAllowedError{Current: o.Status, Requested: to, Allowed: o.Status.AllowedNextFor(actor.Role)}
		}

		// 読んだ時点の状態のときだけ更新（同時更新は負けた側が409）
		ok, err := r.Orders().UpdateStatus(ctx, orderID, o.Status, to)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			latest, err := r.Orders().FindByID(ctx, orderID)
			if err != nil {
				return fmt.Errorf("find order: %w", err)
			}
			return &TransitionNotAllowedError{Current: latest.Status, Requested: to, Allowed: latest.Status.AllowedNextFor(actor.Role)}
		}

		if to == model.OrderStatusCancelled {
			if err := u.restock(ctx, r, actor, o); err != nil {
				return err
			}
		}

		var released *int64
		if to.IsTerminal() && o.DriverID != nil {
			released, err = releaseIfIdle(ctx, r, *o.DriverID, o.ID)
			if err != nil {
				return err
			}
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.AccountID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   toJSON(map[string]any{"status": o.Status}),
			AfterJSON:    toJSON(map[string]any{"status": to, "role": actor.Role}),
			CreatedAt:    time.Now(),
		}); err != nil {
			return fmt.Errorf("create audit log: %w", err)
		}

		res = transitionResult{from: o.Status, releasedDriver: released}
		o.Status = to
		res.order = o
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return OrderOutput{}, err
		}
		var te *TransitionNotAllowedError
		if errors.As(err, &te) {
			return OrderOutput{}, err
		}
		logging.FromContext(ctx).Error("update order status failed", zap.Int64("order_id", orderID), zap.Error(err))
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.publishTransition(ctx, res)

	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutput(res.order, items), nil
}

// キャンセル時の在庫戻しと配送枠の返却
func (u *AdminOrderUsecase) restock(ctx context.Context, r repo.TxRepos, actor Actor, o model.Order) error {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	for _, it := range items {
		ref := model.VariantRef{ProductID: it.ProductID, Size: it.Size, Weight: it.Weight}
		if err := r.Inventory().IncreaseStock(ctx, ref, it.Quantity); err != nil {
			// 商品が削除済みなら戻し先がない
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return fmt.Errorf("increase stock: %w", err)
		}
		orderID := o.ID
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   it.ProductID,
			Size:        it.Size,
			Weight:      it.Weight,
			OrderID:     &orderID,
			ActorUserID: actor.AccountID,
			Delta:       it.Quantity,
			Reason:      "order cancelled",
		}); err != nil {
			return fmt.Errorf("create adjustment: %w", err)
		}
	}

	if o.DeliverySlotID != nil {
		if err := r.Slots().ReleaseSeat(ctx, *o.DeliverySlotID); err != nil {
			return fmt.Errorf("release seat: %w", err)
		}
	}

	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.AccountID,
		Action:       model.AuditActionRestock,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   o.ID,
		AfterJSON:    toJSON(map[string]any{"items": len(items)}),
		CreatedAt:    time.Now(),
	})
}

// 他に未完了の担当注文がなければ配達員をavailableへ戻す
func releaseIfIdle(ctx context.Context, r repo.TxRepos, driverID int64, exceptOrderID int64) (*int64, error) {
	n, err := r.Orders().CountActiveByDriver(ctx, driverID, exceptOrderID)
	if err != nil {
		return nil, fmt.Errorf("count active orders: %w", err)
	}
	if n > 0 {
		return nil, nil
	}
	ok, err := r.Drivers().Release(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("release driver: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &driverID, nil
}

func (u *AdminOrderUsecase) publishTransition(ctx context.Context, res transitionResult) {
	o := res.order
	u.events.Publish(ctx, Event{
		Type:    EventOrderStatusChanged,
		OrderID: o.ID,
		Detail:  string(res.from) + "->" + string(o.Status),
	})
	if o.Status == model.OrderStatusDelivered {
		u.events.Publish(ctx, Event{Type: EventOrderDelivered, OrderID: o.ID})
	}
	if res.releasedDriver != nil {
		u.events.Publish(ctx, Event{Type: EventDriverReleased, OrderID: o.ID, DriverID: *res.releasedDriver})
	}
}

func statusStrings(ss []model.OrderStatus) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// 期間パラメータ（RFC3339）。空ならnil
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
