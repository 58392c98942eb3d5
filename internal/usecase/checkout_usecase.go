package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	"storefront/internal/logging"
	repo "storefront/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CheckoutDeps struct {
	Tx       repo.TransactionManager
	Products repo.ProductRepository
	Carts    repo.CartStore
	Orders   repo.OrderRepository
	Items    repo.OrderItemRepository
	Intents  repo.CheckoutIntentRepository
	Delivery *DeliveryUsecase
	Gateway  PaymentGateway
	Events   EventPublisher
	Now      Clock
	// 無ければグローバルのプロバイダ
	TracerProvider trace.TracerProvider

	Currency            string
	DefaultDeliveryDays int
}

// CheckoutUsecase はカートから注文を確定する（代引き・前払い）。
// 在庫減算・配送枠・注文作成・配達員割り当ては1つのトランザクションで行う。
type CheckoutUsecase struct {
	tx       repo.TransactionManager
	products repo.ProductRepository
	carts    repo.CartStore
	orders   repo.OrderRepository
	items    repo.OrderItemRepository
	intents  repo.CheckoutIntentRepository
	delivery *DeliveryUsecase
	gateway  PaymentGateway
	events   EventPublisher
	now      Clock
	tracer   trace.Tracer

	currency     string
	deliveryDays int
}

func NewCheckoutUsecase(d CheckoutDeps) *CheckoutUsecase {
	events := d.Events
	if events == nil {
		events = NopPublisher{}
	}
	tp := d.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &CheckoutUsecase{
		tx:           d.Tx,
		products:     d.Products,
		carts:        d.Carts,
		orders:       d.Orders,
		items:        d.Items,
		intents:      d.Intents,
		delivery:     d.Delivery,
		gateway:      d.Gateway,
		events:       events,
		now:          d.Now,
		tracer:       tp.Tracer("storefront/checkout"),
		currency:     d.Currency,
		deliveryDays: d.DefaultDeliveryDays,
	}
}

type CustomerInput struct {
	Name       string
	Phone      string
	Email      string
	Address    string
	City       string
	PostalCode string
}

type CheckoutInput struct {
	Customer       CustomerInput
	DeliverySlotID *int64
	// 代引きの二重送信防止（任意）
	IdempotencyKey string
}

type CheckoutResult struct {
	Order OrderOutput `json:"order"`
	// 既存の注文を返した場合true
	Duplicate bool `json:"duplicate"`
}

type PaymentIntentOutput struct {
	ExternalOrderID string `json:"external_order_id"`
	ClientSecret    string `json:"client_secret"`
	Subtotal        int64  `json:"subtotal"`
	DeliveryFee     int64  `json:"delivery_fee"`
	IsFreeDelivery  bool   `json:"is_free_delivery"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// 決済ゲートウェイからのコールバック
type PaymentCallback struct {
	ExternalOrderID string
	PaymentID       string
	Signature       string
}

func (c CustomerInput) normalize() (CustomerInput, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	c.PostalCode = strings.TrimSpace(c.PostalCode)

	if c.Name == "" || len(c.Name) > 255 {
		return CustomerInput{}, newValidationError("customer_name", "is required")
	}
	if c.Phone == "" || len(c.Phone) > 30 {
		return CustomerInput{}, newValidationError("customer_phone", "is required")
	}
	if c.Address == "" || len(c.Address) > 500 {
		return CustomerInput{}, newValidationError("address", "is required")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return CustomerInput{}, newValidationError("customer_email", "is malformed")
		}
	}
	return c, nil
}

// 確定前に組み立てた内容
type checkoutPlan struct {
	cartKey   string
	accountID *int64
	lines     []pricedLine
	quote     pricing.Quote
	slotID    *int64
}

// カート読み直し→在庫の事前チェック→料金計算→（必要なら）配送枠チェック。
// ここまでは何も書き込まない。
func (u *CheckoutUsecase) prepare(ctx context.Context, cartKey string, slotID *int64, validateSlot bool) (checkoutPlan, error) {
	cart, err := u.carts.Get(ctx, cartKey)
	if err != nil {
		return checkoutPlan{}, fmt.Errorf("get cart: %w", err)
	}
	if cart.IsEmpty() {
		return checkoutPlan{}, newValidationError("cart", "cart is empty")
	}

	lines, err := hydrateLines(ctx, u.products, cart.Lines)
	if err != nil {
		return checkoutPlan{}, err
	}
	if err := checkStock(lines); err != nil {
		u.publishStockInsufficient(ctx, err)
		return checkoutPlan{}, err
	}

	quote, err := u.delivery.Quote(ctx, subtotalOf(lines))
	if err != nil {
		return checkoutPlan{}, err
	}

	if slotID != nil && validateSlot {
		if _, err := u.delivery.ValidateSlot(ctx, *slotID); err != nil {
			return checkoutPlan{}, err
		}
	}

	return checkoutPlan{
		cartKey:   cartKey,
		accountID: cart.AccountID,
		lines:     lines,
		quote:     quote,
		slotID:    slotID,
	}, nil
}

// PlaceCODOrder は代引き注文をその場で確定する。
func (u *CheckoutUsecase) PlaceCODOrder(ctx context.Context, owner CartOwner, in CheckoutInput) (CheckoutResult, error) {
	ctx, span := u.tracer.Start(ctx, "checkout.cod")
	defer span.End()

	customer, err := in.Customer.normalize()
	if err != nil {
		return CheckoutResult{}, err
	}
	cartKey, err := owner.Key()
	if err != nil {
		return CheckoutResult{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return CheckoutResult{}, newValidationError("idempotency_key", "too long")
	}

	// 同じキーなら同じ結果
	if key != "" {
		if res, found, err := u.existingByIdempotencyKey(ctx, cartKey, key); err != nil || found {
			return res, err
		}
	}

	plan, err := u.prepare(ctx, cartKey, in.DeliverySlotID, true)
	if err != nil {
		return CheckoutResult{}, err
	}

	order := newOrder(customer, owner.AccountID, plan, model.PaymentMethodCOD)
	if key != "" {
		order.IdempotencyKey = &key
	}

	res, err := u.finalize(ctx, plan, order)
	if err != nil && key != "" {
		// 同じキーの送信が先に確定していればその注文を返す
		existing, found, lookupErr := u.existingByIdempotencyKey(ctx, cartKey, key)
		if lookupErr == nil && found {
			return existing, nil
		}
	}
	if err != nil {
		return CheckoutResult{}, u.finalizeError(ctx, span, err)
	}
	return res, nil
}

// CreatePaymentIntent は在庫と配送枠を先にチェックしてから決済を開始する。
func (u *CheckoutUsecase) CreatePaymentIntent(ctx context.Context, owner CartOwner, in CheckoutInput) (PaymentIntentOutput, error) {
	ctx, span := u.tracer.Start(ctx, "checkout.create_intent")
	defer span.End()

	customer, err := in.Customer.normalize()
	if err != nil {
		return PaymentIntentOutput{}, err
	}
	cartKey, err := owner.Key()
	if err != nil {
		return PaymentIntentOutput{}, err
	}

	plan, err := u.prepare(ctx, cartKey, in.DeliverySlotID, true)
	if err != nil {
		return PaymentIntentOutput{}, err
	}
	if plan.quote.Total <= 0 {
		return PaymentIntentOutput{}, newValidationError("cart", "order total must be positive")
	}

	intent, err := u.gateway.CreateIntent(ctx, IntentRequest{
		Amount:   plan.quote.Total,
		Currency: u.currency,
		Metadata: map[string]string{"cart_key": cartKey},
	})
	if err != nil {
		logging.FromContext(ctx).Error("create payment intent failed", zap.Error(err))
		span.RecordError(err)
		return PaymentIntentOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	}

	accountID := owner.AccountID
	if accountID == nil {
		accountID = plan.accountID
	}
	if _, err := u.intents.Create(ctx, model.CheckoutIntent{
		ExternalOrderID: intent.ExternalOrderID,
		CartKey:         cartKey,
		AccountID:       accountID,
		CustomerName:    customer.Name,
		CustomerPhone:   customer.Phone,
		CustomerEmail:   customer.Email,
		Address:         customer.Address,
		City:            customer.City,
		PostalCode:      customer.PostalCode,
		DeliverySlotID:  in.DeliverySlotID,
		Amount:          plan.quote.Total,
		Currency:        u.currency,
	}); err != nil {
		return PaymentIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	span.SetAttributes(attribute.String("payment.external_order_id", intent.ExternalOrderID))
	return PaymentIntentOutput{
		ExternalOrderID: intent.ExternalOrderID,
		ClientSecret:    intent.ClientSecret,
		Subtotal:        plan.quote.Subtotal,
		DeliveryFee:     plan.quote.Fee,
		IsFreeDelivery:  plan.quote.IsFreeDelivery,
		Amount:          plan.quote.Total,
		Currency:        u.currency,
	}, nil
}

// ConfirmPayment は決済完了コールバックで注文を確定する。
// 何度届いても注文は1つだけ作る。
func (u *CheckoutUsecase) ConfirmPayment(ctx context.Context, cb PaymentCallback) (CheckoutResult, error) {
	ctx, span := u.tracer.Start(ctx, "checkout.confirm_payment",
		trace.WithAttributes(attribute.String("payment.external_order_id", cb.ExternalOrderID)))
	defer span.End()

	log := logging.FromContext(ctx).With(
		zap.String("external_order_id", cb.ExternalOrderID),
		zap.String("payment_id", cb.PaymentID),
	)

	//署名不一致なら何も変更しない
	if !u.gateway.VerifyCallback(cb.ExternalOrderID, cb.PaymentID, cb.Signature) {
		log.Warn("payment callback signature mismatch")
		span.SetStatus(codes.Error, "signature mismatch")
		return CheckoutResult{}, ErrPaymentVerificationFailed
	}

	if res, found, err := u.existingByPaymentRef(ctx, cb); err != nil || found {
		return res, err
	}

	intent, err := u.intents.FindByExternalOrderID(ctx, cb.ExternalOrderID)
	if errors.Is(err, repo.ErrNotFound) {
		return CheckoutResult{}, NewHTTPError(http.StatusNotFound, "payment intent not found")
	}
	if err != nil {
		return CheckoutResult{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//カートも在庫も決済開始後に変わっている可能性がある。枠の満席は確定時に判定する
	plan, err := u.prepare(ctx, intent.CartKey, intent.DeliverySlotID, false)
	if err != nil {
		// 別のコールバックが先に確定してカートを消した場合
		if res, found, lookupErr := u.existingByPaymentRef(ctx, cb); lookupErr == nil && found {
			return res, nil
		}
		log.Error("paid order could not be prepared", zap.Error(err))
		return CheckoutResult{}, err
	}
	if plan.quote.Total != intent.Amount {
		log.Warn("paid amount differs from current total",
			zap.Int64("paid", intent.Amount), zap.Int64("total", plan.quote.Total))
	}

	customer := CustomerInput{
		Name:       intent.CustomerName,
		Phone:      intent.CustomerPhone,
		Email:      intent.CustomerEmail,
		Address:    intent.Address,
		City:       intent.City,
		PostalCode: intent.PostalCode,
	}
	order := newOrder(customer, intent.AccountID, plan, model.PaymentMethodPrepaid)
	ext := cb.ExternalOrderID
	pay := cb.PaymentID
	order.ExternalOrderID = &ext
	order.PaymentID = &pay

	res, err := u.finalize(ctx, plan, order)
	if err != nil {
		//同時に届いた重複コールバック。先に確定した注文を返す
		existing, found, lookupErr := u.existingByPaymentRef(ctx, cb)
		if lookupErr == nil && found {
			return existing, nil
		}
	}
	if err != nil {
		return CheckoutResult{}, u.finalizeError(ctx, span, err)
	}
	return res, nil
}

func newOrder(c CustomerInput, accountID *int64, plan checkoutPlan, method model.PaymentMethod) model.Order {
	return model.Order{
		AccountID:     accountID,
		CustomerName:  c.Name,
		CustomerPhone: c.Phone,
		CustomerEmail: c.Email,
		Address:       c.Address,
		City:          c.City,
		PostalCode:    c.PostalCode,
		Subtotal:      plan.quote.Subtotal,
		DeliveryFee:   plan.quote.Fee,
		Total:         plan.quote.Total,
		PaymentMethod: method,
		Status:        model.OrderStatusConfirmed,
		OwnerKey:      plan.cartKey,
	}
}

// finalize は在庫減算・枠確保・注文作成・配達員確保を1トランザクションで行う。
// 枠と配達員が取れなくても注文は作る。在庫不足なら全て戻す。
func (u *CheckoutUsecase) finalize(ctx context.Context, plan checkoutPlan, order model.Order) (CheckoutResult, error) {
	ctx, span := u.tracer.Start(ctx, "checkout.finalize")
	defer span.End()

	started := u.now()
	today := model.DateOf(started)

	var (
		items    = toOrderItems(plan.lines)
		slotFull bool
		driverID *int64
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		slotFull = false
		driverID = nil
		order.DeliverySlotID = nil
		order.DriverID = nil

		if err := decrementStock(ctx, r.Inventory(), plan.lines); err != nil {
			return err
		}

		// 事前チェックの結果は使わず、ここで改めて席を取る
		if plan.slotID != nil {
			ok, err := r.Slots().ClaimSeat(ctx, *plan.slotID, today)
			if err != nil {
				return fmt.Errorf("claim seat: %w", err)
			}
			if ok {
				slot, err := r.Slots().FindByID(ctx, *plan.slotID)
				if err != nil {
					return fmt.Errorf("find slot: %w", err)
				}
				order.DeliverySlotID = &slot.ID
				order.EstimatedDeliveryDate = model.DateOf(slot.Date)
			} else {
				slotFull = true
			}
		}
		if order.DeliverySlotID == nil {
			order.EstimatedDeliveryDate = today.AddDate(0, 0, u.deliveryDays)
		}

		d, ok, err := r.Drivers().ClaimAvailable(ctx, started)
		if err != nil {
			return fmt.Errorf("claim driver: %w", err)
		}
		if ok {
			driverID = &d.ID
			order.DriverID = &d.ID
		}

		id, err := r.Orders().Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		order.ID = id

		if err := r.OrderItems().CreateBulk(ctx, id, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		return nil
	})

	elapsed := u.now().Sub(started)
	if err != nil {
		u.events.ObserveFinalize(order.PaymentMethod, finalizeOutcome(err), elapsed)
		return CheckoutResult{}, err
	}
	u.events.ObserveFinalize(order.PaymentMethod, "created", elapsed)

	log := logging.FromContext(ctx).With(zap.Int64("order_id", order.ID))
	span.SetAttributes(attribute.Int64("order.id", order.ID))

	//カート削除はcommit後（失敗しても注文は有効）
	if err := u.carts.Delete(ctx, plan.cartKey); err != nil {
		log.Warn("clear cart failed", zap.String("cart_key", plan.cartKey), zap.Error(err))
	}

	if slotFull {
		log.Info("delivery slot full at finalize, using default eta", zap.Int64("slot_id", *plan.slotID))
		u.events.Publish(ctx, Event{Type: EventSlotFull, OrderID: order.ID, SlotID: *plan.slotID})
	}
	if driverID != nil {
		u.events.Publish(ctx, Event{Type: EventDriverAssigned, OrderID: order.ID, DriverID: *driverID})
	} else {
		log.Info("no driver available, order left unassigned")
		u.events.Publish(ctx, Event{Type: EventDriverUnavailable, OrderID: order.ID})
	}
	u.events.Publish(ctx, Event{
		Type:    EventOrderCreated,
		OrderID: order.ID,
		Detail:  string(order.PaymentMethod) + " total=" + strconv.FormatInt(order.Total, 10),
	})

	createdItems, err := u.items.ListByOrderID(ctx, order.ID)
	if err != nil {
		createdItems = items
	}
	order.CreatedAt = started
	return CheckoutResult{Order: toOrderOutput(order, createdItems)}, nil
}

func finalizeOutcome(err error) string {
	var se *InsufficientStockError
	switch {
	case errors.As(err, &se):
		return "insufficient_stock"
	case errors.Is(err, repo.ErrDuplicate):
		return "duplicate"
	default:
		return "error"
	}
}

// 在庫不足はそのまま返し、それ以外は詳細を伏せる
func (u *CheckoutUsecase) finalizeError(ctx context.Context, span trace.Span, err error) error {
	var se *InsufficientStockError
	if errors.As(err, &se) {
		u.publishStockInsufficient(ctx, err)
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "finalize failed")
	logging.FromContext(ctx).Error("finalize order failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrOrderNotCompleted, err)
}

func (u *CheckoutUsecase) publishStockInsufficient(ctx context.Context, err error) {
	var se *InsufficientStockError
	if !errors.As(err, &se) {
		return
	}
	u.events.Publish(ctx, Event{
		Type:      EventStockInsufficient,
		ProductID: se.ProductID,
		Detail:    se.Error(),
	})
}

func (u *CheckoutUsecase) existingByIdempotencyKey(ctx context.Context, ownerKey string, key string) (CheckoutResult, bool, error) {
	o, found, err := u.orders.FindByIdempotencyKey(ctx, ownerKey, key)
	if err != nil {
		return CheckoutResult{}, false, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !found {
		return CheckoutResult{}, false, nil
	}
	return u.duplicateResult(ctx, o, model.PaymentMethodCOD)
}

func (u *CheckoutUsecase) existingByPaymentRef(ctx context.Context, cb PaymentCallback) (CheckoutResult, bool, error) {
	o, found, err := u.orders.FindByPaymentRef(ctx, cb.ExternalOrderID, cb.PaymentID)
	if err != nil {
		return CheckoutResult{}, false, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !found {
		return CheckoutResult{}, false, nil
	}
	return u.duplicateResult(ctx, o, model.PaymentMethodPrepaid)
}

func (u *CheckoutUsecase) duplicateResult(ctx context.Context, o model.Order, method model.PaymentMethod) (CheckoutResult, bool, error) {
	items, err := u.items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return CheckoutResult{}, false, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	u.events.ObserveFinalize(method, "duplicate", time.Duration(0))
	logging.FromContext(ctx).Info("duplicate finalize, returning existing order", zap.Int64("order_id", o.ID))
	return CheckoutResult{Order: toOrderOutput(o, items), Duplicate: true}, true, nil
}
