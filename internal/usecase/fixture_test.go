package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/memory"
	"storefront/internal/infra/payment"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

// recordingEvents は発行されたイベントを記録する。
type recordingEvents struct {
	mu       sync.Mutex
	events   []usecase.Event
	outcomes []string
}

func (r *recordingEvents) Publish(_ context.Context, e usecase.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEvents) ObserveFinalize(_ model.PaymentMethod, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingEvents) count(t usecase.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// fixture はメモリストアで組み立てた一式。
type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	carts    *memory.CartStore
	gateway  *payment.LocalGateway
	events   *recordingEvents
	delivery *usecase.DeliveryUsecase
	cart     *usecase.CartUsecase
	checkout *usecase.CheckoutUsecase
	orders   *usecase.OrderUsecase
	admin    *usecase.AdminOrderUsecase
	drivers  *usecase.DriverUsecase
}

func clock() time.Time { return fixedNow }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   memory.NewStore(),
		carts:   memory.NewCartStore(),
		gateway: payment.NewLocalGateway(testWebhookSecret),
		events:  &recordingEvents{},
	}
	f.delivery = usecase.NewDeliveryUsecase(f.store.DeliveryRules(), f.store.Slots(), 7, clock)
	f.cart = usecase.NewCartUsecase(f.carts, f.store.Products(), clock)
	f.checkout = f.checkoutWithTx(f.store)
	f.orders = usecase.NewOrderUsecase(f.store.Orders(), f.store.OrderItems())
	f.admin = usecase.NewAdminOrderUsecase(f.store, f.store.Orders(), f.store.OrderItems(), f.store.Drivers(), f.store.AuditLogs(), f.events)
	f.drivers = usecase.NewDriverUsecase(f.store, f.store.Drivers(), f.store.Orders(), f.store.OrderItems(), f.events, clock)
	return f
}

func (f *fixture) checkoutWithTx(tx repo.TransactionManager) *usecase.CheckoutUsecase {
	return usecase.NewCheckoutUsecase(f.checkoutDeps(tx))
}

func (f *fixture) checkoutDeps(tx repo.TransactionManager) usecase.CheckoutDeps {
	return usecase.CheckoutDeps{
		Tx:                  tx,
		Products:            f.store.Products(),
		Carts:               f.carts,
		Orders:              f.store.Orders(),
		Items:               f.store.OrderItems(),
		Intents:             f.store.CheckoutIntents(),
		Delivery:            f.delivery,
		Gateway:             f.gateway,
		Events:              f.events,
		Now:                 clock,
		Currency:            "inr",
		DefaultDeliveryDays: 3,
	}
}

// 送料50、1000以上で無料
func (f *fixture) seedStandardRule() {
	f.t.Helper()
	_, err := f.store.DeliveryRules().Create(f.ctx, model.DeliveryRule{
		MinOrderAmount:        0,
		DeliveryFee:           50,
		FreeDeliveryThreshold: int64Ptr(1000),
		IsActive:              true,
	})
	require.NoError(f.t, err)
}

func (f *fixture) seedPlain(name string, price int64, stock int64) model.VariantRef {
	p := f.store.SeedProduct(model.Product{Name: name, Price: price, Stock: stock, IsActive: true}, nil, nil)
	return model.VariantRef{ProductID: p.ID}
}

func (f *fixture) seedSized(name string, price int64, size string, stock int64) model.VariantRef {
	p := f.store.SeedProduct(
		model.Product{Name: name, Price: price, StockShape: model.StockShapeSize, IsActive: true},
		[]model.SizeVariant{{Size: size, Stock: stock}}, nil,
	)
	return model.VariantRef{ProductID: p.ID, Size: size}
}

func (f *fixture) seedSlot(daysAhead int, maxOrders *int64) model.DeliverySlot {
	f.t.Helper()
	s, err := f.store.Slots().Create(f.ctx, model.DeliverySlot{
		Date:      fixedNow.AddDate(0, 0, daysAhead),
		StartTime: "10:00",
		EndTime:   "12:00",
		MaxOrders: maxOrders,
		IsActive:  true,
	})
	require.NoError(f.t, err)
	return s
}

func (f *fixture) seedDriver(accountID int64, status model.DriverStatus) model.Driver {
	f.t.Helper()
	d, err := f.store.Drivers().Create(f.ctx, model.Driver{AccountID: accountID, Name: "driver", Status: status})
	require.NoError(f.t, err)
	return d
}

// カートに直接入れる（参考チェックを通さない）
func (f *fixture) putCart(owner usecase.CartOwner, lines ...model.CartLine) {
	f.t.Helper()
	key, err := owner.Key()
	require.NoError(f.t, err)
	require.NoError(f.t, f.carts.Save(f.ctx, model.Cart{Key: key, AccountID: owner.AccountID, Lines: lines}))
}

func (f *fixture) stockOf(ref model.VariantRef) int64 {
	f.t.Helper()
	n, err := f.store.Inventory().StockOf(f.ctx, ref)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) orderCount() int64 {
	f.t.Helper()
	_, total, err := f.store.Orders().ListAdmin(f.ctx, repo.AdminOrderListFilter{Page: 1, Limit: 100})
	require.NoError(f.t, err)
	return total
}

func (f *fixture) driver(id int64) model.Driver {
	f.t.Helper()
	d, err := f.store.Drivers().FindByID(f.ctx, id)
	require.NoError(f.t, err)
	return d
}

func (f *fixture) slot(id int64) model.DeliverySlot {
	f.t.Helper()
	s, err := f.store.Slots().FindByID(f.ctx, id)
	require.NoError(f.t, err)
	return s
}

func line(ref model.VariantRef, qty int64) model.CartLine {
	return model.CartLine{VariantRef: ref, Quantity: qty}
}

func session(token string) usecase.CartOwner {
	return usecase.CartOwner{SessionToken: token}
}

func customer() usecase.CustomerInput {
	return usecase.CustomerInput{
		Name:    "Asha Rao",
		Phone:   "+91 98450 00000",
		Email:   "asha@example.com",
		Address: "12 MG Road",
		City:    "Bengaluru",
	}
}

func (f *fixture) callback(ext string, paymentID string) usecase.PaymentCallback {
	return usecase.PaymentCallback{
		ExternalOrderID: ext,
		PaymentID:       paymentID,
		Signature:       f.gateway.Sign(ext, paymentID),
	}
}

// HTTPErrorの実装詳細に依存しない
func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}
