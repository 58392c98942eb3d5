package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// hookTx はトランザクション開始直前に割り込み処理を入れる（他の注文が先に確定した状況の再現）。
type hookTx struct {
	inner  repo.TransactionManager
	before func()
}

func (h hookTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if h.before != nil {
		h.before()
	}
	return h.inner.WithinTx(ctx, fn)
}

// decrementLog は在庫を減らした順を記録する。
type decrementLog struct {
	mu   sync.Mutex
	refs [][]model.VariantRef
}

type recordingTx struct {
	inner repo.TransactionManager
	log   *decrementLog
}

func (r recordingTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return r.inner.WithinTx(ctx, func(tr repo.TxRepos) error {
		rr := &recordingRepos{TxRepos: tr}
		err := fn(rr)
		r.log.mu.Lock()
		r.log.refs = append(r.log.refs, rr.refs)
		r.log.mu.Unlock()
		return err
	})
}

type recordingRepos struct {
	repo.TxRepos
	refs []model.VariantRef
}

func (r *recordingRepos) Inventory() repo.InventoryRepository {
	return recordingInventory{InventoryRepository: r.TxRepos.Inventory(), repos: r}
}

type recordingInventory struct {
	repo.InventoryRepository
	repos *recordingRepos
}

func (i recordingInventory) DecreaseStockIfEnough(ctx context.Context, ref model.VariantRef, qty int64) (bool, error) {
	i.repos.refs = append(i.repos.refs, ref)
	return i.InventoryRepository.DecreaseStockIfEnough(ctx, ref, qty)
}

func TestPlaceCODOrder_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.seedStandardRule()
	tea := f.seedPlain("Masala Tea", 400, 5)
	d := f.seedDriver(501, model.DriverStatusAvailable)
	owner := session("guest-1")
	f.putCart(owner, line(tea, 2))

	res, err := f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})
	require.NoError(t, err)

	o := res.Order
	assert.False(t, res.Duplicate)
	assert.Equal(t, int64(800), o.Subtotal)
	assert.Equal(t, int64(50), o.DeliveryFee)
	assert.Equal(t, int64(850), o.Total)
	assert.Equal(t, "confirmed", o.Status)
	assert.Equal(t, "cod", o.PaymentMethod)
	assert.Equal(t, "2026-03-13", o.EstimatedDeliveryDate)
	require.NotNil(t, o.DriverID)
	assert.Equal(t, d.ID, *o.DriverID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Masala Tea", o.Items[0].Name)
	assert.Equal(t, int64(400), o.Items[0].UnitPrice)

	assert.Equal(t, int64(3), f.stockOf(tea))
	assert.Equal(t, model.DriverStatusBusy, f.driver(d.ID).Status)

	cart, err := f.carts.Get(f.ctx, "session:guest-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	assert.Equal(t, 1, f.events.count(usecase.EventOrderCreated))
	assert.Equal(t, 1, f.events.count(usecase.EventDriverAssigned))
}

func TestPlaceCODOrder_FreeDeliveryAtThreshold(t *testing.T) {
	f := newFixture(t)
	f.seedStandardRule()
	rice := f.seedPlain("Basmati", 500, 10)
	owner := session("guest-free")
	f.putCart(owner, line(rice, 2))

	res, err := f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.Order.DeliveryFee)
	assert.Equal(t, int64(1000), res.Order.Total)
	// 配達員がいなくても注文は作る
	assert.Nil(t, res.Order.DriverID)
	assert.Equal(t, 1, f.events.count(usecase.EventDriverUnavailable))
}

func TestPlaceCODOrder_WithSlotUsesSlotDate(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 100, 5)
	slot := f.seedSlot(1, int64Ptr(2))
	owner := session("guest-slot")
	f.putCart(owner, line(tea, 1))

	res, err := f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: customer(), DeliverySlotID: &slot.ID})
	require.NoError(t, err)

	require.NotNil(t, res.Order.DeliverySlotID)
	assert.Equal(t, slot.ID, *res.Order.DeliverySlotID)
	assert.Equal(t, "2026-03-11", res.Order.EstimatedDeliveryDate)
	assert.Equal(t, int64(1), f.slot(slot.ID).BookedCount)
}

func TestPlaceCODOrder_FullSlotRejectedBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 100, 5)
	slot := f.seedSlot(1, int64Ptr(1))
	ok, err := f.store.Slots().ClaimSeat(f.ctx, slot.ID, fixedNow)
	require.NoError(t, err)
	require.True(t, ok)

	owner := session("guest-full")
	f.putCart(owner, line(tea, 1))

	_, err = f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: customer(), DeliverySlotID: &slot.ID})
	var su *usecase.SlotUnavailableError
	require.ErrorAs(t, err, &su)
	assert.Equal(t, model.SlotReasonFull, su.Reason)
	assert.Equal(t, http.StatusConflict, usecase.ToHTTPError(err).Status)

	assert.Equal(t, int64(5), f.stockOf(tea))
	assert.Zero(t, f.orderCount())
}

func TestPlaceCODOrder_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 100, 5)
	owner := session("guest-v")

	// カートが空
	_, err := f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})
	var ve *usecase.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cart", ve.Field)

	f.putCart(owner, line(tea, 1))

	c := customer()
	c.Name = "  "
	_, err = f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: c})
	assertErrContains(t, err, "customer_name")

	c = customer()
	c.Email = "not-an-email"
	_, err = f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: c})
	assertErrContains(t, err, "customer_email")

	_, err = f.checkout.PlaceCODOrder(f.ctx, usecase.CartOwner{}, usecase.CheckoutInput{Customer: customer()})
	assertErrContains(t, err, "session")

	assert.Equal(t, int64(5), f.stockOf(tea))
	assert.Zero(t, f.orderCount())
}

func TestPlaceCODOrder_InsufficientStockNamesVariant(t *testing.T) {
	f := newFixture(t)
	shirt := f.seedSized("Kurta", 900, "M", 1)
	owner := session("guest-stock")
	f.putCart(owner, line(shirt, 2))

	_, err := f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})

	var se *usecase.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Kurta", se.ProductName)
	assert.Equal(t, "size M", se.VariantLabel)
	assert.Equal(t, int64(2), se.Requested)
	assert.Equal(t, int64(1), se.Available)

	he := usecase.ToHTTPError(err)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Contains(t, he.Message, "Kurta (size M)")

	assert.Equal(t, int64(1), f.stockOf(shirt))
	assert.Equal(t, 1, f.events.count(usecase.EventStockInsufficient))
}

func TestPlaceCODOrder_AllOrNothingWhenStockRunsOutAtFinalize(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 100, 5)
	honey := f.seedPlain("Honey", 300, 1)
	slot := f.seedSlot(2, int64Ptr(5))
	d := f.seedDriver(601, model.DriverStatusAvailable)
	owner := session("guest-race")
	f.putCart(owner, line(tea, 2), line(honey, 1))

	// 事前チェックの後、確定の前に別の注文が最後のはちみつを買う
	checkout := f.checkoutWithTx(hookTx{inner: f.store, before: func() {
		ok, err := f.store.Inventory().DecreaseStockIfEnough(f.ctx, honey, 1)
		require.NoError(t, err)
		require.True(t, ok)
	}})

	_, err := checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: customer(), DeliverySlotID: &slot.ID})

	var se *usecase.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, honey.ProductID, se.ProductID)
	assert.Equal(t, int64(0), se.Available)

	// 先に減らしたお茶の在庫も戻っている
	assert.Equal(t, int64(5), f.stockOf(tea))
	assert.Zero(t, f.slot(slot.ID).BookedCount)
	assert.Equal(t, model.DriverStatusAvailable, f.driver(d.ID).Status)
	assert.Zero(t, f.orderCount())

	cart, err := f.carts.Get(f.ctx, "session:guest-race")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)
}

func TestPlaceCODOrder_CoalescesSameVariant(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 150, 2)
	owner := session("guest-dup-lines")
	f.putCart(owner, line(tea, 1), line(tea, 1))

	res, err := f.checkout.PlaceCODOrder(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})
	require.NoError(t, err)

	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, int64(2), res.Order.Items[0].Quantity)
	assert.Equal(t, int64(300), res.Order.Subtotal)
	assert.Equal(t, int64(0), f.stockOf(tea))
}

func TestPlaceCODOrder_DecrementsInVariantKeyOrder(t *testing.T) {
	f := newFixture(t)
	lamp := f.seedPlain("Brass Lamp", 1200, 5)
	tea := f.seedPlain("Tea", 100, 5)
	kurta := f.seedSized("Kurta", 900, "M", 5)
	log := &decrementLog{}
	checkout := f.checkoutWithTx(recordingTx{inner: f.store, log: log})

	// 同じ在庫行を逆順に持つカート
	f.putCart(session("guest-fwd"), line(lamp, 1), line(tea, 1), line(kurta, 1))
	f.putCart(session("guest-rev"), line(kurta, 1), line(tea, 1), line(lamp, 1))

	var wg sync.WaitGroup
	for _, token := range []string{"guest-fwd", "guest-rev"} {
		owner := session(token)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := checkout.PlaceCODOrder(context.Background(), owner, usecase.CheckoutInput{Customer: customer()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	want := []model.VariantRef{lamp, tea, kurta}
	require.Len(t, log.refs, 2)
	for _, got := range log.refs {
		assert.Equal(t, want, got)
	}
	assert.Equal(t, int64(3), f.stockOf(tea))
	assert.Equal(t, int64(2), f.orderCount())
}

func TestPlaceCODOrder_SameIdempotencyKeyReturnsSameOrder(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 100, 5)
	owner := session("guest-idem")
	f.putCart(owner, line(tea, 1))
	in := usecase.CheckoutInput{Customer: customer(), IdempotencyKey: "submit-1"}

	first, err := f.checkout.PlaceCODOrder(f.ctx, owner, in)
	require.NoError(t, err)
	second, err := f.checkout.PlaceCODOrder(f.ctx, owner, in)
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, int64(4), f.stockOf(tea))
	assert.Equal(t, int64(1), f.orderCount())
}

func TestPlaceCODOrder_IdempotencyKeyIsPerCartOwner(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 100, 5)
	alice := session("guest-alice")
	bob := session("guest-bob")
	f.putCart(alice, line(tea, 1))
	f.putCart(bob, line(tea, 2))

	first, err := f.checkout.PlaceCODOrder(f.ctx, alice, usecase.CheckoutInput{Customer: customer(), IdempotencyKey: "k1"})
	require.NoError(t, err)

	bobCustomer := customer()
	bobCustomer.Name = "Bob Mathew"
	bobCustomer.Address = "4 Park Street"
	second, err := f.checkout.PlaceCODOrder(f.ctx, bob, usecase.CheckoutInput{Customer: bobCustomer, IdempotencyKey: "k1"})
	require.NoError(t, err)

	// 他人のキーと被っても自分の注文が作られる
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, "Bob Mathew", second.Order.CustomerName)
	assert.Equal(t, "4 Park Street", second.Order.Address)
	assert.Equal(t, int64(200), second.Order.Subtotal)
	assert.Equal(t, int64(2), f.stockOf(tea))
	assert.Equal(t, int64(2), f.orderCount())

	// それぞれの再送は自分の注文に戻る
	again, err := f.checkout.PlaceCODOrder(f.ctx, bob, usecase.CheckoutInput{Customer: bobCustomer, IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, second.Order.ID, again.Order.ID)
}

func TestPlaceCODOrder_LastUnitGoesToExactlyOneBuyer(t *testing.T) {
	f := newFixture(t)
	lamp := f.seedPlain("Brass Lamp", 1200, 1)

	const buyers = 8
	for i := 0; i < buyers; i++ {
		f.putCart(session("buyer-"+string(rune('a'+i))), line(lamp, 1))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		shortage int
	)
	for i := 0; i < buyers; i++ {
		owner := session("buyer-" + string(rune('a'+i)))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.checkout.PlaceCODOrder(context.Background(), owner, usecase.CheckoutInput{Customer: customer()})
			mu.Lock()
			defer mu.Unlock()
			var se *usecase.InsufficientStockError
			switch {
			case err == nil:
				success++
			case errors.As(err, &se):
				shortage++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, buyers-1, shortage)
	assert.Equal(t, int64(0), f.stockOf(lamp))
	assert.Equal(t, int64(1), f.orderCount())
}

func TestPrepaid_IntentThenCallbackCreatesOrderOnce(t *testing.T) {
	f := newFixture(t)
	f.seedStandardRule()
	tea := f.seedPlain("Tea", 400, 5)
	account := int64(42)
	owner := usecase.CartOwner{AccountID: &account}
	f.putCart(owner, line(tea, 2))

	intent, err := f.checkout.CreatePaymentIntent(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})
	require.NoError(t, err)
	assert.Equal(t, int64(850), intent.Amount)
	assert.Equal(t, "inr", intent.Currency)
	assert.NotEmpty(t, intent.ExternalOrderID)

	// 決済開始だけでは在庫も注文も変わらない
	assert.Equal(t, int64(5), f.stockOf(tea))
	assert.Zero(t, f.orderCount())

	cb := f.callback(intent.ExternalOrderID, "pay_001")
	first, err := f.checkout.ConfirmPayment(f.ctx, cb)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "prepaid", first.Order.PaymentMethod)
	assert.Equal(t, int64(850), first.Order.Total)
	require.NotNil(t, first.Order.AccountID)
	assert.Equal(t, account, *first.Order.AccountID)
	require.NotNil(t, first.Order.PaymentID)
	assert.Equal(t, "pay_001", *first.Order.PaymentID)

	second, err := f.checkout.ConfirmPayment(f.ctx, cb)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	assert.Equal(t, int64(3), f.stockOf(tea))
	assert.Equal(t, int64(1), f.orderCount())
}

func TestPrepaid_ConcurrentDuplicateCallbacks(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 250, 10)
	owner := session("guest-concurrent")
	f.putCart(owner, line(tea, 2))

	intent, err := f.checkout.CreatePaymentIntent(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})
	require.NoError(t, err)
	cb := f.callback(intent.ExternalOrderID, "pay_dup")

	const n = 10
	results := make([]usecase.CheckoutResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.checkout.ConfirmPayment(context.Background(), cb)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Order.ID, results[i].Order.ID)
		if !results[i].Duplicate {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, int64(8), f.stockOf(tea))
	assert.Equal(t, int64(1), f.orderCount())
}

func TestPrepaid_BadSignatureChangesNothing(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 250, 10)
	owner := session("guest-forged")
	f.putCart(owner, line(tea, 1))

	intent, err := f.checkout.CreatePaymentIntent(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})
	require.NoError(t, err)

	cb := f.callback(intent.ExternalOrderID, "pay_forged")
	cb.Signature = "00" + cb.Signature[2:]
	if cb.Signature == f.gateway.Sign(intent.ExternalOrderID, "pay_forged") {
		cb.Signature = "ff" + cb.Signature[2:]
	}

	_, err = f.checkout.ConfirmPayment(f.ctx, cb)
	require.ErrorIs(t, err, usecase.ErrPaymentVerificationFailed)

	he := usecase.ToHTTPError(err)
	assert.Equal(t, http.StatusPaymentRequired, he.Status)
	assert.Contains(t, he.Message, "cash on delivery")

	assert.Equal(t, int64(10), f.stockOf(tea))
	assert.Zero(t, f.orderCount())
	cart, err := f.carts.Get(f.ctx, "session:guest-forged")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
}

func TestPrepaid_UnknownIntent(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.ConfirmPayment(f.ctx, f.callback("local_missing", "pay_x"))
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestPrepaid_SlotFilledBeforeCallbackFallsBackToDefaultETA(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 300, 5)
	slot := f.seedSlot(2, int64Ptr(1))
	owner := session("guest-late")
	f.putCart(owner, line(tea, 1))

	intent, err := f.checkout.CreatePaymentIntent(f.ctx, owner, usecase.CheckoutInput{Customer: customer(), DeliverySlotID: &slot.ID})
	require.NoError(t, err)

	// 決済中に最後の席が埋まる
	ok, err := f.store.Slots().ClaimSeat(f.ctx, slot.ID, fixedNow)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := f.checkout.ConfirmPayment(f.ctx, f.callback(intent.ExternalOrderID, "pay_late"))
	require.NoError(t, err)

	assert.Nil(t, res.Order.DeliverySlotID)
	assert.Equal(t, "2026-03-13", res.Order.EstimatedDeliveryDate)
	assert.Equal(t, int64(1), f.slot(slot.ID).BookedCount)
	assert.Equal(t, 1, f.events.count(usecase.EventSlotFull))
}

func TestPrepaid_StockGoneBeforeCallback(t *testing.T) {
	f := newFixture(t)
	lamp := f.seedPlain("Lamp", 700, 1)
	owner := session("guest-slow")
	f.putCart(owner, line(lamp, 1))

	intent, err := f.checkout.CreatePaymentIntent(f.ctx, owner, usecase.CheckoutInput{Customer: customer()})
	require.NoError(t, err)

	other := session("guest-fast")
	f.putCart(other, line(lamp, 1))
	_, err = f.checkout.PlaceCODOrder(f.ctx, other, usecase.CheckoutInput{Customer: customer()})
	require.NoError(t, err)

	_, err = f.checkout.ConfirmPayment(f.ctx, f.callback(intent.ExternalOrderID, "pay_slow"))
	var se *usecase.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(1), f.orderCount())
}

func TestCreatePaymentIntent_RejectsFullSlot(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 300, 5)
	slot := f.seedSlot(1, int64Ptr(1))
	_, err := f.store.Slots().ClaimSeat(f.ctx, slot.ID, fixedNow)
	require.NoError(t, err)

	owner := session("guest-intent-full")
	f.putCart(owner, line(tea, 1))

	_, err = f.checkout.CreatePaymentIntent(f.ctx, owner, usecase.CheckoutInput{Customer: customer(), DeliverySlotID: &slot.ID})
	var su *usecase.SlotUnavailableError
	require.ErrorAs(t, err, &su)
}

func TestCreatePaymentIntent_PastSlot(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 300, 5)
	slot := f.seedSlot(-1, nil)
	owner := session("guest-past")
	f.putCart(owner, line(tea, 1))

	_, err := f.checkout.CreatePaymentIntent(f.ctx, owner, usecase.CheckoutInput{Customer: customer(), DeliverySlotID: &slot.ID})
	var su *usecase.SlotUnavailableError
	require.ErrorAs(t, err, &su)
	assert.Equal(t, model.SlotReasonPast, su.Reason)
}

func TestPlaceCODOrder_RecordsSpansUnderCallerTrace(t *testing.T) {
	f := newFixture(t)
	tea := f.seedPlain("Tea", 100, 5)
	owner := session("guest-traced")
	f.putCart(owner, line(tea, 1))

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	deps := f.checkoutDeps(f.store)
	deps.TracerProvider = tp
	checkout := usecase.NewCheckoutUsecase(deps)

	ctx, parent := tp.Tracer("test").Start(f.ctx, "POST /checkout/cod")
	res, err := checkout.PlaceCODOrder(ctx, owner, usecase.CheckoutInput{Customer: customer()})
	parent.End()
	require.NoError(t, err)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range rec.Ended() {
		byName[s.Name()] = s
	}
	cod, ok := byName["checkout.cod"]
	require.True(t, ok)
	fin, ok := byName["checkout.finalize"]
	require.True(t, ok)

	assert.Equal(t, parent.SpanContext().TraceID(), cod.SpanContext().TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), cod.Parent().SpanID())
	assert.Equal(t, cod.SpanContext().SpanID(), fin.Parent().SpanID())
	assert.Contains(t, fin.Attributes(), attribute.Int64("order.id", res.Order.ID))
}
