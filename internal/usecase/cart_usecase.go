package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/logging"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// CartOwner はカートの持ち主（ログイン中ならアカウント、そうでなければセッション）。
type CartOwner struct {
	AccountID    *int64
	SessionToken string
}

func (o CartOwner) Key() (string, error) {
	if o.AccountID != nil && *o.AccountID > 0 {
		return accountCartKey(*o.AccountID), nil
	}
	token := strings.TrimSpace(o.SessionToken)
	if token == "" || len(token) > 128 {
		return "", newValidationError("session", "cart session token is required")
	}
	return "session:" + token, nil
}

func accountCartKey(accountID int64) string {
	return "account:" + strconv.FormatInt(accountID, 10)
}

// CartUsecase は /cart の業務ロジック。
// 価格・在庫は保存せず、毎回カタログから読み直す。
type CartUsecase struct {
	carts    repo.CartStore
	products repo.ProductRepository
	now      Clock
}

func NewCartUsecase(carts repo.CartStore, products repo.ProductRepository, now Clock) *CartUsecase {
	return &CartUsecase{carts: carts, products: products, now: now}
}

type CartLineOutput struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Weight    string `json:"weight,omitempty"`
	Name      string `json:"name"`
	Label     string `json:"label,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	Available int64  `json:"available"`
}

type CartOutput struct {
	Lines    []CartLineOutput `json:"lines"`
	Subtotal int64            `json:"subtotal"`
	// 販売終了などで表示できなかった明細数
	Unavailable int `json:"unavailable"`
}

type CartItemInput struct {
	ProductID int64
	Size      string
	Weight    string
	Quantity  int64
}

func (in CartItemInput) ref() (model.VariantRef, error) {
	ref := model.VariantRef{
		ProductID: in.ProductID,
		Size:      strings.TrimSpace(in.Size),
		Weight:    strings.TrimSpace(in.Weight),
	}
	if !ref.Valid() {
		return model.VariantRef{}, newValidationError("product_id", "invalid product or variant")
	}
	return ref, nil
}

func (u *CartUsecase) GetCart(ctx context.Context, owner CartOwner) (CartOutput, error) {
	key, err := owner.Key()
	if err != nil {
		return CartOutput{}, err
	}
	cart, err := u.carts.Get(ctx, key)
	if err != nil {
		return CartOutput{}, fmt.Errorf("get cart: %w", err)
	}
	return u.buildOutput(ctx, cart)
}

// AddItem は数量を加算する（在庫は参考チェックのみ）。
func (u *CartUsecase) AddItem(ctx context.Context, owner CartOwner, in CartItemInput) (CartOutput, error) {
	key, err := owner.Key()
	if err != nil {
		return CartOutput{}, err
	}
	ref, err := in.ref()
	if err != nil {
		return CartOutput{}, err
	}
	if in.Quantity < 1 {
		return CartOutput{}, newValidationError("quantity", "must be >= 1")
	}

	cart, err := u.carts.Get(ctx, key)
	if err != nil {
		return CartOutput{}, fmt.Errorf("get cart: %w", err)
	}

	want := in.Quantity
	for _, l := range cart.Lines {
		if l.Key() == ref.Key() {
			want += l.Quantity
		}
	}
	if err := u.checkAvailable(ctx, ref, want); err != nil {
		return CartOutput{}, err
	}

	cart.Key = key
	cart.AccountID = owner.AccountID
	cart.Add(ref, in.Quantity)
	return u.save(ctx, cart)
}

// UpdateItem は数量を上書きする（0なら削除）。
func (u *CartUsecase) UpdateItem(ctx context.Context, owner CartOwner, in CartItemInput) (CartOutput, error) {
	key, err := owner.Key()
	if err != nil {
		return CartOutput{}, err
	}
	ref, err := in.ref()
	if err != nil {
		return CartOutput{}, err
	}
	if in.Quantity < 0 {
		return CartOutput{}, newValidationError("quantity", "must be >= 0")
	}

	cart, err := u.carts.Get(ctx, key)
	if err != nil {
		return CartOutput{}, fmt.Errorf("get cart: %w", err)
	}
	if in.Quantity > 0 {
		if err := u.checkAvailable(ctx, ref, in.Quantity); err != nil {
			return CartOutput{}, err
		}
	}
	if !cart.Set(ref, in.Quantity) {
		return CartOutput{}, NewHTTPError(http.StatusNotFound, "item not in cart")
	}
	return u.save(ctx, cart)
}

func (u *CartUsecase) RemoveItem(ctx context.Context, owner CartOwner, in CartItemInput) (CartOutput, error) {
	in.Quantity = 0
	return u.UpdateItem(ctx, owner, in)
}

// MergeOnLogin はゲストカートをアカウントのカートへ取り込み、ゲスト側を消す。
func (u *CartUsecase) MergeOnLogin(ctx context.Context, accountID int64, sessionToken string) (CartOutput, error) {
	if accountID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	guestKey, err := CartOwner{SessionToken: sessionToken}.Key()
	if err != nil {
		return CartOutput{}, err
	}

	guest, err := u.carts.Get(ctx, guestKey)
	if err != nil {
		return CartOutput{}, fmt.Errorf("get guest cart: %w", err)
	}
	account, err := u.carts.Get(ctx, accountCartKey(accountID))
	if err != nil {
		return CartOutput{}, fmt.Errorf("get account cart: %w", err)
	}
	if guest.IsEmpty() {
		return u.buildOutput(ctx, account)
	}

	account.Key = accountCartKey(accountID)
	account.AccountID = &accountID
	account.Merge(guest)

	out, err := u.save(ctx, account)
	if err != nil {
		return CartOutput{}, err
	}
	if err := u.carts.Delete(ctx, guestKey); err != nil {
		logging.FromContext(ctx).Warn("delete guest cart failed", zap.String("cart_key", guestKey), zap.Error(err))
	}
	return out, nil
}

func (u *CartUsecase) checkAvailable(ctx context.Context, ref model.VariantRef, qty int64) error {
	ok, available, err := CheckAvailability(ctx, u.products, ref, qty)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if !ok {
		v, _ := u.products.FindVariant(ctx, ref)
		return &InsufficientStockError{
			ProductID:    ref.ProductID,
			ProductName:  v.Name,
			VariantLabel: ref.Label(),
			Requested:    qty,
			Available:    available,
		}
	}
	return nil
}

func (u *CartUsecase) save(ctx context.Context, cart model.Cart) (CartOutput, error) {
	cart.UpdatedAt = u.now()
	if err := u.carts.Save(ctx, cart); err != nil {
		return CartOutput{}, fmt.Errorf("save cart: %w", err)
	}
	return u.buildOutput(ctx, cart)
}

// 表示用（販売終了の明細は除外して数だけ返す）
func (u *CartUsecase) buildOutput(ctx context.Context, cart model.Cart) (CartOutput, error) {
	out := CartOutput{Lines: []CartLineOutput{}}
	for _, l := range coalesceLines(cart.Lines) {
		v, err := u.products.FindVariant(ctx, l.VariantRef)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && !v.IsActive) {
			out.Unavailable++
			continue
		}
		if err != nil {
			return CartOutput{}, fmt.Errorf("find variant: %w", err)
		}

		line := CartLineOutput{
			ProductID: l.ProductID,
			Size:      l.Size,
			Weight:    l.Weight,
			Name:      v.Name,
			Label:     v.Label,
			UnitPrice: v.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  v.UnitPrice * l.Quantity,
			Available: v.Stock,
		}
		out.Lines = append(out.Lines, line)
		out.Subtotal += line.Subtotal
	}
	return out, nil
}
