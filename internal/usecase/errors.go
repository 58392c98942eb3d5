package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type HTTPError struct {
	Status  int
	Message string
	// レスポンスに添える追加情報（在庫数・遷移可能な状態など）
	Details any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 入力不備（書き込み前に必ず返す）
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field string, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// 在庫不足（どの商品か分かるように名前とラベルを持つ）
type InsufficientStockError struct {
	ProductID    int64
	ProductName  string
	VariantLabel string
	Requested    int64
	Available    int64
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if e.VariantLabel != "" {
		name += " (" + e.VariantLabel + ")"
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

type SlotUnavailableError struct {
	SlotID int64
	Reason string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("delivery slot %d unavailable: %s", e.SlotID, e.Reason)
}

type TransitionNotAllowedError struct {
	Current   model.OrderStatus
	Requested model.OrderStatus
	Allowed   []model.OrderStatus
}

func (e *TransitionNotAllowedError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		allowed = append(allowed, string(s))
	}
	return fmt.Sprintf("cannot change status from %s to %s (allowed: [%s])", e.Current, e.Requested, strings.Join(allowed, ", "))
}

var (
	// 署名不一致（何も変更していない）
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	// 確定処理の途中で失敗（全てロールバック済み）
	ErrOrderNotCompleted = errors.New("could not complete order")
)

const paymentPendingMessage = "payment could not be verified yet; if you were charged it may still be confirmed shortly, retry or choose cash on delivery"

// ToHTTPError はusecaseのエラーをレスポンス用に変換する。
func ToHTTPError(err error) *HTTPError {
	if he, ok := AsHTTPError(err); ok {
		return he
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return &HTTPError{Status: http.StatusBadRequest, Message: ve.Error()}
	}

	var se *InsufficientStockError
	if errors.As(err, &se) {
		return &HTTPError{
			Status:  http.StatusConflict,
			Message: se.Error(),
			Details: map[string]any{
				"product_id":    se.ProductID,
				"product_name":  se.ProductName,
				"variant_label": se.VariantLabel,
				"requested":     se.Requested,
				"available":     se.Available,
			},
		}
	}

	var te *TransitionNotAllowedError
	if errors.As(err, &te) {
		return &HTTPError{
			Status:  http.StatusConflict,
			Message: te.Error(),
			Details: map[string]any{
				"current": te.Current,
				"allowed": te.Allowed,
			},
		}
	}

	var su *SlotUnavailableError
	if errors.As(err, &su) {
		return &HTTPError{Status: http.StatusConflict, Message: su.Error()}
	}

	switch {
	case errors.Is(err, ErrPaymentVerificationFailed):
		return &HTTPError{Status: http.StatusPaymentRequired, Message: paymentPendingMessage}
	case errors.Is(err, ErrOrderNotCompleted):
		return &HTTPError{Status: http.StatusInternalServerError, Message: ErrOrderNotCompleted.Error()}
	case errors.Is(err, repo.ErrNotFound):
		return &HTTPError{Status: http.StatusNotFound, Message: "not found"}
	}
	return &HTTPError{Status: http.StatusInternalServerError, Message: "internal error"}
}
