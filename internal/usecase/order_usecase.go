package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type OrderUsecase struct {
	orders repo.OrderRepository
	items  repo.OrderItemRepository
}

func NewOrderUsecase(orders repo.OrderRepository, items repo.OrderItemRepository) *OrderUsecase {
	return &OrderUsecase{orders: orders, items: items}
}

type OrderItemOutput struct {
	ProductID    int64  `json:"product_id"`
	Size         string `json:"size,omitempty"`
	Weight       string `json:"weight,omitempty"`
	Name         string `json:"name"`
	VariantLabel string `json:"variant_label,omitempty"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int64  `json:"quantity"`
	Subtotal     int64  `json:"subtotal"`
}

type OrderOutput struct {
	ID                    int64             `json:"id"`
	AccountID             *int64            `json:"account_id"`
	Status                string            `json:"status"`
	PaymentMethod         string            `json:"payment_method"`
	CustomerName          string            `json:"customer_name"`
	CustomerPhone         string            `json:"customer_phone"`
	CustomerEmail         string            `json:"customer_email,omitempty"`
	Address               string            `json:"address"`
	City                  string            `json:"city,omitempty"`
	PostalCode            string            `json:"postal_code,omitempty"`
	Subtotal              int64             `json:"subtotal"`
	DeliveryFee           int64             `json:"delivery_fee"`
	Total                 int64             `json:"total"`
	ExternalOrderID       *string           `json:"external_order_id,omitempty"`
	PaymentID             *string           `json:"payment_id,omitempty"`
	DriverID              *int64            `json:"driver_id"`
	DeliverySlotID        *int64            `json:"delivery_slot_id"`
	EstimatedDeliveryDate string            `json:"estimated_delivery_date"`
	CreatedAt             time.Time         `json:"created_at"`
	Items                 []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, accountID int64, page int, limit int) (OrderListOutput, error) {
	if accountID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	orders, total, err := u.orders.ListByAccountID(ctx, accountID, page, limit)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	outs, err := withItems(ctx, u.items, orders)
	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, accountID int64, orderID int64) (OrderOutput, error) {
	if accountID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//他人の注文は「存在しない扱い」にする
	if o.AccountID == nil || *o.AccountID != accountID {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutput(o, items), nil
}

func withItems(ctx context.Context, itemsRepo repo.OrderItemRepository, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := itemsRepo.ListByOrderID(ctx, o.ID)
		if err != nil {
			return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:    it.ProductID,
			Size:         it.Size,
			Weight:       it.Weight,
			Name:         it.ProductNameSnapshot,
			VariantLabel: it.VariantLabel,
			UnitPrice:    it.UnitPriceSnapshot,
			Quantity:     it.Quantity,
			Subtotal:     it.Subtotal,
		})
	}

	return OrderOutput{
		ID:                    o.ID,
		AccountID:             o.AccountID,
		Status:                string(o.Status),
		PaymentMethod:         string(o.PaymentMethod),
		CustomerName:          o.CustomerName,
		CustomerPhone:         o.CustomerPhone,
		CustomerEmail:         o.CustomerEmail,
		Address:               o.Address,
		City:                  o.City,
		PostalCode:            o.PostalCode,
		Subtotal:              o.Subtotal,
		DeliveryFee:           o.DeliveryFee,
		Total:                 o.Total,
		ExternalOrderID:       o.ExternalOrderID,
		PaymentID:             o.PaymentID,
		DriverID:              o.DriverID,
		DeliverySlotID:        o.DeliverySlotID,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate.Format("2006-01-02"),
		CreatedAt:             o.CreatedAt,
		Items:                 outItems,
	}
}
