package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type CheckoutRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	DeliverySlotID *int64 `json:"delivery_slot_id"`
}

type PaymentCallbackRequest struct {
	ExternalOrderID string `json:"external_order_id"`
	PaymentID       string `json:"payment_id"`
	Signature       string `json:"signature"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/checkout")
	g.Use(middleware.OptionalAuthJWT(cfg.JWTSecret))

	g.POST("/cod", h.cod)
	g.POST("/intent", h.intent)

	// ゲートウェイから呼ばれる（JWTなし、署名で検証）
	e.POST("/payments/callback", h.callback)
}

func (r CheckoutRequest) input(idemKey string) usecase.CheckoutInput {
	return usecase.CheckoutInput{
		Customer: usecase.CustomerInput{
			Name:       r.Name,
			Phone:      r.Phone,
			Email:      r.Email,
			Address:    r.Address,
			City:       r.City,
			PostalCode: r.PostalCode,
		},
		DeliverySlotID: r.DeliverySlotID,
		IdempotencyKey: idemKey,
	}
}

func writeCheckoutResult(c echo.Context, res usecase.CheckoutResult) error {
	if res.Duplicate {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *CheckoutHandler) cod(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	owner, ok := cartOwner(c, false)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cart is empty"})
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	res, err := h.uc.PlaceCODOrder(c.Request().Context(), owner, req.input(idemKey))
	if err != nil {
		return writeError(c, err)
	}
	return writeCheckoutResult(c, res)
}

func (h *CheckoutHandler) intent(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	owner, ok := cartOwner(c, false)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cart is empty"})
	}

	out, err := h.uc.CreatePaymentIntent(c.Request().Context(), owner, req.input(""))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CheckoutHandler) callback(c echo.Context) error {
	var req PaymentCallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	res, err := h.uc.ConfirmPayment(c.Request().Context(), usecase.PaymentCallback{
		ExternalOrderID: req.ExternalOrderID,
		PaymentID:       req.PaymentID,
		Signature:       req.Signature,
	})
	if err != nil {
		return writeError(c, err)
	}
	return writeCheckoutResult(c, res)
}
