package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type DeliveryHandler struct {
	uc *usecase.DeliveryUsecase
}

func NewDeliveryHandler(uc *usecase.DeliveryUsecase) *DeliveryHandler {
	return &DeliveryHandler{uc: uc}
}

type DeliveryRuleCreateRequest struct {
	MinOrderAmount        int64  `json:"min_order_amount"`
	DeliveryFee           int64  `json:"delivery_fee"`
	FreeDeliveryThreshold *int64 `json:"free_delivery_threshold"`
}

type DeliverySlotCreateRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	MaxOrders *int64 `json:"max_orders"`
}

func (h *DeliveryHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	// 公開（見積もり・枠の一覧）
	e.GET("/delivery/quote", h.quote)
	e.GET("/delivery/slots", h.slots)
	e.GET("/delivery/rules", h.rules)

	admin := e.Group("/admin/delivery")
	admin.Use(middleware.AuthJWT(cfg.JWTSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.POST("/rules", h.createRule)
	admin.POST("/slots", h.createSlot)
}

// GET /delivery/quote?subtotal=850
func (h *DeliveryHandler) quote(c echo.Context) error {
	subtotal, err := strconv.ParseInt(c.QueryParam("subtotal"), 10, 64)
	if err != nil || subtotal < 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid subtotal"})
	}

	out, err := h.uc.Quote(c.Request().Context(), subtotal)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DeliveryHandler) rules(c echo.Context) error {
	out, err := h.uc.ListRules(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /delivery/slots?from=2026-03-10&days=7
func (h *DeliveryHandler) slots(c echo.Context) error {
	var from *time.Time
	if v := c.QueryParam("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		from = &d
	}
	days, ok := queryInt(c, "days", 0)
	if !ok || days < 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid days"})
	}

	out, err := h.uc.ListAvailableSlots(c.Request().Context(), from, days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DeliveryHandler) createRule(c echo.Context) error {
	var req DeliveryRuleCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreateRule(c.Request().Context(), usecase.CreateDeliveryRuleInput{
		MinOrderAmount:        req.MinOrderAmount,
		DeliveryFee:           req.DeliveryFee,
		FreeDeliveryThreshold: req.FreeDeliveryThreshold,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *DeliveryHandler) createSlot(c echo.Context) error {
	var req DeliverySlotCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreateSlot(c.Request().Context(), usecase.CreateDeliverySlotInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		MaxOrders: req.MaxOrders,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
