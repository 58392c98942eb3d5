package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 配達員プール（管理者）と配達員本人の操作
type DriverHandler struct {
	uc     *usecase.DriverUsecase
	orders *usecase.AdminOrderUsecase
}

func NewDriverHandler(uc *usecase.DriverUsecase, orders *usecase.AdminOrderUsecase) *DriverHandler {
	return &DriverHandler{uc: uc, orders: orders}
}

type DriverCreateRequest struct {
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
}

type DriverAvailabilityRequest struct {
	Status string `json:"status"`
}

type DriverAssignRequest struct {
	// 省略時は空いている配達員を自動で選ぶ
	DriverID *int64 `json:"driver_id"`
}

func (h *DriverHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg.JWTSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.GET("/drivers", h.list)
	admin.POST("/drivers", h.create)
	admin.PUT("/orders/:id/driver", h.assign)

	me := e.Group("/driver")
	me.Use(middleware.AuthJWT(cfg.JWTSecret))
	me.Use(middleware.RequireRole(model.RoleDriver))

	me.GET("/me", h.me)
	me.PUT("/availability", h.setAvailability)
	me.GET("/orders", h.myOrders)
	me.PUT("/orders/:id/status", updateOrderStatus(h.orders))
}

func (h *DriverHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DriverHandler) create(c echo.Context) error {
	var req DriverCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Create(c.Request().Context(), usecase.CreateDriverInput{
		AccountID: req.AccountID,
		Name:      req.Name,
		Phone:     req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *DriverHandler) assign(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req DriverAssignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.AssignDriver(c.Request().Context(), actor, orderID, usecase.AssignDriverInput{DriverID: req.DriverID})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DriverHandler) me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DriverHandler) setAvailability(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req DriverAvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SetMyAvailability(c.Request().Context(), userID, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /driver/orders?active=true
func (h *DriverHandler) myOrders(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	active := false
	if v := c.QueryParam("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid active"})
		}
		active = b
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, active)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
