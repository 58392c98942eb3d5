package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ゲストカートのセッショントークン
const HeaderCartSession = "X-Cart-Session"

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type CartItemRequest struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Weight    string `json:"weight"`
	Quantity  int64  `json:"quantity"`
}

func (r CartItemRequest) input() usecase.CartItemInput {
	return usecase.CartItemInput{ProductID: r.ProductID, Size: r.Size, Weight: r.Weight, Quantity: r.Quantity}
}

// /cart を登録（ゲストも使える）
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.OptionalAuthJWT(cfg.JWTSecret))

	g.GET("", h.getCart)
	g.POST("/items", h.addItem)
	g.PATCH("/items", h.updateItem)
	g.DELETE("/items", h.removeItem)

	// ログイン直後にゲストカートを取り込む
	g.POST("/merge", h.merge, middleware.AuthJWT(cfg.JWTSecret))
}

// cartOwner はログイン中ならアカウント、そうでなければセッションのカート。
// issueがtrueでセッションが無ければ新しく発行してヘッダで返す。
func cartOwner(c echo.Context, issue bool) (usecase.CartOwner, bool) {
	if id, ok := getUserIDFromContext(c); ok {
		return usecase.CartOwner{AccountID: &id}, true
	}
	token := c.Request().Header.Get(HeaderCartSession)
	if token == "" {
		if !issue {
			return usecase.CartOwner{}, false
		}
		token = uuid.NewString()
	}
	c.Response().Header().Set(HeaderCartSession, token)
	return usecase.CartOwner{SessionToken: token}, true
}

func (h *CartHandler) getCart(c echo.Context) error {
	owner, ok := cartOwner(c, false)
	if !ok {
		return c.JSON(http.StatusOK, usecase.CartOutput{Lines: []usecase.CartLineOutput{}})
	}

	out, err := h.uc.GetCart(c.Request().Context(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	owner, _ := cartOwner(c, true)

	out, err := h.uc.AddItem(c.Request().Context(), owner, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateItem(c echo.Context) error {
	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	owner, ok := cartOwner(c, false)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "item not in cart"})
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), owner, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /cart/items?product_id=1&size=M
func (h *CartHandler) removeItem(c echo.Context) error {
	productID, err := strconv.ParseInt(c.QueryParam("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	owner, ok := cartOwner(c, false)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "item not in cart"})
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), owner, usecase.CartItemInput{
		ProductID: productID,
		Size:      c.QueryParam("size"),
		Weight:    c.QueryParam("weight"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) merge(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	token := c.Request().Header.Get(HeaderCartSession)
	if token == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + HeaderCartSession})
	}

	out, err := h.uc.MergeOnLogin(c.Request().Context(), userID, token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
