package server

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/handler"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Repos はpostgres/memoryどちらでも同じ形で渡す永続化の部品
type Repos struct {
	Tx       repo.TransactionManager
	Products repo.ProductRepository
	Orders   repo.OrderRepository
	Items    repo.OrderItemRepository
	Rules    repo.DeliveryRuleRepository
	Slots    repo.DeliverySlotRepository
	Drivers  repo.DriverRepository
	Intents  repo.CheckoutIntentRepository
	Audits   repo.AuditLogRepository
	Carts    repo.CartStore
}

type Deps struct {
	Repos   Repos
	Gateway usecase.PaymentGateway
	Events  usecase.EventPublisher
	Now     usecase.Clock
	// /metrics に出すレジストリ（nilなら出さない）
	Metrics prometheus.Gatherer
}

// RegisterRoutes はusecaseとhandlerを組み立ててechoに登録する
func RegisterRoutes(e *echo.Echo, cfg config.Config, d Deps) {
	r := d.Repos

	deliveryUC := usecase.NewDeliveryUsecase(r.Rules, r.Slots, cfg.SlotWindowDays, d.Now)
	cartUC := usecase.NewCartUsecase(r.Carts, r.Products, d.Now)
	checkoutUC := usecase.NewCheckoutUsecase(usecase.CheckoutDeps{
		Tx:                  r.Tx,
		Products:            r.Products,
		Carts:               r.Carts,
		Orders:              r.Orders,
		Items:               r.Items,
		Intents:             r.Intents,
		Delivery:            deliveryUC,
		Gateway:             d.Gateway,
		Events:              d.Events,
		Now:                 d.Now,
		Currency:            cfg.Currency,
		DefaultDeliveryDays: cfg.DefaultDeliveryDays,
	})
	orderUC := usecase.NewOrderUsecase(r.Orders, r.Items)
	adminOrderUC := usecase.NewAdminOrderUsecase(r.Tx, r.Orders, r.Items, r.Drivers, r.Audits, d.Events)
	driverUC := usecase.NewDriverUsecase(r.Tx, r.Drivers, r.Orders, r.Items, d.Events, d.Now)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})))
	}

	handler.NewCartHandler(cartUC).RegisterRoutes(e, cfg)
	handler.NewDeliveryHandler(deliveryUC).RegisterRoutes(e, cfg)
	handler.NewCheckoutHandler(checkoutUC).RegisterRoutes(e, cfg)
	handler.NewOrderHandler(orderUC).RegisterRoutes(e, cfg)
	handler.NewAdminOrderHandler(adminOrderUC).RegisterRoutes(e, cfg)
	handler.NewDriverHandler(driverUC, adminOrderUC).RegisterRoutes(e, cfg)
}
