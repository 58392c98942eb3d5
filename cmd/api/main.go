package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/infra/cartstore"
	"storefront/internal/infra/db"
	"storefront/internal/infra/events"
	"storefront/internal/infra/memory"
	"storefront/internal/infra/payment"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logging"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	// .envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

// run はサーバーが止まるまでブロックする。
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger("storefront", cfg.GoEnv)
	if err != nil {
		return fmt.Errorf("new logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	tp, err := logging.NewTracerProvider("storefront", cfg.GoEnv, cfg.TraceExporter, os.Stdout)
	if err != nil {
		return fmt.Errorf("new tracer provider: %w", err)
	}
	defer func() {
		// 終了時に残りのspanを書き出す
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracer_shutdown_failed", zap.Error(err))
		}
	}()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	now := usecase.Clock(time.Now)

	//Repository生成（postgres / memory）
	var repos server.Repos
	switch cfg.Store {
	case "memory":
		store := memory.NewStore()
		if err := seedDemo(ctx, store, now()); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		repos = memoryRepos(store)
		logger.Info("store_memory_seeded")
	default:
		gormDB, err := db.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer func() {
			if err := db.Close(gormDB); err != nil {
				logger.Error("db_close_failed", zap.Error(err))
			}
		}()
		if err := db.Migrate(gormDB); err != nil {
			return fmt.Errorf("migrate db: %w", err)
		}
		repos = server.Repos{
			Tx:       infraRepo.NewTxManagerGorm(gormDB),
			Products: infraRepo.NewProductGormRepository(gormDB),
			Orders:   infraRepo.NewOrderGormRepository(gormDB),
			Items:    infraRepo.NewOrderItemGormRepository(gormDB),
			Rules:    infraRepo.NewDeliveryRuleGormRepository(gormDB),
			Slots:    infraRepo.NewDeliverySlotGormRepository(gormDB),
			Drivers:  infraRepo.NewDriverGormRepository(gormDB),
			Intents:  infraRepo.NewCheckoutIntentGormRepository(gormDB),
			Audits:   infraRepo.NewAuditLogGormRepository(gormDB),
		}
	}

	//カート（REDIS_ADDRが無ければメモリ）
	if cfg.RedisAddr != "" {
		client, err := cartstore.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		repos.Carts = cartstore.NewRedisCartStore(client, cfg.CartTTL)
	} else {
		repos.Carts = memory.NewCartStore()
	}

	//決済ゲートウェイ
	var gateway usecase.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.PaymentWebhookSecret)
	} else {
		gateway = payment.NewLocalGateway(cfg.PaymentWebhookSecret)
		logger.Warn("payment_gateway_local", zap.String("reason", "STRIPE_SECRET_KEY is empty"))
	}

	publisher, err := events.NewPublisher(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	e := server.New(cfg, logger, server.Deps{
		Repos:   repos,
		Gateway: gateway,
		Events:  publisher,
		Now:     now,
		Metrics: prometheus.DefaultGatherer,
	})

	//Server起動
	if err := server.Start(ctx, e, cfg.Addr(), logger); err != nil {
		logger.Error("http_server_error", zap.Error(err))
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func memoryRepos(store *memory.Store) server.Repos {
	return server.Repos{
		Tx:       store,
		Products: store.Products(),
		Orders:   store.Orders(),
		Items:    store.OrderItems(),
		Rules:    store.DeliveryRules(),
		Slots:    store.Slots(),
		Drivers:  store.Drivers(),
		Intents:  store.CheckoutIntents(),
		Audits:   store.AuditLogs(),
	}
}
