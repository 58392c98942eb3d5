package db

import (
	"fmt"

	"storefront/internal/config"
	"storefront/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// プールは起動時に1つだけ作り、終了時にCloseで閉じる。
func Connect(cfg config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.GoEnv == "prod" {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return gdb, nil
}

// Migrate は全テーブルを作成・更新する。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.Product{},
		&model.SizeVariant{},
		&model.WeightOption{},
		&model.DeliveryRule{},
		&model.DeliverySlot{},
		&model.Driver{},
		&model.Order{},
		&model.OrderItem{},
		&model.CheckoutIntent{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		return err
	}

	// 冪等キーは持ち主ごとに一意（旧インデックスはキー単独で一意だった）
	m := gdb.Migrator()
	if m.HasIndex(&model.Order{}, "idx_orders_idempotency_key") {
		if err := m.DropIndex(&model.Order{}, "idx_orders_idempotency_key"); err != nil {
			return err
		}
	}
	return nil
}

// Close はプールを閉じる（実行中のクエリは完了を待つ）。
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
