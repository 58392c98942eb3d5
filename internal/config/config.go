package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	// Store は永続化先（postgres / memory）
	Store string

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisAddr     string // 空ならメモリのカート
	RedisPassword string
	CartTTL       time.Duration

	JWTSecret string // JWT署名シークレット

	PaymentWebhookSecret string // コールバック署名（HMAC-SHA256）
	StripeSecretKey      string // 空ならローカルゲートウェイ
	Currency             string

	DefaultDeliveryDays int // 配送枠なしのときの到着予定（日数）
	SlotWindowDays      int // 配送枠一覧の既定期間

	TraceExporter string // none / stdout

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := atoiDefault("DB_MAX_OPEN_CONNS", 20)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := atoiDefault("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	lifetime, err := durationDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cartTTL, err := durationDefault("CART_TTL", 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	deliveryDays, err := atoiDefault("DEFAULT_DELIVERY_DAYS", 3)
	if err != nil {
		return Config{}, err
	}
	windowDays, err := atoiDefault("SLOT_WINDOW_DAYS", 7)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		Store: getenv("STORE", "postgres"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "app"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		DBMaxOpenConns:    maxOpen,
		DBMaxIdleConns:    maxIdle,
		DBConnMaxLifetime: lifetime,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CartTTL:       cartTTL,

		JWTSecret: os.Getenv("JWT_SECRET"),

		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		Currency:             getenv("CURRENCY", "inr"),

		DefaultDeliveryDays: deliveryDays,
		SlotWindowDays:      windowDays,

		TraceExporter: getenv("OTEL_TRACES_EXPORTER", "none"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PaymentWebhookSecret == "" {
		return Config{}, fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required")
	}
	if cfg.Store != "postgres" && cfg.Store != "memory" {
		return Config{}, fmt.Errorf("STORE must be postgres or memory")
	}
	if cfg.TraceExporter != "none" && cfg.TraceExporter != "stdout" {
		return Config{}, fmt.Errorf("OTEL_TRACES_EXPORTER must be none or stdout")
	}
	if cfg.DefaultDeliveryDays < 0 {
		return Config{}, fmt.Errorf("DEFAULT_DELIVERY_DAYS must be >= 0")
	}
	if cfg.SlotWindowDays < 1 {
		return Config{}, fmt.Errorf("SLOT_WINDOW_DAYS must be >= 1")
	}

	return cfg, nil
}

// Addr は ":8080" 形式のlisten先
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

// DSN はpostgresの接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
