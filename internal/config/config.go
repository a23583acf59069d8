package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればPOSTGRES_*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret       string // JWT署名シークレット
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieSecure    bool
	BcryptCost      int

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORS）

	RedisAddr       string // 空ならキャッシュなし
	RedisPassword   string
	ProductCacheTTL time.Duration

	DefaultCountry        string
	ShippingFee           int64
	FreeShippingThreshold int64
	TaxRate               decimal.Decimal

	OrderNumberRetries  int
	OrderNumberLocation *time.Location
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// DSNを組み立てる
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Loadは.env（あれば）を読んでから環境変数
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// getenvを差し替えられる版（テスト用）
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		Port: e.str("PORT", "8080"),

		DatabaseURL:      e.str("DATABASE_URL", ""),
		PostgresUser:     e.str("POSTGRES_USER", ""),
		PostgresPassword: e.str("POSTGRES_PASSWORD", ""),
		PostgresDB:       e.str("POSTGRES_DB", ""),
		PostgresHost:     e.str("POSTGRES_HOST", ""),
		PostgresPort:     e.num("POSTGRES_PORT", 5432),
		PostgresSSLMode:  e.str("POSTGRES_SSLMODE", "disable"),

		JWTSecret:       e.str("JWT_SECRET", ""),
		AccessTokenTTL:  e.dur("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: e.dur("REFRESH_TOKEN_TTL", 720*time.Hour),
		CookieSecure:    e.flag("COOKIE_SECURE", true),
		BcryptCost:      e.num("BCRYPT_COST", 12),

		GoEnv: e.str("GO_ENV", "dev"),
		FEURL: e.str("FE_URL", ""),

		RedisAddr:       e.str("REDIS_ADDR", ""),
		RedisPassword:   e.str("REDIS_PASSWORD", ""),
		ProductCacheTTL: e.dur("PRODUCT_CACHE_TTL", 10*time.Minute),

		DefaultCountry:        e.str("DEFAULT_COUNTRY", "JP"),
		ShippingFee:           int64(e.num("SHIPPING_FEE", 500)),
		FreeShippingThreshold: int64(e.num("FREE_SHIPPING_THRESHOLD", 5000)),
		TaxRate:               e.dec("TAX_RATE", decimal.RequireFromString("0.10")),

		OrderNumberRetries: e.num("ORDER_NUMBER_RETRIES", 3),
	}

	tz := e.str("ORDER_NUMBER_TZ", "Asia/Tokyo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("ORDER_NUMBER_TZ: %w", err))
	}
	cfg.OrderNumberLocation = loc

	if len(e.errs) > 0 {
		return Config{}, e.errs[0]
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_HOST is required")
		}
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
	}

	//範囲チェック
	if cfg.GoEnv != "dev" && cfg.GoEnv != "prod" && cfg.GoEnv != "test" {
		return Config{}, fmt.Errorf("GO_ENV must be dev, prod or test")
	}
	if cfg.ShippingFee < 0 || cfg.FreeShippingThreshold < 0 {
		return Config{}, fmt.Errorf("SHIPPING_FEE and FREE_SHIPPING_THRESHOLD must not be negative")
	}
	if cfg.TaxRate.IsNegative() || cfg.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("TAX_RATE must be between 0 and 1")
	}
	if cfg.OrderNumberRetries < 1 {
		return Config{}, fmt.Errorf("ORDER_NUMBER_RETRIES must be >= 1")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return Config{}, fmt.Errorf("token TTLs must be positive")
	}

	return cfg, nil
}

// 読み取り中のエラーはまとめて最初の1つを返す
type env struct {
	get  func(string) string
	errs []error
}

func (e *env) str(key, def string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return def
}

func (e *env) num(key string, def int) int {
	v := e.get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be number: %w", key, err))
		return def
	}
	return i
}

func (e *env) flag(key string, def bool) bool {
	v := e.get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be bool: %w", key, err))
		return def
	}
	return b
}

func (e *env) dur(key string, def time.Duration) time.Duration {
	v := e.get(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be duration: %w", key, err))
		return def
	}
	return d
}

func (e *env) dec(key string, def decimal.Decimal) decimal.Decimal {
	v := e.get(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be decimal: %w", key, err))
		return def
	}
	return d
}
