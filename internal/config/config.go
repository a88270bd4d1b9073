package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string

	StripeSecretKey string
	IyzicoAPIKey    string
	IyzicoSecret    string

	CurrencyCode          string
	TaxRatePercent        decimal.Decimal
	DefaultCommissionRate decimal.Decimal

	// PlatformAccountID is the ledger account credited with the platform
	// share of approved donations. Settlement refuses to run without it.
	PlatformAccountID    int64
	DonationPlatformCut  decimal.Decimal
	IncentiveStepAmount  decimal.Decimal
	IncentiveStepPercent decimal.Decimal
	IncentiveMaxPercent  decimal.Decimal
	IncentiveCouponTTL   time.Duration

	OrderPaymentTTL time.Duration
	IdempotencyTTL  time.Duration
	RateLimitRPM    int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "kodpazar"),
		JWTAudience:        valueOrDefault(k.String("JWT_AUDIENCE"), "kodpazar-api"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StripeSecretKey: k.String("STRIPE_SECRET_KEY"),
		IyzicoAPIKey:    k.String("IYZICO_API_KEY"),
		IyzicoSecret:    k.String("IYZICO_SECRET"),

		CurrencyCode:          valueOrDefault(k.String("CURRENCY_CODE"), "TRY"),
		TaxRatePercent:        parseDecimal(k.String("TAX_RATE_PERCENT"), "18"),
		DefaultCommissionRate: parseDecimal(k.String("DEFAULT_COMMISSION_RATE"), "15"),

		PlatformAccountID:    k.Int64("PLATFORM_ACCOUNT_ID"),
		DonationPlatformCut:  parseDecimal(k.String("DONATION_PLATFORM_CUT_PERCENT"), "30"),
		IncentiveStepAmount:  parseDecimal(k.String("INCENTIVE_STEP_AMOUNT"), "1000"),
		IncentiveStepPercent: parseDecimal(k.String("INCENTIVE_STEP_PERCENT"), "10"),
		IncentiveMaxPercent:  parseDecimal(k.String("INCENTIVE_MAX_PERCENT"), "50"),
		IncentiveCouponTTL:   parseDuration(k.String("INCENTIVE_COUPON_TTL"), "8760h"),

		OrderPaymentTTL: parseDuration(k.String("ORDER_PAYMENT_TTL"), "30m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitRPM:    parseInt(k.String("RATE_LIMIT_RPM"), 120),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseDecimal(value, fallback string) decimal.Decimal {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := decimal.NewFromString(base)
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(base, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
