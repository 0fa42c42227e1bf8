package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultAppName          = "RiyalWallet"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultLockTimeout      = 5 * time.Second
	defaultCurrency         = "QAR"
	defaultCurrencies       = "QAR,USD,EUR,ILS,JOD,EGP"
	defaultReportingCurr    = "USD"
	defaultRateCacheTTL     = 5 * time.Minute
	defaultRateLimit        = 60
	defaultDBMaxConns       = 10
	devJWTSecret            = "dev-secret-change-me"
	devWebhookToken         = "dev-webhook-token"
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	lockTimeoutEnvVar       = "LOCK_TIMEOUT"
	rateCacheTTLEnvVar      = "RATE_CACHE_TTL"
	defaultTopUpPaymentURL  = "http://localhost:8080/pay"
	supportedCurrenciesEnv  = "WALLET_SUPPORTED_CURRENCIES"
	defaultCurrencyEnv      = "WALLET_DEFAULT_CURRENCY"
	rateLimitPerMinuteEnv   = "RATE_LIMIT_PER_MINUTE"
	devTopUpEnabledEnv      = "DEV_TOPUP_ENABLED"
	dbMaxConnsEnv           = "DB_MAX_CONNS"
	topUpWebhookTokenEnvVar = "TOPUP_WEBHOOK_TOKEN"
)

// FeeRates is a percent plus flat fee pair read from the environment.
type FeeRates struct {
	Percent decimal.Decimal
	Flat    decimal.Decimal
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	DBMaxConns     int32
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	LockTimeout    time.Duration
	JWTSecret      string

	DefaultCurrency     string
	SupportedCurrencies []string

	TopUpFee          FeeRates
	WithdrawFee       FeeRates
	TopUpPaymentURL   string
	TopUpWebhookToken string
	DevTopUpEnabled   bool

	RateLimitPerMinute int
	ReportingCurrency  string
	RateCacheTTL       time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		DefaultCurrency:    strings.ToUpper(getEnv(defaultCurrencyEnv, defaultCurrency)),
		TopUpPaymentURL:    getEnv("TOPUP_PAYMENT_URL", defaultTopUpPaymentURL),
		TopUpWebhookToken:  os.Getenv(topUpWebhookTokenEnvVar),
		ReportingCurrency:  strings.ToUpper(getEnv("REPORTING_CURRENCY", defaultReportingCurr)),
		RateLimitPerMinute: defaultRateLimit,
		DBMaxConns:         defaultDBMaxConns,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = durationFromEnv("", lockTimeoutEnvVar, defaultLockTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RateCacheTTL, err = durationFromEnv("", rateCacheTTLEnvVar, defaultRateCacheTTL); err != nil {
		return Config{}, err
	}

	cfg.SupportedCurrencies = parseCurrencies(getEnv(supportedCurrenciesEnv, defaultCurrencies))

	if cfg.TopUpFee, err = feeFromEnv("TOPUP_FEE_PERCENT", "TOPUP_FEE_FLAT"); err != nil {
		return Config{}, err
	}
	if cfg.WithdrawFee, err = feeFromEnv("WITHDRAW_FEE_PERCENT", "WITHDRAW_FEE_FLAT"); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(devTopUpEnabledEnv); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", devTopUpEnabledEnv, err)
		}
		cfg.DevTopUpEnabled = enabled
	}

	if v := os.Getenv(rateLimitPerMinuteEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", rateLimitPerMinuteEnv, err)
		}
		cfg.RateLimitPerMinute = n
	}

	if v := os.Getenv(dbMaxConnsEnv); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", dbMaxConnsEnv, v)
		}
		cfg.DBMaxConns = int32(n)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.LockTimeout <= 0 {
		return fmt.Errorf("%s must be positive", lockTimeoutEnvVar)
	}
	if !c.Supports(c.DefaultCurrency) {
		return fmt.Errorf("%s %q is not in %s", defaultCurrencyEnv, c.DefaultCurrency, supportedCurrenciesEnv)
	}

	if c.IsDevelopment() {
		if c.JWTSecret == "" {
			c.JWTSecret = devJWTSecret
		}
		if c.TopUpWebhookToken == "" {
			c.TopUpWebhookToken = devWebhookToken
		}
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.TopUpWebhookToken == "" {
		return fmt.Errorf("%s must be set", topUpWebhookTokenEnvVar)
	}
	if c.DevTopUpEnabled {
		return fmt.Errorf("%s is only allowed when APP_ENV is development", devTopUpEnabledEnv)
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether the app runs in a local environment where
// Postgres and Redis are optional.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Supports reports whether currency is one of the configured wallet currencies.
func (c Config) Supports(currency string) bool {
	for _, code := range c.SupportedCurrencies {
		if code == currency {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationFromEnv reads an integer seconds variable first, then a Go duration string.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func feeFromEnv(percentKey, flatKey string) (FeeRates, error) {
	rates := FeeRates{Percent: decimal.Zero, Flat: decimal.Zero}
	for key, dst := range map[string]*decimal.Decimal{percentKey: &rates.Percent, flatKey: &rates.Flat} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return FeeRates{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if d.IsNegative() {
			return FeeRates{}, fmt.Errorf("%s must not be negative", key)
		}
		*dst = d
	}
	return rates, nil
}

func parseCurrencies(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
