package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/auth"
	"github.com/riyal-pay/riyal_wallet/internal/config"
	"github.com/riyal-pay/riyal_wallet/internal/fee"
	"github.com/riyal-pay/riyal_wallet/internal/funding"
	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/metrics"
	"github.com/riyal-pay/riyal_wallet/internal/middleware"
	"github.com/riyal-pay/riyal_wallet/internal/payments"
	"github.com/riyal-pay/riyal_wallet/internal/reporting"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development: wallets then live in memory and the Redis
// backed middleware is skipped.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// walletLedger is what a storage backend provides: the ledger unit of work,
// wallet records and the reporting read model.
type walletLedger interface {
	ledger.Store
	wallet.Repository
	reporting.Activity
}

// devRates prices the default currencies when no exchange_rates table is
// available.
var devRates = reporting.StaticRates{
	"QAR/USD": decimal.RequireFromString("0.2747"),
	"EUR/USD": decimal.RequireFromString("1.08"),
	"JOD/USD": decimal.RequireFromString("1.4104"),
	"USD/ILS": decimal.RequireFromString("3.70"),
	"USD/EGP": decimal.RequireFromString("48.50"),
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	m := metrics.New(d.Registry)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	app.Use(m.Instrument())

	var (
		store walletLedger
		rates reporting.RateSource
	)
	if d.DB != nil {
		store = ledger.NewPostgresLedger(d.DB, d.Cfg.LockTimeout)
		rates = reporting.NewPostgresRates(d.DB)
	} else {
		d.Logger.Warn("DATABASE_URL not set, wallets are kept in memory")
		store = ledger.NewInMemory(d.Cfg.LockTimeout)
		rates = devRates
	}
	if d.Cache != nil {
		rates = reporting.NewCachedRates(rates, d.Cache, d.Cfg.RateCacheTTL, d.Logger)
	}

	engine := ledger.NewEngine(store, ledger.WithLogger(d.Logger), ledger.WithRecorder(m))
	walletSvc, err := wallet.NewService(store, wallet.Config{
		DefaultCurrency:     d.Cfg.DefaultCurrency,
		SupportedCurrencies: d.Cfg.SupportedCurrencies,
	})
	if err != nil {
		return err
	}
	fundingSvc, err := funding.NewService(engine, walletSvc, funding.HostedCheckout{BaseURL: d.Cfg.TopUpPaymentURL}, funding.Config{
		TopUpFee:        fee.Policy{PercentRate: d.Cfg.TopUpFee.Percent, FlatRate: d.Cfg.TopUpFee.Flat},
		WithdrawFee:     fee.Policy{PercentRate: d.Cfg.WithdrawFee.Percent, FlatRate: d.Cfg.WithdrawFee.Flat},
		DevTopUpEnabled: d.Cfg.DevTopUpEnabled,
	})
	if err != nil {
		return err
	}
	reportingSvc, err := reporting.NewService(walletSvc, store, rates, d.Cfg.ReportingCurrency)
	if err != nil {
		return err
	}
	paymentSvc := payments.NewService(engine, walletSvc, nil)

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", metrics.Handler(d.Registry))

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	fundingHandler := funding.NewHandler(fundingSvc)
	RegisterWebhookRoutes(api, fundingHandler, d.Cfg.TopUpWebhookToken)

	protected := api.Group("",
		middleware.JWTAuth(auth.NewVerifier(d.Cfg.JWTSecret)),
		middleware.RequireActive(),
	)
	if d.Cache != nil {
		protected.Use(middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute, d.Logger))
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc), reporting.NewHandler(reportingSvc, walletSvc, engine))
	RegisterFundingRoutes(protected, fundingHandler, d.Cfg.DevTopUpEnabled)
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc))
	return nil
}
