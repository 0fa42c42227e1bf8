package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// RegisterHealthRoutes adds /healthz (process liveness) and /readyz (store and
// cache reachability). Without DATABASE_URL the ledger is in memory and reports
// "memory"; without REDIS_URL the cache reports "disabled".
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	started := time.Now()

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": d.Cfg.AppName,
			"env":     d.Cfg.AppEnv,
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	})

	app.Get("/readyz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		ready := true
		store, cache := "memory", "disabled"
		if d.DB != nil {
			store = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				d.Logger.Warn("readiness: postgres unreachable", "error", err)
				store, ready = err.Error(), false
			}
		}
		if d.Cache != nil {
			cache = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				d.Logger.Warn("readiness: redis unreachable", "error", err)
				cache, ready = err.Error(), false
			}
		}

		status := fiber.StatusOK
		if !ready {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"ready":     ready,
			"checks":    fiber.Map{"postgres": store, "redis": cache},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
