package middleware

import (
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/riyal-pay/riyal_wallet/internal/httpx"
	"github.com/riyal-pay/riyal_wallet/internal/logging"
)

func TestRateLimitPerUser(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-User") == "2" {
			c.Locals(httpx.LocalUserID, int64(2))
		} else {
			c.Locals(httpx.LocalUserID, int64(1))
		}
		return c.Next()
	})
	app.Use(RateLimit(cache, 3, logging.Discard()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	do := func(user string) int {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set("X-User", user)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	for i := 0; i < 3; i++ {
		if got := do("1"); got != fiber.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i+1, got)
		}
	}
	if got := do("1"); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", got)
	}
	if got := do("2"); got != fiber.StatusOK {
		t.Fatalf("other users keep their own budget, got %d", got)
	}

	keys := mr.Keys()
	if len(keys) < 2 {
		t.Fatalf("expected one counter per user, got %v", keys)
	}
	for _, key := range keys {
		if ttl := mr.TTL(key); ttl <= 0 || ttl > rateLimitWindow {
			t.Fatalf("counter %s has ttl %s", key, ttl)
		}
	}
}

func TestRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(nil, 1, logging.Discard()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 got %d", resp.StatusCode)
		}
	}
}
