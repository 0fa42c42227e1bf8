package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/riyal-pay/riyal_wallet/internal/httpx"
)

const (
	rateLimitPrefix = "rl:wallet:"
	rateLimitWindow = time.Minute
)

// RateLimit allows maxPerMin requests per authenticated user and minute,
// falling back to the client IP before authentication. It fails open when
// Redis is unavailable.
func RateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := c.IP()
		if uid, err := httpx.UserID(c); err == nil {
			subject = strconv.FormatInt(uid, 10)
		}
		window := time.Now().Unix() / 60
		key := rateLimitPrefix + subject + ":" + strconv.FormatInt(window, 10)

		var incr *redis.IntCmd
		_, err := cache.TxPipelined(c.UserContext(), func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(c.UserContext(), key)
			// the key already names its minute, so refreshing the ttl is harmless
			pipe.Expire(c.UserContext(), key, rateLimitWindow)
			return nil
		})
		if err != nil {
			logger.Warn("rate limit lookup failed", slog.Any("error", err))
			return c.Next()
		}
		if incr.Val() > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(60-time.Now().Unix()%60, 10))
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
