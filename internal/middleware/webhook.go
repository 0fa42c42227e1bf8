package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const webhookTokenHeader = "X-Webhook-Token"

// WebhookToken admits gateway callbacks carrying the shared secret.
func WebhookToken(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(webhookTokenHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return fiber.NewError(http.StatusUnauthorized, "invalid webhook token")
		}
		return c.Next()
	}
}
