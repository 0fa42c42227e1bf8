package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riyal-pay/riyal_wallet/internal/payments"
)

// RegisterPaymentRoutes wires payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/wallets/transfer", h.Transfer)
}
