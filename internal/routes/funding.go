package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riyal-pay/riyal_wallet/internal/funding"
	"github.com/riyal-pay/riyal_wallet/internal/middleware"
)

// RegisterFundingRoutes wires top-up and withdrawal endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, devTopUp bool) {
	r.Post("/wallets/top-up/quote", h.Quote)
	r.Post("/wallets/top-up", h.TopUp)
	if devTopUp {
		r.Post("/wallets/top-up/dev", h.DevTopUp)
	}
	r.Post("/wallets/withdraw", h.Withdraw)
	r.Get("/wallets/withdrawals", h.Withdrawals)
	r.Post("/wallets/withdrawals/:id<int>/cancel", h.CancelWithdraw)
}

// RegisterWebhookRoutes wires the payment gateway callbacks.
func RegisterWebhookRoutes(r fiber.Router, h *funding.Handler, token string) {
	hooks := r.Group("/webhooks", middleware.WebhookToken(token))
	hooks.Post("/top-up", h.Webhook)
	hooks.Post("/withdraw", h.PayoutWebhook)
}
