package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riyal-pay/riyal_wallet/internal/reporting"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

// RegisterWalletRoutes wires wallet and history endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, rh *reporting.Handler) {
	r.Get("/wallets", rh.Summary)
	r.Post("/wallets", h.Create)
	r.Get("/wallets/transactions", rh.Transactions)
	r.Get("/wallets/:walletId<int>", h.Show)
}
