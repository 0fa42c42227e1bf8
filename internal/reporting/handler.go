package reporting

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riyal-pay/riyal_wallet/internal/httpx"
	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

// Handler exposes the wallet summary and transaction history.
type Handler struct {
	service *Service
	wallets *wallet.Service
	engine  *ledger.Engine
}

// NewHandler builds a reporting handler.
func NewHandler(service *Service, wallets *wallet.Service, engine *ledger.Engine) *Handler {
	return &Handler{service: service, wallets: wallets, engine: engine}
}

// Summary lists the caller's wallets with converted totals.
func (h *Handler) Summary(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), uid, c.Query("currency"))
	if err != nil {
		return err
	}
	return httpx.OK(c, "Wallet summary", summary)
}

// Transactions pages through one of the caller's wallets, newest first.
// Without wallet_id the main wallet in the default currency is used.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	walletID, err := httpx.QueryID(c, "wallet_id")
	if err != nil {
		return err
	}
	w, err := h.wallets.Resolve(c.UserContext(), uid, walletID)
	if err != nil {
		return err
	}
	page, err := h.engine.ListTransactions(c.UserContext(), ledger.ListQuery{WalletID: w.ID, Page: httpx.Page(c)})
	if err != nil {
		return err
	}
	return httpx.OK(c, "", page)
}
