package funding

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/riyal-pay/riyal_wallet/internal/httpx"
	"github.com/riyal-pay/riyal_wallet/internal/validation"
)

// Handler exposes HTTP endpoints for top-ups and withdrawals.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func parseAmount(c *fiber.Ctx) (int64, AmountRequest, error) {
	uid, err := httpx.UserID(c)
	if err != nil {
		return 0, AmountRequest{}, err
	}
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, AmountRequest{}, fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return 0, AmountRequest{}, err
	}
	return uid, req, nil
}

// Quote previews the fee of a top-up.
func (h *Handler) Quote(c *fiber.Ctx) error {
	uid, req, err := parseAmount(c)
	if err != nil {
		return err
	}
	q, err := h.service.Quote(c.UserContext(), QuoteInput{UserID: uid, WalletID: req.WalletID, Amount: req.Amount})
	if err != nil {
		return err
	}
	return httpx.OK(c, "", q)
}

// TopUp starts a gateway top-up and returns the payment link.
func (h *Handler) TopUp(c *fiber.Ctx) error {
	uid, req, err := parseAmount(c)
	if err != nil {
		return err
	}
	res, err := h.service.InitiateTopUp(c.UserContext(), TopUpInput{
		UserID:   uid,
		WalletID: req.WalletID,
		Amount:   req.Amount,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, "Top-up initiated", res)
}

// DevTopUp credits the caller's wallet directly. Only routed when enabled.
func (h *Handler) DevTopUp(c *fiber.Ctx) error {
	uid, req, err := parseAmount(c)
	if err != nil {
		return err
	}
	entry, err := h.service.DevTopUp(c.UserContext(), DevTopUpInput{
		UserID:   uid,
		WalletID: req.WalletID,
		Amount:   req.Amount,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, "Wallet topped up", entry)
}

// Withdraw requests a payout.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	uid, req, err := parseAmount(c)
	if err != nil {
		return err
	}
	entry, err := h.service.RequestWithdraw(c.UserContext(), WithdrawInput{
		UserID:   uid,
		WalletID: req.WalletID,
		Amount:   req.Amount,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, "Withdrawal requested", entry)
}

// Withdrawals lists the caller's withdraw requests.
func (h *Handler) Withdrawals(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	walletID, err := httpx.QueryID(c, "wallet_id")
	if err != nil {
		return err
	}
	page, err := h.service.ListWithdrawals(c.UserContext(), uid, walletID, httpx.Page(c))
	if err != nil {
		return err
	}
	return httpx.OK(c, "", page)
}

// CancelWithdraw cancels a pending withdraw request.
func (h *Handler) CancelWithdraw(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		return err
	}
	entry, err := h.service.CancelWithdraw(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return httpx.OK(c, "Withdrawal canceled", entry)
}

// Webhook receives the gateway's top-up verdict. Redeliveries are answered
// with the entry as already settled.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	var req WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	entry, err := h.service.ConfirmTopUp(c.UserContext(), req.Reference, req.Status)
	if err != nil {
		return err
	}
	return httpx.OK(c, "Top-up processed", entry)
}

// PayoutWebhook receives the payout provider's verdict for a withdrawal.
func (h *Handler) PayoutWebhook(c *fiber.Ctx) error {
	var req PayoutWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	entry, err := h.service.SettleWithdraw(c.UserContext(), req.TransactionID, req.Status)
	if err != nil {
		return err
	}
	return httpx.OK(c, "Withdrawal processed", entry)
}
