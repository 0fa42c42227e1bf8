package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/riyal-pay/riyal_wallet/internal/httpx"
	"github.com/riyal-pay/riyal_wallet/internal/validation"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Currency string `json:"currency" validate:"required,currency"`
	Type     Type   `json:"type" validate:"omitempty,oneof=main bonus saving"`
}

// Create opens a new wallet for the caller; an existing (currency, type) is a conflict.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{
		UserID:       uid,
		Currency:     req.Currency,
		Type:         req.Type,
		FailIfExists: true,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, "Wallet created", w)
}

// Show returns one of the caller's wallets.
func (h *Handler) Show(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	walletID, err := httpx.ParamID(c, "walletId")
	if err != nil {
		return ErrWalletNotFound
	}
	w, err := h.service.GetOwned(c.UserContext(), uid, walletID)
	if err != nil {
		return err
	}
	return httpx.OK(c, "", w)
}
