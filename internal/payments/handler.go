package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/httpx"
	"github.com/riyal-pay/riyal_wallet/internal/validation"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	FromWalletID *int64          `json:"from_wallet_id" validate:"omitempty,gt=0"`
	ToUserID     int64           `json:"to_user_id" validate:"required,gt=0"`
	Amount       decimal.Decimal `json:"amount" validate:"money"`
	Note         string          `json:"note" validate:"max=255"`
}

// Transfer processes a user-to-user payment.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		UserID:       uid,
		FromWalletID: req.FromWalletID,
		ToUserID:     req.ToUserID,
		Amount:       req.Amount,
		Note:         req.Note,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, "Transfer completed", res)
}
