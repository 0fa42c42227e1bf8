package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/riyal-pay/riyal_wallet/internal/funding"
	"github.com/riyal-pay/riyal_wallet/internal/httpx"
	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/payments"
	"github.com/riyal-pay/riyal_wallet/internal/reporting"
	"github.com/riyal-pay/riyal_wallet/internal/validation"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var domainErrors = []errorMapping{
	{wallet.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND", "Wallet not found."},
	{wallet.ErrWalletAlreadyExists, http.StatusConflict, "WALLET_EXISTS", "A wallet with this currency and type already exists."},
	{wallet.ErrUnsupportedCurrency, http.StatusUnprocessableEntity, "UNSUPPORTED_CURRENCY", "Currency is not supported."},
	{wallet.ErrInvalidWalletType, http.StatusUnprocessableEntity, "INVALID_WALLET_TYPE", "Wallet type is not supported."},
	{ledger.ErrInvalidAmount, http.StatusUnprocessableEntity, "INVALID_AMOUNT", "Amount must be positive with at most 2 decimal places."},
	{ledger.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Insufficient balance."},
	{ledger.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "CURRENCY_MISMATCH", "Wallet currencies do not match."},
	{ledger.ErrSameWallet, http.StatusUnprocessableEntity, "SAME_WALLET", "Cannot transfer to the same wallet."},
	{payments.ErrSelfTransfer, http.StatusUnprocessableEntity, "SELF_TRANSFER", "Cannot transfer to yourself."},
	{payments.ErrRecipientNotFound, http.StatusNotFound, "RECIPIENT_NOT_FOUND", "Recipient not found."},
	{ledger.ErrWalletBlocked, http.StatusForbidden, "WALLET_BLOCKED", "Wallet is blocked."},
	{ledger.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found."},
	{ledger.ErrNotPending, http.StatusConflict, "TRANSACTION_NOT_PENDING", "Transaction is not pending."},
	{ledger.ErrNotCreditType, http.StatusConflict, "TRANSACTION_NOT_CREDIT", "Transaction is not a top-up."},
	{ledger.ErrInvalidOutcome, http.StatusBadRequest, "INVALID_STATUS", "Status must be success or failed."},
	{funding.ErrDevTopUpDisabled, http.StatusForbidden, "DEV_TOPUP_DISABLED", "Dev top-up is disabled."},
}

// ErrorHandler renders every handler error as a response envelope.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return httpx.Fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "The given data was invalid.", verrs)
		}

		var missing *reporting.MissingRatesError
		if errors.As(err, &missing) {
			return httpx.Fail(c, http.StatusUnprocessableEntity, "EXCHANGE_RATE_MISSING",
				"Missing exchange rates for some currencies.", fiber.Map{"currencies": missing.Currencies})
		}

		if errors.Is(err, ledger.ErrLockTimeout) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return httpx.Fail(c, http.StatusServiceUnavailable, "LOCK_TIMEOUT", "The wallet is busy, please retry.", nil)
		}

		for _, m := range domainErrors {
			if errors.Is(err, m.target) {
				return httpx.Fail(c, m.status, m.code, m.message, nil)
			}
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return httpx.Fail(c, fe.Code, statusCode(fe.Code), fe.Message, nil)
		}

		logger.Error("unhandled request error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
		return httpx.Fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong.", nil)
	}
}

// statusCode turns 404 into NOT_FOUND.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
