package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

var (
	// ErrSelfTransfer indicates the caller tried to pay themselves.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")
	// ErrRecipientNotFound indicates the payee is not a known user.
	ErrRecipientNotFound = errors.New("recipient not found")
)

// Service moves money between users' wallets.
type Service struct {
	engine     *ledger.Engine
	wallets    *wallet.Service
	recipients Recipients
}

// NewService constructs a payment service. A nil recipients falls back to
// WalletHolders.
func NewService(engine *ledger.Engine, wallets *wallet.Service, recipients Recipients) *Service {
	if recipients == nil {
		recipients = WalletHolders{Wallets: wallets}
	}
	return &Service{engine: engine, wallets: wallets, recipients: recipients}
}

// TransferInput captures a user-to-user payment. A nil FromWalletID pays
// from the caller's main wallet in the default currency.
type TransferInput struct {
	UserID       int64
	FromWalletID *int64
	ToUserID     int64
	Amount       decimal.Decimal
	Note         string
}

// Transfer pays ToUserID's main wallet in the source wallet's currency,
// opening that wallet on first use. Unknown recipients are rejected before
// any wallet is touched.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (ledger.TransferResult, error) {
	if in.ToUserID == in.UserID {
		return ledger.TransferResult{}, ErrSelfTransfer
	}
	if !in.Amount.IsPositive() {
		return ledger.TransferResult{}, ledger.ErrInvalidAmount
	}

	ok, err := s.recipients.Active(ctx, in.ToUserID)
	if err != nil {
		return ledger.TransferResult{}, fmt.Errorf("recipient lookup: %w", err)
	}
	if !ok {
		return ledger.TransferResult{}, ErrRecipientNotFound
	}

	from, err := s.wallets.Resolve(ctx, in.UserID, in.FromWalletID)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	to, err := s.wallets.GetOrCreateMain(ctx, in.ToUserID, from.Currency)
	if err != nil {
		return ledger.TransferResult{}, fmt.Errorf("recipient wallet: %w", err)
	}

	return s.engine.Transfer(ctx, from.ID, to.ID, in.Amount, in.Note)
}
