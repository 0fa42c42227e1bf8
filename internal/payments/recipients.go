package payments

import (
	"context"

	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

// Recipients reports whether a user id may receive transfers. The identity
// service owns users; until a client for it is wired in, WalletHolders is
// used.
type Recipients interface {
	Active(ctx context.Context, userID int64) (bool, error)
}

// WalletHolders accepts only users who already hold a wallet, which rules out
// ids that never signed in.
type WalletHolders struct {
	Wallets *wallet.Service
}

// Active reports whether userID holds at least one wallet.
func (h WalletHolders) Active(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, nil
	}
	ws, err := h.Wallets.List(ctx, userID, "")
	if err != nil {
		return false, err
	}
	return len(ws) > 0, nil
}
