package wallet

import "context"

// Repository persists wallet rows. Balance changes never go through it; the
// ledger engine owns them.
type Repository interface {
	// Create inserts a wallet with zero balance and returns the stored row.
	// A (user, currency, type) collision yields ErrWalletAlreadyExists.
	Create(ctx context.Context, w Wallet) (Wallet, error)
	// Get returns ErrWalletNotFound when the id is unknown.
	Get(ctx context.Context, id int64) (Wallet, error)
	// FindByKey returns ErrWalletNotFound when no wallet has the key.
	FindByKey(ctx context.Context, key Key) (Wallet, error)
	// ListByUser returns the user's wallets ordered by id; an empty currency
	// means all currencies.
	ListByUser(ctx context.Context, userID int64, currency string) ([]Wallet, error)
}
