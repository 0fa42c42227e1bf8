package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound is returned for missing wallets and for wallets owned by
	// someone other than the caller.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletAlreadyExists signals a (user, currency, type) collision.
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	// ErrUnsupportedCurrency is returned for currencies outside the configured set.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrInvalidWalletType is returned for unknown wallet types.
	ErrInvalidWalletType = errors.New("invalid wallet type")
)

// Type distinguishes the purpose of a wallet within one currency.
type Type string

const (
	TypeMain   Type = "main"
	TypeBonus  Type = "bonus"
	TypeSaving Type = "saving"
)

// Valid reports whether t is a known wallet type.
func (t Type) Valid() bool {
	switch t {
	case TypeMain, TypeBonus, TypeSaving:
		return true
	}
	return false
}

// Status of a wallet. Blocked wallets are frozen, never deleted.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Wallet is a per-user, per-currency, per-type balance holder.
type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Currency  string          `json:"currency"`
	Type      Type            `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Active reports whether the wallet accepts balance mutations.
func (w Wallet) Active() bool {
	return w.Status == StatusActive
}

// Key is the natural key of a wallet.
type Key struct {
	UserID   int64
	Currency string
	Type     Type
}

// Key returns the wallet's natural key.
func (w Wallet) Key() Key {
	return Key{UserID: w.UserID, Currency: w.Currency, Type: w.Type}
}
