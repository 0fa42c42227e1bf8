package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

var (
	// ErrInvalidAmount is returned for amounts that are not positive or carry
	// more than two decimal places, and for negative fees.
	ErrInvalidAmount = errors.New("amount must be positive with at most 2 decimal places")

	// ErrInsufficientBalance occurs when the locked wallet cannot cover the
	// requested debit including fees.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCurrencyMismatch is returned when a transfer joins wallets of different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrSameWallet is returned when a transfer names the same wallet twice.
	ErrSameWallet = errors.New("cannot transfer to the same wallet")

	// ErrTransactionNotFound is returned for unknown entries and for entries the
	// caller may not see.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNotPending is returned when an operation needs a pending entry.
	ErrNotPending = errors.New("transaction is not pending")

	// ErrNotCreditType is returned when a confirmation targets a non-credit entry.
	ErrNotCreditType = errors.New("transaction is not a credit")

	// ErrInvalidOutcome is returned for confirmation outcomes other than success or failed.
	ErrInvalidOutcome = errors.New("invalid outcome")

	// ErrLockTimeout means a wallet or entry lock could not be acquired in time.
	// Nothing was written; the caller may retry.
	ErrLockTimeout = errors.New("lock wait timeout")

	// ErrWalletBlocked is returned when a mutation targets a blocked wallet.
	ErrWalletBlocked = errors.New("wallet is blocked")
)

// MoneyPlaces is the number of decimal places amounts may carry.
const MoneyPlaces = 2

// PageSize is the fixed page size of transaction listings.
const PageSize = 20

// Store runs units of work against wallet and transaction rows. Implementations
// must make everything done through one Tx visible atomically or not at all.
type Store interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
	Transaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, q ListQuery) ([]Transaction, int64, error)
}

// Tx is the set of operations available inside one unit of work. Lock methods
// hold their row until the unit of work ends.
type Tx interface {
	// LockWallet returns wallet.ErrWalletNotFound for unknown ids.
	LockWallet(ctx context.Context, id int64) (wallet.Wallet, error)
	UpdateBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error
	// LockTransaction and LockTransactionByReference return ErrTransactionNotFound
	// when nothing matches. By reference, the lowest id wins.
	LockTransaction(ctx context.Context, id int64) (Transaction, error)
	LockTransactionByReference(ctx context.Context, reference string) (Transaction, error)
	// NextSequence hands out the next posting sequence number.
	NextSequence(ctx context.Context) (int64, error)
	// Insert stores a new entry and returns it with ID and timestamps set.
	Insert(ctx context.Context, t Transaction) (Transaction, error)
	// Update rewrites the mutable fields of an entry: status, balances,
	// sequence, description and meta.
	Update(ctx context.Context, t Transaction) (Transaction, error)
}

// Recorder observes engine operations. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	ObserveOperation(op, result string, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, float64) {}
