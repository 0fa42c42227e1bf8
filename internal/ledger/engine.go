package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

// Engine performs every balance mutation. Each exported method is one atomic
// unit of work against the Store: wallet rows are locked, the new balance is
// computed from the locked value, and the balance update and ledger entries
// commit together.
type Engine struct {
	store    Store
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for committed operations.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the operation metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock overrides the clock used for references.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Credit adds amount to the wallet and records a completed credit entry.
func (e *Engine) Credit(ctx context.Context, walletID int64, amount decimal.Decimal, description string, meta Meta) (Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return Transaction{}, err
	}

	var out Transaction
	err := e.run(ctx, "credit", func(tx Tx) error {
		w, err := lockActive(ctx, tx, walletID)
		if err != nil {
			return err
		}
		entry := newEntry(KindCredit, StatusCompleted, amount, decimal.Zero)
		entry.Description = description
		entry.Meta = meta
		out, err = e.post(ctx, tx, &w, entry)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	e.logCommitted("credit", out)
	return out, nil
}

// Debit removes amount from the wallet and records a completed debit entry.
func (e *Engine) Debit(ctx context.Context, walletID int64, amount decimal.Decimal, description string, meta Meta) (Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return Transaction{}, err
	}

	var out Transaction
	err := e.run(ctx, "debit", func(tx Tx) error {
		w, err := lockActive(ctx, tx, walletID)
		if err != nil {
			return err
		}
		entry := newEntry(KindDebit, StatusCompleted, amount, decimal.Zero)
		entry.Description = description
		entry.Meta = meta
		out, err = e.post(ctx, tx, &w, entry)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	e.logCommitted("debit", out)
	return out, nil
}

// Transfer moves amount between two wallets of the same currency. Both legs
// share one TRF reference and commit together or not at all.
func (e *Engine) Transfer(ctx context.Context, fromWalletID, toWalletID int64, amount decimal.Decimal, note string) (TransferResult, error) {
	if err := ValidateAmount(amount); err != nil {
		return TransferResult{}, err
	}
	if fromWalletID == toWalletID {
		return TransferResult{}, ErrSameWallet
	}

	reference := NewReference(PrefixTransfer, fromWalletID, e.now())
	var res TransferResult
	err := e.run(ctx, "transfer", func(tx Tx) error {
		from, to, err := lockPair(ctx, tx, fromWalletID, toWalletID)
		if err != nil {
			return err
		}
		if from.Currency != to.Currency {
			return ErrCurrencyMismatch
		}
		if !from.Active() || !to.Active() {
			return ErrWalletBlocked
		}

		debit := newEntry(KindDebit, StatusCompleted, amount, decimal.Zero)
		debit.Reference = reference
		debit.Description = fmt.Sprintf("Transfer to wallet #%d", to.ID)
		debit.Meta = TransferMeta{Direction: DirectionOutgoing, CounterpartyWalletID: to.ID, CounterpartyUserID: to.UserID, Note: note}
		if res.Debit, err = e.post(ctx, tx, &from, debit); err != nil {
			return err
		}

		credit := newEntry(KindCredit, StatusCompleted, amount, decimal.Zero)
		credit.Reference = reference
		credit.Description = fmt.Sprintf("Transfer from wallet #%d", from.ID)
		credit.Meta = TransferMeta{Direction: DirectionIncoming, CounterpartyWalletID: from.ID, CounterpartyUserID: from.UserID, Note: note}
		if res.Credit, err = e.post(ctx, tx, &to, credit); err != nil {
			return err
		}
		res.Reference = reference
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	e.logger.Info("ledger transfer committed",
		slog.String("reference", reference),
		slog.Int64("from_wallet_id", fromWalletID),
		slog.Int64("to_wallet_id", toWalletID),
		slog.Int64("debit_id", res.Debit.ID),
		slog.Int64("credit_id", res.Credit.ID),
		slog.String("amount", amount.StringFixed(MoneyPlaces)),
	)
	return res, nil
}

// PendingCreditInput describes an externally funded credit awaiting confirmation.
type PendingCreditInput struct {
	WalletID    int64
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Reference   string
	Description string
	Meta        Meta
}

// InitiatePendingCredit records a pending credit without touching the balance.
// The balance columns carry the current balance for display until confirmation.
func (e *Engine) InitiatePendingCredit(ctx context.Context, in PendingCreditInput) (Transaction, error) {
	if err := ValidateAmount(in.Amount); err != nil {
		return Transaction{}, err
	}
	if err := validateFee(in.Fee); err != nil {
		return Transaction{}, err
	}
	reference := in.Reference
	if reference == "" {
		reference = NewReference(PrefixTopUp, in.WalletID, e.now())
	}

	var out Transaction
	err := e.run(ctx, "initiate_pending_credit", func(tx Tx) error {
		w, err := lockActive(ctx, tx, in.WalletID)
		if err != nil {
			return err
		}
		entry := newEntry(KindCredit, StatusPending, in.Amount, in.Fee)
		entry.UserID = w.UserID
		entry.WalletID = w.ID
		entry.BalanceBefore = w.Balance
		entry.BalanceAfter = w.Balance
		entry.Reference = reference
		entry.Description = in.Description
		entry.Meta = in.Meta
		out, err = tx.Insert(ctx, entry)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	e.logCommitted("pending credit", out)
	return out, nil
}

// ConfirmPendingCredit settles the pending credit identified by reference.
// Success credits Amount (the fee was charged outside the wallet); failure
// only marks the entry. Entries that are no longer pending are returned
// unchanged, so repeated webhook deliveries are harmless.
func (e *Engine) ConfirmPendingCredit(ctx context.Context, reference string, outcome Outcome) (Transaction, error) {
	if _, err := ParseOutcome(string(outcome)); err != nil {
		return Transaction{}, err
	}

	var (
		out     Transaction
		changed bool
	)
	err := e.run(ctx, "confirm_pending_credit", func(tx Tx) error {
		entry, err := tx.LockTransactionByReference(ctx, reference)
		if err != nil {
			return err
		}
		if entry.Kind != KindCredit {
			return ErrNotCreditType
		}
		if entry.Status != StatusPending {
			out = entry
			return nil
		}

		switch outcome {
		case OutcomeFailed:
			entry.Status = StatusFailed
			entry.Description = "Top-up failed"
			entry.Meta = withGatewayStatus(entry.Meta, string(OutcomeFailed))
		case OutcomeSuccess:
			w, err := lockActive(ctx, tx, entry.WalletID)
			if err != nil {
				return err
			}
			entry.Status = StatusCompleted
			entry.Description = "Top-up successful"
			entry.Meta = withGatewayStatus(entry.Meta, string(OutcomeSuccess))
			if err := e.apply(ctx, tx, &w, &entry); err != nil {
				return err
			}
		}
		out, err = tx.Update(ctx, entry)
		changed = true
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	if changed {
		e.logCommitted("pending credit "+string(outcome), out)
	} else {
		e.logger.Info("pending credit already processed",
			slog.String("reference", reference),
			slog.String("status", string(out.Status)),
		)
	}
	return out, nil
}

// WithdrawInput describes a payout request.
type WithdrawInput struct {
	WalletID    int64
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Reference   string
	Description string
	Note        string
}

// RequestWithdraw holds Amount+Fee on the wallet immediately and records a
// pending withdraw entry. The hold is released by CancelPendingWithdraw or a
// failed SettleWithdraw.
func (e *Engine) RequestWithdraw(ctx context.Context, in WithdrawInput) (Transaction, error) {
	if err := ValidateAmount(in.Amount); err != nil {
		return Transaction{}, err
	}
	if err := validateFee(in.Fee); err != nil {
		return Transaction{}, err
	}
	reference := in.Reference
	if reference == "" {
		reference = NewReference(PrefixWithdraw, in.WalletID, e.now())
	}

	var out Transaction
	err := e.run(ctx, "request_withdraw", func(tx Tx) error {
		w, err := lockActive(ctx, tx, in.WalletID)
		if err != nil {
			return err
		}
		entry := newEntry(KindWithdraw, StatusPending, in.Amount, in.Fee)
		entry.Reference = reference
		entry.Description = in.Description
		entry.Meta = WithdrawMeta{Note: in.Note}
		out, err = e.post(ctx, tx, &w, entry)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	e.logCommitted("withdraw request", out)
	return out, nil
}

// CancelPendingWithdraw rejects a pending withdraw owned by actingUserID and
// gives the held amount back through a completed reversal credit.
func (e *Engine) CancelPendingWithdraw(ctx context.Context, transactionID, actingUserID int64) (Transaction, error) {
	var out Transaction
	err := e.run(ctx, "cancel_withdraw", func(tx Tx) error {
		entry, err := tx.LockTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if entry.Kind != KindWithdraw || entry.UserID != actingUserID {
			return ErrTransactionNotFound
		}
		w, err := tx.LockWallet(ctx, entry.WalletID)
		if err != nil {
			return err
		}
		if w.UserID != actingUserID {
			return ErrTransactionNotFound
		}
		if entry.Status != StatusPending {
			return ErrNotPending
		}

		const reason = "Canceled by user"
		if _, err := e.reverse(ctx, tx, &w, entry, reason); err != nil {
			return err
		}
		entry.Status = StatusRejected
		entry.Description = reason
		entry.Meta = withCancelReason(entry.Meta, reason)
		out, err = tx.Update(ctx, entry)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	e.logCommitted("withdraw canceled", out)
	return out, nil
}

// SettleWithdraw records the payout result for a pending withdraw. Success
// completes the entry; failure marks it failed and reverses the hold. Entries
// that are no longer pending are returned unchanged.
func (e *Engine) SettleWithdraw(ctx context.Context, transactionID int64, outcome Outcome) (Transaction, error) {
	if _, err := ParseOutcome(string(outcome)); err != nil {
		return Transaction{}, err
	}

	var out Transaction
	err := e.run(ctx, "settle_withdraw", func(tx Tx) error {
		entry, err := tx.LockTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if entry.Kind != KindWithdraw {
			return ErrTransactionNotFound
		}
		if entry.Status != StatusPending {
			out = entry
			return nil
		}

		switch outcome {
		case OutcomeSuccess:
			entry.Status = StatusCompleted
		case OutcomeFailed:
			w, err := tx.LockWallet(ctx, entry.WalletID)
			if err != nil {
				return err
			}
			if _, err := e.reverse(ctx, tx, &w, entry, "Payout failed"); err != nil {
				return err
			}
			entry.Status = StatusFailed
		}
		out, err = tx.Update(ctx, entry)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	e.logCommitted("withdraw settled", out)
	return out, nil
}

// ListTransactions returns one page of a wallet's entries, newest first.
func (e *Engine) ListTransactions(ctx context.Context, q ListQuery) (Page, error) {
	items, total, err := e.store.ListTransactions(ctx, q)
	if err != nil {
		return Page{}, err
	}
	return newPage(items, q.Page, total), nil
}

// Transaction returns a single entry by id.
func (e *Engine) Transaction(ctx context.Context, id int64) (Transaction, error) {
	return e.store.Transaction(ctx, id)
}

func (e *Engine) run(ctx context.Context, op string, fn func(Tx) error) error {
	start := time.Now()
	err := e.store.WithinTx(ctx, fn)
	e.recorder.ObserveOperation(op, resultOf(err), time.Since(start).Seconds())
	if errors.Is(err, ErrLockTimeout) {
		e.logger.Warn("ledger lock wait timed out", slog.String("op", op))
	}
	return err
}

// post applies entry to the locked wallet and inserts it.
func (e *Engine) post(ctx context.Context, tx Tx, w *wallet.Wallet, entry Transaction) (Transaction, error) {
	if err := e.apply(ctx, tx, w, &entry); err != nil {
		return Transaction{}, err
	}
	return tx.Insert(ctx, entry)
}

// apply moves the locked wallet's balance by entry.Delta() and stamps the
// entry with the before/after balances and a posting sequence.
func (e *Engine) apply(ctx context.Context, tx Tx, w *wallet.Wallet, entry *Transaction) error {
	after := w.Balance.Add(entry.Delta())
	if after.IsNegative() {
		return ErrInsufficientBalance
	}
	seq, err := tx.NextSequence(ctx)
	if err != nil {
		return err
	}
	if err := tx.UpdateBalance(ctx, w.ID, after); err != nil {
		return err
	}
	entry.UserID = w.UserID
	entry.WalletID = w.ID
	entry.BalanceBefore = w.Balance
	entry.BalanceAfter = after
	entry.Sequence = seq
	w.Balance = after
	return nil
}

// reverse credits back the full hold of a withdraw entry.
func (e *Engine) reverse(ctx context.Context, tx Tx, w *wallet.Wallet, withdrawal Transaction, reason string) (Transaction, error) {
	credit := newEntry(KindCredit, StatusCompleted, withdrawal.TotalAmount, decimal.Zero)
	credit.Reference = withdrawal.Reference
	credit.Description = fmt.Sprintf("Reversal of withdrawal #%d", withdrawal.ID)
	credit.Meta = ReversalMeta{ReversedTransactionID: withdrawal.ID, Reason: reason}
	return e.post(ctx, tx, w, credit)
}

func (e *Engine) logCommitted(what string, t Transaction) {
	e.logger.Info("ledger "+what+" committed",
		slog.Int64("transaction_id", t.ID),
		slog.Int64("wallet_id", t.WalletID),
		slog.String("reference", t.Reference),
		slog.String("status", string(t.Status)),
		slog.String("amount", t.Amount.StringFixed(MoneyPlaces)),
	)
}

func newEntry(kind Kind, status Status, amount, fee decimal.Decimal) Transaction {
	return Transaction{
		Kind:        kind,
		Status:      status,
		Amount:      amount,
		Fee:         fee,
		TotalAmount: amount.Add(fee),
	}
}

func lockActive(ctx context.Context, tx Tx, walletID int64) (wallet.Wallet, error) {
	w, err := tx.LockWallet(ctx, walletID)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if !w.Active() {
		return wallet.Wallet{}, ErrWalletBlocked
	}
	return w, nil
}

// lockPair locks two wallets in ascending id order so that concurrent
// transfers in opposite directions cannot deadlock.
func lockPair(ctx context.Context, tx Tx, a, b int64) (wallet.Wallet, wallet.Wallet, error) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	first, err := tx.LockWallet(ctx, lo)
	if err != nil {
		return wallet.Wallet{}, wallet.Wallet{}, err
	}
	second, err := tx.LockWallet(ctx, hi)
	if err != nil {
		return wallet.Wallet{}, wallet.Wallet{}, err
	}
	if first.ID == a {
		return first, second, nil
	}
	return second, first, nil
}

// ValidateAmount rejects amounts that are not positive or carry more than
// MoneyPlaces decimals.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(MoneyPlaces)) {
		return ErrInvalidAmount
	}
	return nil
}

func validateFee(fee decimal.Decimal) error {
	if fee.IsNegative() || !fee.Equal(fee.Round(MoneyPlaces)) {
		return ErrInvalidAmount
	}
	return nil
}

func withGatewayStatus(m Meta, status string) Meta {
	meta, ok := m.(TopUpMeta)
	if !ok {
		meta = TopUpMeta{Source: SourceGateway}
	}
	meta.GatewayStatus = status
	return meta
}

func withCancelReason(m Meta, reason string) Meta {
	meta, _ := m.(WithdrawMeta)
	meta.CancelReason = reason
	return meta
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, ErrSameWallet),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrNotPending),
		errors.Is(err, ErrNotCreditType),
		errors.Is(err, ErrWalletBlocked),
		errors.Is(err, wallet.ErrWalletNotFound):
		return "rejected"
	default:
		return "error"
	}
}
