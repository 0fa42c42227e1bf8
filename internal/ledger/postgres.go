package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

const (
	walletColumns = `id, user_id, currency, type, balance, status, created_at, updated_at`
	entryColumns  = `id, user_id, wallet_id, kind, amount, fee, total_amount, balance_before, balance_after,
        posting_seq, status, COALESCE(reference, ''), COALESCE(description, ''), meta, created_at, updated_at`
)

// PostgresLedger persists wallets and ledger entries in PostgreSQL. Every unit
// of work runs in one transaction with row locks taken by SELECT ... FOR UPDATE
// and a bounded lock_timeout.
type PostgresLedger struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresLedger {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &PostgresLedger{db: db, lockTimeout: lockTimeout}
}

// WithinTx runs fn inside a READ COMMITTED transaction and commits when fn succeeds.
func (l *PostgresLedger) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapPgError(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	lockMS := fmt.Sprintf("%dms", l.lockTimeout.Milliseconds())
	stmtMS := fmt.Sprintf("%dms", (2 * l.lockTimeout).Milliseconds())
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true), set_config('statement_timeout', $2, true)`, lockMS, stmtMS); err != nil {
		return mapPgError(err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return mapPgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

// Create inserts a wallet row with zero balance.
func (l *PostgresLedger) Create(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	status := w.Status
	if status == "" {
		status = wallet.StatusActive
	}
	row := l.db.QueryRow(ctx, `INSERT INTO wallets (user_id, currency, type, balance, status)
        VALUES ($1, $2, $3, 0, $4)
        RETURNING `+walletColumns, w.UserID, w.Currency, string(w.Type), string(status))
	created, err := scanWallet(row)
	if err != nil {
		if isUniqueViolation(err) {
			return wallet.Wallet{}, wallet.ErrWalletAlreadyExists
		}
		return wallet.Wallet{}, err
	}
	return created, nil
}

// Get fetches a wallet by identifier.
func (l *PostgresLedger) Get(ctx context.Context, id int64) (wallet.Wallet, error) {
	return scanWallet(l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id))
}

// FindByKey fetches a wallet by (user, currency, type).
func (l *PostgresLedger) FindByKey(ctx context.Context, key wallet.Key) (wallet.Wallet, error) {
	return scanWallet(l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE user_id = $1 AND currency = $2 AND type = $3`, key.UserID, key.Currency, string(key.Type)))
}

// ListByUser returns the user's wallets ordered by id.
func (l *PostgresLedger) ListByUser(ctx context.Context, userID int64, currency string) ([]wallet.Wallet, error) {
	rows, err := l.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE user_id = $1 AND ($2 = '' OR currency = $2)
        ORDER BY id`, userID, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []wallet.Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Transaction returns one entry.
func (l *PostgresLedger) Transaction(ctx context.Context, id int64) (Transaction, error) {
	return scanEntry(l.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM transactions WHERE id = $1`, id))
}

// ListTransactions returns a page of a wallet's entries, newest first, and the total count.
func (l *PostgresLedger) ListTransactions(ctx context.Context, q ListQuery) ([]Transaction, int64, error) {
	var total int64
	if err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions
        WHERE wallet_id = $1 AND ($2 = '' OR kind = $2)`, q.WalletID, string(q.Kind)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := l.db.Query(ctx, `SELECT `+entryColumns+` FROM transactions
        WHERE wallet_id = $1 AND ($2 = '' OR kind = $2)
        ORDER BY id DESC
        LIMIT $3 OFFSET $4`, q.WalletID, string(q.Kind), PageSize, q.offset())
	if err != nil {
		return nil, 0, err
	}
	items, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// TransferTotals sums completed transfer legs per wallet created at or after since.
func (l *PostgresLedger) TransferTotals(ctx context.Context, walletIDs []int64, since time.Time) (map[int64]decimal.Decimal, error) {
	rows, err := l.db.Query(ctx, `SELECT wallet_id, COALESCE(SUM(amount), 0)
        FROM transactions
        WHERE wallet_id = ANY($1) AND status = 'completed' AND reference LIKE 'TRF-%' AND created_at >= $2
        GROUP BY wallet_id`, walletIDs, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			walletID int64
			sum      decimal.Decimal
		)
		if err := rows.Scan(&walletID, &sum); err != nil {
			return nil, err
		}
		totals[walletID] = sum
	}
	return totals, rows.Err()
}

// LastIncomingTransfers returns the newest incoming transfer leg per wallet.
func (l *PostgresLedger) LastIncomingTransfers(ctx context.Context, walletIDs []int64) (map[int64]Transaction, error) {
	rows, err := l.db.Query(ctx, `SELECT DISTINCT ON (wallet_id) `+entryColumns+`
        FROM transactions
        WHERE wallet_id = ANY($1) AND kind = 'credit'
          AND meta->>'type' = 'transfer' AND meta->'data'->>'direction' = 'incoming'
        ORDER BY wallet_id, id DESC`, walletIDs)
	if err != nil {
		return nil, err
	}
	items, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	last := make(map[int64]Transaction, len(items))
	for _, t := range items {
		last[t.WalletID] = t
	}
	return last, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockWallet(ctx context.Context, id int64) (wallet.Wallet, error) {
	return scanWallet(t.tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) UpdateBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE wallets SET balance = $2, updated_at = now() WHERE id = $1`, walletID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return wallet.ErrWalletNotFound
	}
	return nil
}

func (t *pgTx) LockTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanEntry(t.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) LockTransactionByReference(ctx context.Context, reference string) (Transaction, error) {
	if reference == "" {
		return Transaction{}, ErrTransactionNotFound
	}
	return scanEntry(t.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM transactions
        WHERE reference = $1 ORDER BY id LIMIT 1 FOR UPDATE`, reference))
}

func (t *pgTx) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := t.tx.QueryRow(ctx, `SELECT nextval('transaction_posting_seq')`).Scan(&seq)
	return seq, err
}

func (t *pgTx) Insert(ctx context.Context, e Transaction) (Transaction, error) {
	meta, err := EncodeMeta(e.Meta)
	if err != nil {
		return Transaction{}, err
	}
	row := t.tx.QueryRow(ctx, `INSERT INTO transactions
        (user_id, wallet_id, kind, amount, fee, total_amount, balance_before, balance_after,
         posting_seq, status, reference, description, meta)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9::bigint, 0), $10,
                NULLIF($11::text, ''), NULLIF($12::text, ''), $13)
        RETURNING id, created_at, updated_at`,
		e.UserID, e.WalletID, string(e.Kind), e.Amount, e.Fee, e.TotalAmount, e.BalanceBefore, e.BalanceAfter,
		e.Sequence, string(e.Status), e.Reference, e.Description, meta)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func (t *pgTx) Update(ctx context.Context, e Transaction) (Transaction, error) {
	meta, err := EncodeMeta(e.Meta)
	if err != nil {
		return Transaction{}, err
	}
	return scanEntry(t.tx.QueryRow(ctx, `UPDATE transactions
        SET status = $2, balance_before = $3, balance_after = $4, posting_seq = NULLIF($5::bigint, 0),
            description = NULLIF($6::text, ''), meta = $7, updated_at = now()
        WHERE id = $1
        RETURNING `+entryColumns,
		e.ID, string(e.Status), e.BalanceBefore, e.BalanceAfter, e.Sequence, e.Description, meta))
}

func scanWallet(row pgx.Row) (wallet.Wallet, error) {
	var (
		w                wallet.Wallet
		typ, status      string
		created, updated time.Time
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Currency, &typ, &w.Balance, &status, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.Wallet{}, wallet.ErrWalletNotFound
		}
		return wallet.Wallet{}, err
	}
	w.Type = wallet.Type(typ)
	w.Status = wallet.Status(status)
	w.CreatedAt = created.UTC()
	w.UpdatedAt = updated.UTC()
	return w, nil
}

func scanEntry(row pgx.Row) (Transaction, error) {
	var (
		e                Transaction
		kind, status     string
		seq              *int64
		meta             []byte
		created, updated time.Time
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.WalletID, &kind, &e.Amount, &e.Fee, &e.TotalAmount,
		&e.BalanceBefore, &e.BalanceAfter, &seq, &status, &e.Reference, &e.Description, &meta,
		&created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	m, err := DecodeMeta(meta)
	if err != nil {
		return Transaction{}, err
	}
	e.Kind = Kind(kind)
	e.Status = Status(status)
	if seq != nil {
		e.Sequence = *seq
	}
	e.Meta = m
	e.CreatedAt = created.UTC()
	e.UpdatedAt = updated.UTC()
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	out := []Transaction{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
