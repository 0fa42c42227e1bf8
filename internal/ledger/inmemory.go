package ledger

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

// MemoryLedger is a concurrency-safe in-memory Store and wallet.Repository
// used by unit tests and by development runs without DATABASE_URL. Units of
// work are serialised through a single-slot semaphore whose wait is bounded by
// the lock timeout, mirroring Postgres lock_timeout.
type MemoryLedger struct {
	sem         chan struct{}
	lockTimeout time.Duration

	wallets    map[int64]wallet.Wallet
	keys       map[wallet.Key]int64
	entries    map[int64]Transaction
	nextWallet int64
	nextEntry  int64
	nextSeq    int64
}

// NewInMemory creates an empty in-memory ledger. A non-positive lockTimeout
// falls back to five seconds.
func NewInMemory(lockTimeout time.Duration) *MemoryLedger {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &MemoryLedger{
		sem:         make(chan struct{}, 1),
		lockTimeout: lockTimeout,
		wallets:     make(map[int64]wallet.Wallet),
		keys:        make(map[wallet.Key]int64),
		entries:     make(map[int64]Transaction),
	}
}

func (m *MemoryLedger) acquire(ctx context.Context) error {
	timer := time.NewTimer(m.lockTimeout)
	defer timer.Stop()
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrLockTimeout
	}
}

func (m *MemoryLedger) release() {
	<-m.sem
}

// WithinTx runs fn with staged writes that are applied only when fn succeeds.
func (m *MemoryLedger) WithinTx(ctx context.Context, fn func(Tx) error) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	tx := &memTx{
		store:   m,
		wallets: make(map[int64]wallet.Wallet),
		entries: make(map[int64]Transaction),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, w := range tx.wallets {
		m.wallets[id] = w
	}
	for id, t := range tx.entries {
		m.entries[id] = t
	}
	return nil
}

// Create inserts a wallet with zero balance.
func (m *MemoryLedger) Create(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	if err := m.acquire(ctx); err != nil {
		return wallet.Wallet{}, err
	}
	defer m.release()

	if _, exists := m.keys[w.Key()]; exists {
		return wallet.Wallet{}, wallet.ErrWalletAlreadyExists
	}
	m.nextWallet++
	now := time.Now().UTC()
	w.ID = m.nextWallet
	w.Balance = decimal.Zero
	if w.Status == "" {
		w.Status = wallet.StatusActive
	}
	w.CreatedAt = now
	w.UpdatedAt = now
	m.wallets[w.ID] = w
	m.keys[w.Key()] = w.ID
	return w, nil
}

// Get returns a wallet by id.
func (m *MemoryLedger) Get(ctx context.Context, id int64) (wallet.Wallet, error) {
	if err := m.acquire(ctx); err != nil {
		return wallet.Wallet{}, err
	}
	defer m.release()

	w, ok := m.wallets[id]
	if !ok {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return w, nil
}

// FindByKey returns the wallet with the given natural key.
func (m *MemoryLedger) FindByKey(ctx context.Context, key wallet.Key) (wallet.Wallet, error) {
	if err := m.acquire(ctx); err != nil {
		return wallet.Wallet{}, err
	}
	defer m.release()

	id, ok := m.keys[key]
	if !ok {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return m.wallets[id], nil
}

// ListByUser returns the user's wallets ordered by id.
func (m *MemoryLedger) ListByUser(ctx context.Context, userID int64, currency string) ([]wallet.Wallet, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	out := []wallet.Wallet{}
	for _, w := range m.wallets {
		if w.UserID != userID {
			continue
		}
		if currency != "" && w.Currency != currency {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Transaction returns one entry.
func (m *MemoryLedger) Transaction(ctx context.Context, id int64) (Transaction, error) {
	if err := m.acquire(ctx); err != nil {
		return Transaction{}, err
	}
	defer m.release()

	t, ok := m.entries[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, nil
}

// ListTransactions returns a page of a wallet's entries, newest first, and the total count.
func (m *MemoryLedger) ListTransactions(ctx context.Context, q ListQuery) ([]Transaction, int64, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, 0, err
	}
	defer m.release()

	var matched []Transaction
	for _, t := range m.entries {
		if t.WalletID != q.WalletID {
			continue
		}
		if q.Kind != "" && t.Kind != q.Kind {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	start := q.offset()
	if start >= len(matched) {
		return []Transaction{}, total, nil
	}
	end := start + PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// TransferTotals sums completed transfer legs per wallet created at or after since.
func (m *MemoryLedger) TransferTotals(ctx context.Context, walletIDs []int64, since time.Time) (map[int64]decimal.Decimal, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	want := idSet(walletIDs)
	totals := make(map[int64]decimal.Decimal)
	for _, t := range m.entries {
		if _, ok := want[t.WalletID]; !ok {
			continue
		}
		if t.Status != StatusCompleted || !strings.HasPrefix(t.Reference, PrefixTransfer+"-") || t.CreatedAt.Before(since) {
			continue
		}
		totals[t.WalletID] = totals[t.WalletID].Add(t.Amount)
	}
	return totals, nil
}

// LastIncomingTransfers returns the newest incoming transfer leg per wallet.
func (m *MemoryLedger) LastIncomingTransfers(ctx context.Context, walletIDs []int64) (map[int64]Transaction, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	want := idSet(walletIDs)
	last := make(map[int64]Transaction)
	for _, t := range m.entries {
		if _, ok := want[t.WalletID]; !ok || t.Kind != KindCredit {
			continue
		}
		meta, ok := t.Meta.(TransferMeta)
		if !ok || meta.Direction != DirectionIncoming {
			continue
		}
		if cur, seen := last[t.WalletID]; !seen || t.ID > cur.ID {
			last[t.WalletID] = t
		}
	}
	return last, nil
}

// memTx stages writes for one unit of work. The store semaphore is held for
// its whole lifetime, so it reads the store maps directly.
type memTx struct {
	store   *MemoryLedger
	wallets map[int64]wallet.Wallet
	entries map[int64]Transaction
}

func (tx *memTx) LockWallet(_ context.Context, id int64) (wallet.Wallet, error) {
	if w, ok := tx.wallets[id]; ok {
		return w, nil
	}
	w, ok := tx.store.wallets[id]
	if !ok {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return w, nil
}

func (tx *memTx) UpdateBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error {
	w, err := tx.LockWallet(ctx, walletID)
	if err != nil {
		return err
	}
	if balance.IsNegative() {
		return ErrInsufficientBalance
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	tx.wallets[walletID] = w
	return nil
}

func (tx *memTx) LockTransaction(_ context.Context, id int64) (Transaction, error) {
	if t, ok := tx.entries[id]; ok {
		return t, nil
	}
	t, ok := tx.store.entries[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, nil
}

func (tx *memTx) LockTransactionByReference(ctx context.Context, reference string) (Transaction, error) {
	var found int64
	consider := func(t Transaction) {
		if t.Reference == reference && (found == 0 || t.ID < found) {
			found = t.ID
		}
	}
	for _, t := range tx.store.entries {
		consider(t)
	}
	for _, t := range tx.entries {
		consider(t)
	}
	if reference == "" || found == 0 {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx.LockTransaction(ctx, found)
}

func (tx *memTx) NextSequence(context.Context) (int64, error) {
	tx.store.nextSeq++
	return tx.store.nextSeq, nil
}

func (tx *memTx) Insert(_ context.Context, t Transaction) (Transaction, error) {
	tx.store.nextEntry++
	now := time.Now().UTC()
	t.ID = tx.store.nextEntry
	t.CreatedAt = now
	t.UpdatedAt = now
	tx.entries[t.ID] = t
	return t, nil
}

func (tx *memTx) Update(ctx context.Context, t Transaction) (Transaction, error) {
	current, err := tx.LockTransaction(ctx, t.ID)
	if err != nil {
		return Transaction{}, err
	}
	current.Status = t.Status
	current.BalanceBefore = t.BalanceBefore
	current.BalanceAfter = t.BalanceAfter
	current.Sequence = t.Sequence
	current.Description = t.Description
	current.Meta = t.Meta
	current.UpdatedAt = time.Now().UTC()
	tx.entries[t.ID] = current
	return current, nil
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
