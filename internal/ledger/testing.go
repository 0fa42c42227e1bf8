package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

// SeedBalance is a test helper that funds a wallet through a completed manual
// credit, keeping the wallet's entry chain intact.
func SeedBalance(ctx context.Context, e *Engine, walletID int64, amount decimal.Decimal) error {
	_, err := e.Credit(ctx, walletID, amount, "Seed balance", ManualMeta{Source: "seed"})
	return err
}

// SetWalletStatus is a test helper that freezes or unfreezes a wallet held by
// the in-memory ledger.
func SetWalletStatus(m *MemoryLedger, walletID int64, status wallet.Status) {
	m.sem <- struct{}{}
	defer m.release()
	if w, ok := m.wallets[walletID]; ok {
		w.Status = status
		m.wallets[walletID] = w
	}
}

// WalletEntries returns every entry of a wallet held by the in-memory ledger, by id.
func (m *MemoryLedger) WalletEntries(walletID int64) []Transaction {
	m.sem <- struct{}{}
	defer m.release()
	var out []Transaction
	for _, t := range m.entries {
		if t.WalletID == walletID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CheckChain verifies that the applied entries of one wallet, in posting
// order, form an unbroken chain from zero ending at balance.
func CheckChain(entries []Transaction, balance decimal.Decimal) error {
	applied := make([]Transaction, 0, len(entries))
	for _, t := range entries {
		if t.Applied() {
			applied = append(applied, t)
		}
	}
	sort.Slice(applied, func(i, j int) bool { return applied[i].Sequence < applied[j].Sequence })

	running := decimal.Zero
	for _, t := range applied {
		if !t.BalanceBefore.Equal(running) {
			return fmt.Errorf("entry %d: balance_before %s, want %s", t.ID, t.BalanceBefore, running)
		}
		if want := running.Add(t.Delta()); !t.BalanceAfter.Equal(want) {
			return fmt.Errorf("entry %d: balance_after %s, want %s", t.ID, t.BalanceAfter, want)
		}
		running = t.BalanceAfter
	}
	if !running.Equal(balance) {
		return fmt.Errorf("chain ends at %s, wallet balance is %s", running, balance)
	}
	return nil
}
