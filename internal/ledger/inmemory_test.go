package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

func TestInMemoryLedger_WalletKeyIsUnique(t *testing.T) {
	l := NewInMemory(time.Second)
	ctx := context.Background()

	first, err := l.Create(ctx, wallet.Wallet{UserID: 7, Currency: "QAR", Type: wallet.TypeMain})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if first.ID == 0 || !first.Balance.IsZero() || first.Status != wallet.StatusActive {
		t.Fatalf("unexpected wallet %+v", first)
	}

	if _, err := l.Create(ctx, wallet.Wallet{UserID: 7, Currency: "QAR", Type: wallet.TypeMain}); !errors.Is(err, wallet.ErrWalletAlreadyExists) {
		t.Fatalf("expected ErrWalletAlreadyExists, got %v", err)
	}
	if _, err := l.Create(ctx, wallet.Wallet{UserID: 7, Currency: "QAR", Type: wallet.TypeSaving}); err != nil {
		t.Fatalf("different type should be allowed: %v", err)
	}

	found, err := l.FindByKey(ctx, wallet.Key{UserID: 7, Currency: "QAR", Type: wallet.TypeMain})
	if err != nil || found.ID != first.ID {
		t.Fatalf("expected wallet %d, got %+v (%v)", first.ID, found, err)
	}
	if _, err := l.FindByKey(ctx, wallet.Key{UserID: 8, Currency: "QAR", Type: wallet.TypeMain}); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestInMemoryLedger_ListByUser(t *testing.T) {
	l := NewInMemory(time.Second)
	ctx := context.Background()
	for _, cc := range []string{"USD", "QAR", "EUR"} {
		if _, err := l.Create(ctx, wallet.Wallet{UserID: 1, Currency: cc, Type: wallet.TypeMain}); err != nil {
			t.Fatalf("create %s: %v", cc, err)
		}
	}
	if _, err := l.Create(ctx, wallet.Wallet{UserID: 2, Currency: "USD", Type: wallet.TypeMain}); err != nil {
		t.Fatalf("create other user: %v", err)
	}

	all, err := l.ListByUser(ctx, 1, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Currency != "USD" || all[2].Currency != "EUR" {
		t.Fatalf("unexpected list %+v", all)
	}
	usd, err := l.ListByUser(ctx, 1, "USD")
	if err != nil || len(usd) != 1 {
		t.Fatalf("expected one USD wallet, got %d (%v)", len(usd), err)
	}
}

func TestInMemoryLedger_FailedUnitOfWorkIsDiscarded(t *testing.T) {
	l := NewInMemory(time.Second)
	ctx := context.Background()
	w, err := l.Create(ctx, wallet.Wallet{UserID: 1, Currency: "QAR", Type: wallet.TypeMain})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	boom := errors.New("boom")
	err = l.WithinTx(ctx, func(tx Tx) error {
		if err := tx.UpdateBalance(ctx, w.ID, dec("50")); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, newEntry(KindCredit, StatusCompleted, dec("50"), dec("0"))); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := l.Get(ctx, w.ID)
	if !got.Balance.IsZero() {
		t.Fatalf("expected rollback, balance=%s", got.Balance)
	}
	if entries := l.WalletEntries(w.ID); len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestInMemoryLedger_ConcurrentCreates(t *testing.T) {
	l := NewInMemory(time.Second)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Create(ctx, wallet.Wallet{UserID: 3, Currency: "QAR", Type: wallet.TypeMain})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else if !errors.Is(err, wallet.ErrWalletAlreadyExists) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one wallet, got %d", created)
	}
}

func TestInMemoryLedger_ContextCancelWhileWaiting(t *testing.T) {
	l := NewInMemory(time.Minute)
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithinTx(context.Background(), func(Tx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.WithinTx(ctx, func(Tx) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
