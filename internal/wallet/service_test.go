package wallet_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

var testConfig = wallet.Config{
	DefaultCurrency:     "QAR",
	SupportedCurrencies: []string{"QAR", "USD", "EUR", "ILS", "JOD", "EGP"},
}

func newService(t *testing.T) *wallet.Service {
	t.Helper()
	svc, err := wallet.NewService(ledger.NewInMemory(time.Second), testConfig)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

// countingRepo fails the test when the store is touched.
type countingRepo struct {
	wallet.Repository
	t *testing.T
}

func (r countingRepo) FindByKey(context.Context, wallet.Key) (wallet.Wallet, error) {
	r.t.Fatalf("store must not be reached")
	return wallet.Wallet{}, nil
}

func (r countingRepo) Create(context.Context, wallet.Wallet) (wallet.Wallet, error) {
	r.t.Fatalf("store must not be reached")
	return wallet.Wallet{}, nil
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreateMain(ctx, 10, "")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if first.Currency != "QAR" || first.Type != wallet.TypeMain || !first.Balance.IsZero() {
		t.Fatalf("unexpected wallet %+v", first)
	}

	second, err := svc.GetOrCreate(ctx, 10, "qar", wallet.TypeMain)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same wallet, got %d and %d", first.ID, second.ID)
	}
}

func TestGetOrCreateConcurrentCallersShareWallet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{})
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := svc.GetOrCreate(ctx, 42, "USD", wallet.TypeSaving)
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			mu.Lock()
			ids[w.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Fatalf("expected one wallet, got %d", len(ids))
	}
	list, err := svc.List(ctx, 42, "")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one stored wallet, got %d (%v)", len(list), err)
	}
}

func TestCreateFailIfExists(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, wallet.CreateInput{UserID: 1, Currency: "EUR", Type: wallet.TypeBonus, FailIfExists: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, wallet.CreateInput{UserID: 1, Currency: "EUR", Type: wallet.TypeBonus, FailIfExists: true})
	if !errors.Is(err, wallet.ErrWalletAlreadyExists) {
		t.Fatalf("expected ErrWalletAlreadyExists, got %v", err)
	}
	if _, err := svc.Create(ctx, wallet.CreateInput{UserID: 1, Currency: "EUR", Type: wallet.TypeBonus}); err != nil {
		t.Fatalf("create without FailIfExists should return the wallet: %v", err)
	}
}

func TestCreateValidatesBeforeStoreAccess(t *testing.T) {
	svc, err := wallet.NewService(countingRepo{t: t}, testConfig)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	_, err = svc.Create(ctx, wallet.CreateInput{UserID: 1, Currency: "GBP", FailIfExists: true})
	if !errors.Is(err, wallet.ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
	_, err = svc.GetOrCreate(ctx, 1, "QAR", wallet.Type("vault"))
	if !errors.Is(err, wallet.ErrInvalidWalletType) {
		t.Fatalf("expected ErrInvalidWalletType, got %v", err)
	}
}

func TestGetOwnedHidesForeignWallets(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	w, err := svc.GetOrCreateMain(ctx, 1, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetOwned(ctx, 2, w.ID); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound for foreign wallet, got %v", err)
	}
	if _, err := svc.GetOwned(ctx, 1, w.ID+100); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound for missing wallet, got %v", err)
	}
	owned, err := svc.GetOwned(ctx, 1, w.ID)
	if err != nil || owned.ID != w.ID {
		t.Fatalf("expected own wallet, got %+v (%v)", owned, err)
	}
}

func TestListFiltersByCurrency(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, cc := range []string{"QAR", "USD"} {
		if _, err := svc.GetOrCreateMain(ctx, 5, cc); err != nil {
			t.Fatalf("create %s: %v", cc, err)
		}
	}
	usd, err := svc.List(ctx, 5, "usd")
	if err != nil || len(usd) != 1 || usd[0].Currency != "USD" {
		t.Fatalf("unexpected USD list %+v (%v)", usd, err)
	}
	if _, err := svc.List(ctx, 5, "XYZ"); !errors.Is(err, wallet.ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestNewServiceRejectsUnsupportedDefault(t *testing.T) {
	_, err := wallet.NewService(ledger.NewInMemory(time.Second), wallet.Config{DefaultCurrency: "GBP", SupportedCurrencies: []string{"QAR"}})
	if !errors.Is(err, wallet.ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
}
