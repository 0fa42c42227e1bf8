package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

func newTestService(t *testing.T) (*Service, *wallet.Service, *ledger.Engine, *ledger.MemoryLedger) {
	t.Helper()
	store := ledger.NewInMemory(time.Second)
	walletSvc, err := wallet.NewService(store, wallet.Config{
		DefaultCurrency:     "QAR",
		SupportedCurrencies: []string{"QAR", "USD"},
	})
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	engine := ledger.NewEngine(store)
	return NewService(engine, walletSvc, nil), walletSvc, engine, store
}

// signUp opens a main wallet so userID is a known recipient.
func signUp(t *testing.T, walletSvc *wallet.Service, userID int64) wallet.Wallet {
	t.Helper()
	w, err := walletSvc.GetOrCreateMain(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("wallet for user %d: %v", userID, err)
	}
	return w
}

func TestTransferSuccess(t *testing.T) {
	svc, walletSvc, engine, store := newTestService(t)
	ctx := context.Background()

	from, err := walletSvc.GetOrCreateMain(ctx, 1, "")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if err := ledger.SeedBalance(ctx, engine, from.ID, decimal.RequireFromString("100")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	signUp(t, walletSvc, 2)

	res, err := svc.Transfer(ctx, TransferInput{UserID: 1, ToUserID: 2, Amount: decimal.RequireFromString("30"), Note: "lunch"})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if !res.Debit.BalanceAfter.Equal(decimal.RequireFromString("70")) || !res.Credit.BalanceAfter.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("unexpected balances: debit %s credit %s", res.Debit.BalanceAfter, res.Credit.BalanceAfter)
	}
	if res.Debit.Reference != res.Credit.Reference || res.Reference == "" {
		t.Fatalf("legs must share one reference: %+v", res)
	}

	to, err := walletSvc.GetOrCreateMain(ctx, 2, "QAR")
	if err != nil {
		t.Fatalf("recipient wallet: %v", err)
	}
	if to.ID != res.Credit.WalletID {
		t.Fatalf("expected credit on the recipient's main wallet")
	}
	for _, id := range []int64{from.ID, to.ID} {
		w, _ := walletSvc.Get(ctx, id)
		if err := ledger.CheckChain(store.WalletEntries(id), w.Balance); err != nil {
			t.Fatalf("wallet %d chain: %v", id, err)
		}
	}
}

func TestTransferUsesSourceCurrency(t *testing.T) {
	svc, walletSvc, engine, _ := newTestService(t)
	ctx := context.Background()

	usd, err := walletSvc.GetOrCreateMain(ctx, 1, "USD")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if err := ledger.SeedBalance(ctx, engine, usd.ID, decimal.RequireFromString("5")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	signUp(t, walletSvc, 2)
	res, err := svc.Transfer(ctx, TransferInput{UserID: 1, FromWalletID: &usd.ID, ToUserID: 2, Amount: decimal.RequireFromString("5")})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	to, _ := walletSvc.Get(ctx, res.Credit.WalletID)
	if to.Currency != "USD" || to.UserID != 2 {
		t.Fatalf("expected a USD wallet for user 2, got %+v", to)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	svc, walletSvc, _, _ := newTestService(t)
	ctx := context.Background()
	signUp(t, walletSvc, 2)

	if _, err := svc.Transfer(ctx, TransferInput{UserID: 1, ToUserID: 2, Amount: decimal.RequireFromString("10")}); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestTransferRejections(t *testing.T) {
	svc, walletSvc, _, _ := newTestService(t)
	ctx := context.Background()
	signUp(t, walletSvc, 2)

	if _, err := svc.Transfer(ctx, TransferInput{UserID: 1, ToUserID: 1, Amount: decimal.NewFromInt(1)}); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	if _, err := svc.Transfer(ctx, TransferInput{UserID: 1, ToUserID: 2, Amount: decimal.Zero}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	foreign, _ := walletSvc.GetOrCreateMain(ctx, 3, "")
	if _, err := svc.Transfer(ctx, TransferInput{UserID: 1, FromWalletID: &foreign.ID, ToUserID: 2, Amount: decimal.NewFromInt(1)}); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestTransferToUnknownRecipient(t *testing.T) {
	svc, walletSvc, engine, store := newTestService(t)
	ctx := context.Background()

	from := signUp(t, walletSvc, 1)
	if err := ledger.SeedBalance(ctx, engine, from.ID, decimal.RequireFromString("100")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.Transfer(ctx, TransferInput{UserID: 1, ToUserID: 9_000_000_001, Amount: decimal.RequireFromString("100")})
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}

	w, _ := walletSvc.Get(ctx, from.ID)
	if !w.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("sender balance changed to %s", w.Balance)
	}
	if ws, _ := walletSvc.List(ctx, 9_000_000_001, ""); len(ws) != 0 {
		t.Fatalf("expected no wallet opened for the unknown user, got %+v", ws)
	}
	if got := len(store.WalletEntries(from.ID)); got != 1 {
		t.Fatalf("expected only the seed entry, got %d", got)
	}
}

type stubRecipients map[int64]bool

func (s stubRecipients) Active(_ context.Context, userID int64) (bool, error) {
	return s[userID], nil
}

func TestTransferConsultsRecipients(t *testing.T) {
	store := ledger.NewInMemory(time.Second)
	walletSvc, err := wallet.NewService(store, wallet.Config{DefaultCurrency: "QAR", SupportedCurrencies: []string{"QAR"}})
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	engine := ledger.NewEngine(store)
	svc := NewService(engine, walletSvc, stubRecipients{2: true})
	ctx := context.Background()

	from := signUp(t, walletSvc, 1)
	if err := ledger.SeedBalance(ctx, engine, from.ID, decimal.RequireFromString("10")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// user 2 has no wallet yet but is known to identity
	res, err := svc.Transfer(ctx, TransferInput{UserID: 1, ToUserID: 2, Amount: decimal.RequireFromString("4")})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !res.Credit.BalanceAfter.Equal(decimal.RequireFromString("4")) {
		t.Fatalf("unexpected credit %s", res.Credit.BalanceAfter)
	}
	if _, err := svc.Transfer(ctx, TransferInput{UserID: 1, ToUserID: 3, Amount: decimal.RequireFromString("1")}); !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
}
