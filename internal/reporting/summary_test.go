package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

type summaryFixture struct {
	engine  *ledger.Engine
	wallets *wallet.Service
	service *Service
}

func newSummaryFixture(t *testing.T) summaryFixture {
	t.Helper()
	store := ledger.NewInMemory(time.Second)
	wallets, err := wallet.NewService(store, wallet.Config{
		DefaultCurrency:     "QAR",
		SupportedCurrencies: []string{"QAR", "USD", "EUR", "ILS"},
	})
	require.NoError(t, err)

	rates := StaticRates{
		"QAR/USD": decimal.RequireFromString("0.27"),
		"USD/EUR": decimal.RequireFromString("0.9"),
	}
	svc, err := NewService(wallets, store, rates, "usd")
	require.NoError(t, err)
	return summaryFixture{engine: ledger.NewEngine(store), wallets: wallets, service: svc}
}

func seed(t *testing.T, f summaryFixture, userID int64, currency, amount string) wallet.Wallet {
	t.Helper()
	w, err := f.wallets.GetOrCreateMain(context.Background(), userID, currency)
	require.NoError(t, err)
	require.NoError(t, ledger.SeedBalance(context.Background(), f.engine, w.ID, decimal.RequireFromString(amount)))
	return w
}

func TestSummaryConvertsBalancesAndTransfers(t *testing.T) {
	ctx := context.Background()
	f := newSummaryFixture(t)

	qar := seed(t, f, 1, "QAR", "100")
	seed(t, f, 1, "USD", "10")
	recipient, err := f.wallets.GetOrCreateMain(ctx, 2, "QAR")
	require.NoError(t, err)

	_, err = f.engine.Transfer(ctx, qar.ID, recipient.ID, decimal.RequireFromString("30"), "rent")
	require.NoError(t, err)

	sender, err := f.service.Summary(ctx, 1, "")
	require.NoError(t, err)
	require.Equal(t, qar.ID, sender.DefaultWalletID)
	require.Equal(t, "QAR", sender.DefaultCurrency)
	require.Equal(t, "USD", sender.ReportingCurrency)
	require.Len(t, sender.Wallets, 2)
	require.Equal(t, "Qatari Riyal", sender.Wallets[0].CurrencyName)
	require.True(t, sender.TotalBalance.Equal(decimal.RequireFromString("28.9")), "total %s", sender.TotalBalance)
	require.True(t, sender.MonthlyTransfers.Equal(decimal.RequireFromString("8.1")), "monthly %s", sender.MonthlyTransfers)
	require.Nil(t, sender.Wallets[0].LastIncomingTransfer)

	received, err := f.service.Summary(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, received.Wallets, 1)
	last := received.Wallets[0].LastIncomingTransfer
	require.NotNil(t, last)
	require.Equal(t, ledger.KindCredit, last.Kind)
	require.True(t, last.Amount.Equal(decimal.RequireFromString("30")))
}

func TestSummaryUsesInverseRate(t *testing.T) {
	f := newSummaryFixture(t)
	seed(t, f, 4, "EUR", "9")

	summary, err := f.service.Summary(context.Background(), 4, "")
	require.NoError(t, err)
	require.True(t, summary.TotalBalance.Equal(decimal.NewFromInt(10)), "total %s", summary.TotalBalance)
}

func TestSummaryReportsMissingRates(t *testing.T) {
	f := newSummaryFixture(t)
	seed(t, f, 3, "ILS", "5")

	_, err := f.service.Summary(context.Background(), 3, "")
	var missing *MissingRatesError
	require.True(t, errors.As(err, &missing), "got %v", err)
	require.Equal(t, []string{"ILS"}, missing.Currencies)
}

func TestSummaryCurrencyFilter(t *testing.T) {
	f := newSummaryFixture(t)
	seed(t, f, 5, "QAR", "1")
	seed(t, f, 5, "USD", "2")

	summary, err := f.service.Summary(context.Background(), 5, "usd")
	require.NoError(t, err)
	require.Len(t, summary.Wallets, 1)
	require.Equal(t, "USD", summary.Wallets[0].Currency)
	require.True(t, summary.TotalBalance.Equal(decimal.NewFromInt(2)))

	_, err = f.service.Summary(context.Background(), 5, "XYZ")
	require.ErrorIs(t, err, wallet.ErrUnsupportedCurrency)
}

func TestMonthStart(t *testing.T) {
	got := monthStart(time.Date(2025, time.March, 17, 13, 4, 5, 0, time.UTC))
	require.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), got)
}
