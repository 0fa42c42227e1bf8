// Package reporting builds read-only views over wallets and their ledger:
// the wallet summary with totals in a reporting currency, and transaction
// history pages.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

var currencyNames = map[string]string{
	"USD": "US Dollar",
	"ILS": "Israeli Shekel",
	"QAR": "Qatari Riyal",
	"EUR": "Euro",
	"JOD": "Jordanian Dinar",
	"EGP": "Egyptian Pound",
}

// CurrencyName returns the display name of code, or code itself.
func CurrencyName(code string) string {
	if name, ok := currencyNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// MissingRatesError lists wallet currencies that cannot be converted into
// the reporting currency.
type MissingRatesError struct {
	Currencies []string
}

func (e *MissingRatesError) Error() string {
	return "missing exchange rates for: " + strings.Join(e.Currencies, ", ")
}

// Activity is the ledger read model the summary needs.
type Activity interface {
	TransferTotals(ctx context.Context, walletIDs []int64, since time.Time) (map[int64]decimal.Decimal, error)
	LastIncomingTransfers(ctx context.Context, walletIDs []int64) (map[int64]ledger.Transaction, error)
}

// WalletView is a wallet decorated for display.
type WalletView struct {
	wallet.Wallet
	CurrencyName         string              `json:"currency_name"`
	LastIncomingTransfer *ledger.Transaction `json:"last_incoming_transfer"`
}

// Summary is the response of the wallet overview.
type Summary struct {
	Wallets           []WalletView    `json:"wallets"`
	DefaultWalletID   int64           `json:"default_wallet_id"`
	DefaultCurrency   string          `json:"default_currency"`
	ReportingCurrency string          `json:"reporting_currency"`
	TotalBalance      decimal.Decimal `json:"total_balance"`
	MonthlyTransfers  decimal.Decimal `json:"monthly_transfers"`
}

// Service assembles wallet summaries.
type Service struct {
	wallets  *wallet.Service
	activity Activity
	rates    RateSource
	target   string
	now      func() time.Time
}

// NewService builds a reporting service converting into target.
func NewService(wallets *wallet.Service, activity Activity, rates RateSource, target string) (*Service, error) {
	if wallets == nil || activity == nil || rates == nil {
		return nil, errors.New("reporting: wallets, activity and rates are required")
	}
	target = strings.ToUpper(strings.TrimSpace(target))
	if len(target) != 3 {
		return nil, fmt.Errorf("reporting: invalid reporting currency %q", target)
	}
	return &Service{
		wallets:  wallets,
		activity: activity,
		rates:    rates,
		target:   target,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Summary lists the user's wallets, optionally filtered by currency, with
// the balance total and this month's transfer volume in the reporting
// currency. It fails with *MissingRatesError when a wallet balance cannot be
// converted; transfer volume in unpriced currencies is left out instead.
func (s *Service) Summary(ctx context.Context, userID int64, currency string) (Summary, error) {
	defaultCC := s.wallets.DefaultCurrency()
	main, err := s.wallets.GetOrCreateMain(ctx, userID, defaultCC)
	if err != nil {
		return Summary{}, err
	}
	wallets, err := s.wallets.List(ctx, userID, currency)
	if err != nil {
		return Summary{}, err
	}

	var (
		codes []string
		ids   = make([]int64, 0, len(wallets))
		seen  = make(map[string]bool)
	)
	for _, w := range wallets {
		ids = append(ids, w.ID)
		if !seen[w.Currency] {
			seen[w.Currency] = true
			codes = append(codes, w.Currency)
		}
	}
	rates, err := s.rates.ToTarget(ctx, s.target, codes)
	if err != nil {
		return Summary{}, fmt.Errorf("exchange rates: %w", err)
	}

	total := decimal.Zero
	var missing []string
	for _, w := range wallets {
		rate, ok := rates[w.Currency]
		if !ok {
			missing = append(missing, w.Currency)
			continue
		}
		total = total.Add(w.Balance.Mul(rate))
	}
	if len(missing) > 0 {
		return Summary{}, &MissingRatesError{Currencies: dedupe(missing)}
	}

	out := Summary{
		Wallets:           make([]WalletView, 0, len(wallets)),
		DefaultWalletID:   main.ID,
		DefaultCurrency:   defaultCC,
		ReportingCurrency: s.target,
		TotalBalance:      total.Round(ledger.MoneyPlaces),
		MonthlyTransfers:  decimal.Zero,
	}
	if len(ids) == 0 {
		return out, nil
	}

	last, err := s.activity.LastIncomingTransfers(ctx, ids)
	if err != nil {
		return Summary{}, fmt.Errorf("last incoming transfers: %w", err)
	}
	for _, w := range wallets {
		view := WalletView{Wallet: w, CurrencyName: CurrencyName(w.Currency)}
		if t, ok := last[w.ID]; ok {
			view.LastIncomingTransfer = &t
		}
		out.Wallets = append(out.Wallets, view)
	}

	totals, err := s.activity.TransferTotals(ctx, ids, monthStart(s.now()))
	if err != nil {
		return Summary{}, fmt.Errorf("transfer totals: %w", err)
	}
	monthly := decimal.Zero
	for _, w := range wallets {
		sum, ok := totals[w.ID]
		if !ok {
			continue
		}
		monthly = monthly.Add(sum.Mul(rates[w.Currency]))
	}
	out.MonthlyTransfers = monthly.Round(ledger.MoneyPlaces)
	return out, nil
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func dedupe(codes []string) []string {
	set := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, cc := range codes {
		if _, ok := set[cc]; ok {
			continue
		}
		set[cc] = struct{}{}
		out = append(out, cc)
	}
	sort.Strings(out)
	return out
}
