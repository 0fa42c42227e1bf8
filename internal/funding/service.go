package funding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riyal-pay/riyal_wallet/internal/fee"
	"github.com/riyal-pay/riyal_wallet/internal/ledger"
	"github.com/riyal-pay/riyal_wallet/internal/wallet"
)

// ErrDevTopUpDisabled is returned when dev top-ups are switched off.
var ErrDevTopUpDisabled = errors.New("dev top-up is disabled")

// Config holds the fee policies and feature switches of the funding flows.
type Config struct {
	TopUpFee        fee.Policy
	WithdrawFee     fee.Policy
	DevTopUpEnabled bool
}

// Service coordinates top-ups from the payment gateway and withdrawals.
type Service struct {
	engine  *ledger.Engine
	wallets *wallet.Service
	gateway Gateway
	cfg     Config
	now     func() time.Time
}

// NewService prepares a funding service.
func NewService(engine *ledger.Engine, wallets *wallet.Service, gateway Gateway, cfg Config) (*Service, error) {
	if engine == nil || wallets == nil {
		return nil, fmt.Errorf("ledger engine and wallet service are required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	if err := cfg.TopUpFee.Validate(); err != nil {
		return nil, fmt.Errorf("top-up fee: %w", err)
	}
	if err := cfg.WithdrawFee.Validate(); err != nil {
		return nil, fmt.Errorf("withdraw fee: %w", err)
	}
	return &Service{
		engine:  engine,
		wallets: wallets,
		gateway: gateway,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Quote previews the fee for a top-up.
type Quote struct {
	WalletID int64           `json:"wallet_id"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Fee      decimal.Decimal `json:"fee"`
	Total    decimal.Decimal `json:"total"`
}

// QuoteInput selects the wallet and amount of a quote. A nil WalletID means
// the caller's main wallet.
type QuoteInput struct {
	UserID   int64
	WalletID *int64
	Amount   decimal.Decimal
}

// Quote computes what a top-up of Amount would cost.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (Quote, error) {
	if err := ledger.ValidateAmount(in.Amount); err != nil {
		return Quote{}, err
	}
	w, err := s.wallets.Resolve(ctx, in.UserID, in.WalletID)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(w, in.Amount), nil
}

func (s *Service) quote(w wallet.Wallet, amount decimal.Decimal) Quote {
	charged := s.cfg.TopUpFee.Calculate(amount)
	return Quote{WalletID: w.ID, Currency: w.Currency, Amount: amount, Fee: charged, Total: amount.Add(charged)}
}

// TopUpInput starts a gateway top-up.
type TopUpInput struct {
	UserID   int64
	WalletID *int64
	Amount   decimal.Decimal
	Note     string
}

// TopUpResult is the pending entry and the page the user pays on.
type TopUpResult struct {
	Transaction ledger.Transaction `json:"transaction"`
	Quote       Quote              `json:"quote"`
	PaymentURL  string             `json:"payment_url"`
}

// InitiateTopUp records a pending credit and returns the checkout link. The
// wallet is credited when the gateway confirms through ConfirmTopUp.
func (s *Service) InitiateTopUp(ctx context.Context, in TopUpInput) (TopUpResult, error) {
	// the gateway must never see an amount the ledger would refuse
	if err := ledger.ValidateAmount(in.Amount); err != nil {
		return TopUpResult{}, err
	}
	w, err := s.wallets.Resolve(ctx, in.UserID, in.WalletID)
	if err != nil {
		return TopUpResult{}, err
	}
	q := s.quote(w, in.Amount)
	reference := ledger.NewReference(ledger.PrefixTopUp, w.ID, s.now())

	paymentURL, err := s.gateway.CheckoutURL(ctx, reference, q.Total, w.Currency)
	if err != nil {
		return TopUpResult{}, fmt.Errorf("checkout url: %w", err)
	}

	entry, err := s.engine.InitiatePendingCredit(ctx, ledger.PendingCreditInput{
		WalletID:    w.ID,
		Amount:      q.Amount,
		Fee:         q.Fee,
		Reference:   reference,
		Description: "Top-up pending",
		Meta:        ledger.TopUpMeta{Source: ledger.SourceGateway, Note: in.Note},
	})
	if err != nil {
		return TopUpResult{}, err
	}
	return TopUpResult{Transaction: entry, Quote: q, PaymentURL: paymentURL}, nil
}

// ConfirmTopUp applies the gateway's verdict for reference. Repeated
// deliveries return the already settled entry.
func (s *Service) ConfirmTopUp(ctx context.Context, reference, status string) (ledger.Transaction, error) {
	outcome, err := ledger.ParseOutcome(status)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return s.engine.ConfirmPendingCredit(ctx, reference, outcome)
}

// DevTopUpInput credits a wallet directly, for local testing only.
type DevTopUpInput struct {
	UserID   int64
	WalletID *int64
	Amount   decimal.Decimal
	Note     string
}

// DevTopUp credits the wallet without a gateway round trip.
func (s *Service) DevTopUp(ctx context.Context, in DevTopUpInput) (ledger.Transaction, error) {
	if !s.cfg.DevTopUpEnabled {
		return ledger.Transaction{}, ErrDevTopUpDisabled
	}
	w, err := s.wallets.Resolve(ctx, in.UserID, in.WalletID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return s.engine.Credit(ctx, w.ID, in.Amount, "Dev top-up", ledger.TopUpMeta{Source: ledger.SourceDevTool, Note: in.Note})
}

// WithdrawInput requests a payout from one of the caller's wallets.
type WithdrawInput struct {
	UserID   int64
	WalletID *int64
	Amount   decimal.Decimal
	Note     string
}

// RequestWithdraw holds Amount plus the withdraw fee on the wallet and
// records a pending withdraw entry.
func (s *Service) RequestWithdraw(ctx context.Context, in WithdrawInput) (ledger.Transaction, error) {
	w, err := s.wallets.Resolve(ctx, in.UserID, in.WalletID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return s.engine.RequestWithdraw(ctx, ledger.WithdrawInput{
		WalletID:    w.ID,
		Amount:      in.Amount,
		Fee:         s.cfg.WithdrawFee.Calculate(in.Amount),
		Description: "Withdrawal request",
		Note:        in.Note,
	})
}

// ListWithdrawals pages through the withdraw entries of one of the caller's wallets.
func (s *Service) ListWithdrawals(ctx context.Context, userID int64, walletID *int64, page int) (ledger.Page, error) {
	w, err := s.wallets.Resolve(ctx, userID, walletID)
	if err != nil {
		return ledger.Page{}, err
	}
	return s.engine.ListTransactions(ctx, ledger.ListQuery{WalletID: w.ID, Kind: ledger.KindWithdraw, Page: page})
}

// CancelWithdraw cancels one of the caller's pending withdrawals.
func (s *Service) CancelWithdraw(ctx context.Context, userID, transactionID int64) (ledger.Transaction, error) {
	return s.engine.CancelPendingWithdraw(ctx, transactionID, userID)
}

// SettleWithdraw applies the payout provider's verdict for a withdraw entry.
// A failed payout gives the held amount back.
func (s *Service) SettleWithdraw(ctx context.Context, transactionID int64, status string) (ledger.Transaction, error) {
	outcome, err := ledger.ParseOutcome(status)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return s.engine.SettleWithdraw(ctx, transactionID, outcome)
}
