package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Config lists the currencies wallets may be opened in.
type Config struct {
	DefaultCurrency     string
	SupportedCurrencies []string
}

// Service provisions and looks up wallets.
type Service struct {
	repo      Repository
	defaultCC string
	supported map[string]struct{}
}

// NewService builds a wallet service instance.
func NewService(repo Repository, cfg Config) (*Service, error) {
	if len(cfg.SupportedCurrencies) == 0 {
		return nil, errors.New("wallet: no supported currencies configured")
	}
	supported := make(map[string]struct{}, len(cfg.SupportedCurrencies))
	for _, code := range cfg.SupportedCurrencies {
		supported[strings.ToUpper(code)] = struct{}{}
	}
	def := strings.ToUpper(cfg.DefaultCurrency)
	if _, ok := supported[def]; !ok {
		return nil, fmt.Errorf("wallet: default currency %q: %w", cfg.DefaultCurrency, ErrUnsupportedCurrency)
	}
	return &Service{repo: repo, defaultCC: def, supported: supported}, nil
}

// DefaultCurrency returns the currency used when callers do not name one.
func (s *Service) DefaultCurrency() string {
	return s.defaultCC
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	UserID       int64
	Currency     string
	Type         Type
	FailIfExists bool
}

// Create provisions a wallet. Without FailIfExists it behaves like GetOrCreate.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	key, err := s.key(input.UserID, input.Currency, input.Type)
	if err != nil {
		return Wallet{}, err
	}

	if input.FailIfExists {
		if _, err := s.repo.FindByKey(ctx, key); err == nil {
			return Wallet{}, ErrWalletAlreadyExists
		} else if !errors.Is(err, ErrWalletNotFound) {
			return Wallet{}, err
		}
		return s.repo.Create(ctx, Wallet{UserID: key.UserID, Currency: key.Currency, Type: key.Type, Status: StatusActive})
	}
	return s.getOrCreate(ctx, key)
}

// GetOrCreate returns the user's wallet for (currency, type), creating it on
// first use. Concurrent callers always observe the same wallet.
func (s *Service) GetOrCreate(ctx context.Context, userID int64, currency string, typ Type) (Wallet, error) {
	key, err := s.key(userID, currency, typ)
	if err != nil {
		return Wallet{}, err
	}
	return s.getOrCreate(ctx, key)
}

// GetOrCreateMain is GetOrCreate for the main wallet. An empty currency
// selects the default currency.
func (s *Service) GetOrCreateMain(ctx context.Context, userID int64, currency string) (Wallet, error) {
	return s.GetOrCreate(ctx, userID, currency, TypeMain)
}

func (s *Service) getOrCreate(ctx context.Context, key Key) (Wallet, error) {
	w, err := s.repo.FindByKey(ctx, key)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return Wallet{}, err
	}

	w, err = s.repo.Create(ctx, Wallet{UserID: key.UserID, Currency: key.Currency, Type: key.Type, Status: StatusActive})
	if errors.Is(err, ErrWalletAlreadyExists) {
		// lost the race against a concurrent create
		return s.repo.FindByKey(ctx, key)
	}
	return w, err
}

// GetOwned returns the wallet only when it belongs to userID.
func (s *Service) GetOwned(ctx context.Context, userID, walletID int64) (Wallet, error) {
	w, err := s.repo.Get(ctx, walletID)
	if err != nil {
		return Wallet{}, err
	}
	if w.UserID != userID {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

// Resolve returns the caller's wallet walletID when given, otherwise the
// caller's main wallet in the default currency.
func (s *Service) Resolve(ctx context.Context, userID int64, walletID *int64) (Wallet, error) {
	if walletID != nil {
		return s.GetOwned(ctx, userID, *walletID)
	}
	return s.GetOrCreateMain(ctx, userID, "")
}

// Get retrieves a wallet by id without an ownership check.
func (s *Service) Get(ctx context.Context, walletID int64) (Wallet, error) {
	return s.repo.Get(ctx, walletID)
}

// List returns the user's wallets, optionally filtered by currency.
func (s *Service) List(ctx context.Context, userID int64, currency string) ([]Wallet, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency != "" {
		if _, ok := s.supported[currency]; !ok {
			return nil, ErrUnsupportedCurrency
		}
	}
	return s.repo.ListByUser(ctx, userID, currency)
}

func (s *Service) key(userID int64, currency string, typ Type) (Key, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.defaultCC
	}
	if _, ok := s.supported[currency]; !ok {
		return Key{}, ErrUnsupportedCurrency
	}
	if typ == "" {
		typ = TypeMain
	}
	if !typ.Valid() {
		return Key{}, ErrInvalidWalletType
	}
	return Key{UserID: userID, Currency: currency, Type: typ}, nil
}
