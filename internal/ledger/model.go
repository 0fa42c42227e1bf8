package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a ledger entry.
type Kind string

const (
	KindCredit   Kind = "credit"
	KindDebit    Kind = "debit"
	KindWithdraw Kind = "withdraw"
)

// Status is the lifecycle state of a ledger entry. Only pending entries change.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Outcome is the result reported for a pending entry by the outside world.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// ParseOutcome validates a raw outcome string.
func ParseOutcome(raw string) (Outcome, error) {
	switch o := Outcome(raw); o {
	case OutcomeSuccess, OutcomeFailed:
		return o, nil
	}
	return "", ErrInvalidOutcome
}

// Transaction is one row of the ledger.
type Transaction struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	WalletID      int64           `json:"wallet_id"`
	Kind          Kind            `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Status        Status          `json:"status"`
	Reference     string          `json:"reference,omitempty"`
	Description   string          `json:"description,omitempty"`
	Meta          Meta            `json:"meta,omitempty"`
	// Sequence orders balance changes across the ledger; zero while the
	// entry has not touched a balance.
	Sequence  int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Delta is the signed change the entry makes to its wallet balance when applied.
func (t Transaction) Delta() decimal.Decimal {
	if t.Kind == KindCredit {
		return t.Amount
	}
	return t.TotalAmount.Neg()
}

// Applied reports whether the entry changed its wallet balance.
func (t Transaction) Applied() bool {
	return t.Sequence > 0
}

// IsTransferLeg reports whether the entry is one side of a wallet-to-wallet transfer.
func (t Transaction) IsTransferLeg() bool {
	_, ok := t.Meta.(TransferMeta)
	return ok
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	Debit     Transaction `json:"debit"`
	Credit    Transaction `json:"credit"`
	Reference string      `json:"reference"`
}

// ListQuery selects a page of a wallet's entries. Zero Kind means all kinds.
type ListQuery struct {
	WalletID int64
	Kind     Kind
	Page     int
}

func (q ListQuery) offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * PageSize
}

// Page is one page of entries, newest first.
type Page struct {
	Items      []Transaction `json:"items"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
}

func newPage(items []Transaction, page int, total int64) Page {
	if page < 1 {
		page = 1
	}
	if items == nil {
		items = []Transaction{}
	}
	pages := int((total + PageSize - 1) / PageSize)
	return Page{Items: items, Page: page, PerPage: PageSize, Total: total, TotalPages: pages}
}
