package funding

import "github.com/shopspring/decimal"

// AmountRequest is the body of the quote, top-up and withdraw endpoints.
type AmountRequest struct {
	WalletID *int64          `json:"wallet_id" validate:"omitempty,gt=0"`
	Amount   decimal.Decimal `json:"amount" validate:"money"`
	Note     string          `json:"note" validate:"max=255"`
}

// WebhookRequest is what the payment gateway posts once a top-up settles.
type WebhookRequest struct {
	Reference string `json:"reference" validate:"required,max=64"`
	Status    string `json:"status" validate:"required,oneof=success failed"`
}

// PayoutWebhookRequest is what the payout provider posts once a withdraw settles.
type PayoutWebhookRequest struct {
	TransactionID int64  `json:"transaction_id" validate:"required,gt=0"`
	Status        string `json:"status" validate:"required,oneof=success failed"`
}
