package ledger

import (
	"encoding/json"
	"fmt"
)

// Meta is the typed payload attached to an entry. The concrete types below
// are the only implementations.
type Meta interface {
	MetaType() string
}

// Direction of a transfer leg relative to its wallet.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Top-up sources.
const (
	SourceGateway = "gateway"
	SourceDevTool = "dev_topup"
)

// TransferMeta marks a transfer leg.
type TransferMeta struct {
	Direction            Direction `json:"direction"`
	CounterpartyWalletID int64     `json:"counterparty_wallet_id"`
	CounterpartyUserID   int64     `json:"counterparty_user_id"`
	Note                 string    `json:"note,omitempty"`
}

// TopUpMeta describes an externally funded credit.
type TopUpMeta struct {
	Source        string `json:"source"`
	Note          string `json:"note,omitempty"`
	GatewayStatus string `json:"gateway_status,omitempty"`
}

// WithdrawMeta describes a payout request.
type WithdrawMeta struct {
	Note         string `json:"note,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

// ReversalMeta marks a credit that gives back a withdrawn hold.
type ReversalMeta struct {
	ReversedTransactionID int64  `json:"reversed_transaction_id"`
	Reason                string `json:"reason"`
}

// ManualMeta is for operator or fixture postings.
type ManualMeta struct {
	Source string `json:"source"`
	Note   string `json:"note,omitempty"`
}

func (TransferMeta) MetaType() string { return "transfer" }
func (TopUpMeta) MetaType() string    { return "top_up" }
func (WithdrawMeta) MetaType() string { return "withdraw" }
func (ReversalMeta) MetaType() string { return "reversal" }
func (ManualMeta) MetaType() string   { return "manual" }

type metaEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeMeta serialises m with its type discriminator. A nil Meta encodes to nil.
func EncodeMeta(m Meta) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s meta: %w", m.MetaType(), err)
	}
	return json.Marshal(metaEnvelope{Type: m.MetaType(), Data: data})
}

// DecodeMeta is the inverse of EncodeMeta. Empty input decodes to nil.
func DecodeMeta(raw []byte) (Meta, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env metaEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	var (
		m   Meta
		err error
	)
	switch env.Type {
	case "transfer":
		var v TransferMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	case "top_up":
		var v TopUpMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	case "withdraw":
		var v WithdrawMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	case "reversal":
		var v ReversalMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	case "manual":
		var v ManualMeta
		err = json.Unmarshal(env.Data, &v)
		m = v
	default:
		return nil, fmt.Errorf("decode meta: unknown type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s meta: %w", env.Type, err)
	}
	return m, nil
}
