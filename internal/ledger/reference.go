package ledger

import (
	"fmt"
	"time"

	"github.com/riyal-pay/riyal_wallet/internal/ids"
)

// Reference prefixes.
const (
	PrefixTransfer = "TRF"
	PrefixTopUp    = "TPU"
	PrefixWithdraw = "WDR"
)

// NewReference builds an external reference of the form
// PREFIX-<unix seconds>-<walletID>-<6 random characters>.
func NewReference(prefix string, walletID int64, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d-%s", prefix, now.Unix(), walletID, ids.Suffix(6))
}
