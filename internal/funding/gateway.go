package funding

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// Gateway is the external payment page a user is sent to for a top-up.
type Gateway interface {
	CheckoutURL(ctx context.Context, reference string, total decimal.Decimal, currency string) (string, error)
}

// HostedCheckout builds checkout links on a fixed payment page. The gateway
// reports the outcome back through the top-up webhook.
type HostedCheckout struct {
	BaseURL string
}

// CheckoutURL appends the reference to the payment page URL.
func (g HostedCheckout) CheckoutURL(_ context.Context, reference string, _ decimal.Decimal, _ string) (string, error) {
	u, err := url.Parse(g.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid top-up payment url %q", g.BaseURL)
	}
	q := u.Query()
	q.Set("reference", reference)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
