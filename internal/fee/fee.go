// Package fee computes service fees charged on top of wallet movements.
package fee

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places fees are rounded to.
const Places = 2

// ErrNegativeRate is returned when a policy carries a negative component.
var ErrNegativeRate = errors.New("fee rates must not be negative")

var hundred = decimal.NewFromInt(100)

// Policy is a percentage plus flat fee.
type Policy struct {
	PercentRate decimal.Decimal
	FlatRate    decimal.Decimal
}

// Validate rejects negative rates.
func (p Policy) Validate() error {
	if p.PercentRate.IsNegative() || p.FlatRate.IsNegative() {
		return ErrNegativeRate
	}
	return nil
}

// Calculate returns the fee owed on amount under the policy.
func (p Policy) Calculate(amount decimal.Decimal) decimal.Decimal {
	return Calculate(amount, p.PercentRate, p.FlatRate)
}

// Calculate returns round(percent/100*amount + flat, 2), rounding half away from zero.
func Calculate(amount, percent, flat decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred).Mul(amount).Add(flat).Round(Places)
}
