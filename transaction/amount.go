package transaction

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a token amount such as "1.5" into planck units for a
// token with the given precision.
func ParseAmount(text string, precision int32) (string, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", text, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("amount %q is negative", text)
	}
	planck := d.Shift(precision)
	if !planck.Equal(planck.Truncate(0)) {
		return "", fmt.Errorf("amount %q has more than %d decimals", text, precision)
	}
	return planck.StringFixed(0), nil
}

// FormatAmount converts planck units back to a token amount without
// trailing zeros.
func FormatAmount(planck string, precision int32) (string, error) {
	d, err := decimal.NewFromString(planck)
	if err != nil {
		return "", fmt.Errorf("invalid planck amount %q: %w", planck, err)
	}
	return d.Shift(-precision).String(), nil
}
