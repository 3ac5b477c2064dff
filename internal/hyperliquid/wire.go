package hyperliquid

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	maxWireDecimals = 8
	// perpPriceDecimals bounds price precision together with the asset's size decimals.
	perpPriceDecimals = 6
	priceSigFigs      = 5
)

// FloatToWire renders a price or size the way the API hashes it: at most 8
// decimals, no trailing zeros.
func FloatToWire(d decimal.Decimal) (string, error) {
	rounded := d.Round(maxWireDecimals)
	if !rounded.Equal(d) {
		return "", fmt.Errorf("%s has more than %d decimals", d.String(), maxWireDecimals)
	}
	return rounded.String(), nil
}

// RoundSignificant rounds d to n significant figures.
func RoundSignificant(d decimal.Decimal, n int) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	magnitude := int32(d.NumDigits()) + d.Exponent() - 1
	return d.Round(int32(n) - 1 - magnitude)
}

// SlippagePrice moves mid by slippage against the taker and rounds the result
// to a price the exchange accepts for an asset with szDecimals.
func SlippagePrice(mid decimal.Decimal, isBuy bool, slippage float64, szDecimals int) decimal.Decimal {
	factor := decimal.NewFromFloat(1 + slippage)
	if !isBuy {
		factor = decimal.NewFromFloat(1 - slippage)
	}
	px := RoundSignificant(mid.Mul(factor), priceSigFigs)
	return px.Round(int32(perpPriceDecimals - szDecimals))
}
