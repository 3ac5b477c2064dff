package risk

import "github.com/shopspring/decimal"

// Limits caps what a single webhook may trade. A zero cap disables the check.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether notional fits under the cap.
func (l Limits) Allow(notional decimal.Decimal) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional.LessThanOrEqual(decimal.NewFromFloat(l.MaxNotionalPerTrade))
}
