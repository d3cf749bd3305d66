package mirror

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InStock derives availability from a raw inventory quantity.
//
// A nil, empty or non-numeric quantity means the item is untracked and therefore always in
// stock. A numeric quantity above zero, fractional ones included, is in stock; zero and
// negative quantities are depleted.
func InStock(raw *string) bool {
	q, tracked := ParseQuantity(raw)
	if !tracked {
		return true
	}
	return q.IsPositive()
}

// ParseQuantity returns the numeric quantity and whether the item is tracked at all.
func ParseQuantity(raw *string) (decimal.Decimal, bool) {
	if raw == nil {
		return decimal.Zero, false
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return decimal.Zero, false
	}
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return q, true
}
