package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept for stored amounts.
const MoneyScale = 2

// MaxMoney is the largest magnitude a stored amount can hold.
var MaxMoney = decimal.RequireFromString("999999999999.99")

func init() {
	// Amounts travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// CheckMoney rejects amounts the store cannot hold exactly: more than
// MoneyScale decimal places, or a magnitude above MaxMoney.
func CheckMoney(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MoneyScale)) {
		return &ErrValidation{Field: field, Message: fmt.Sprintf("%s must have at most %d decimal places", field, MoneyScale)}
	}
	if d.Abs().GreaterThan(MaxMoney) {
		return &ErrValidation{Field: field, Message: fmt.Sprintf("%s must not exceed %s", field, MaxMoney.StringFixed(MoneyScale))}
	}
	return nil
}

// SumAmounts adds up a slice of decimals.
func SumAmounts(xs ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, x := range xs {
		total = total.Add(x)
	}
	return total
}

// ClampAmount bounds v to [lo, hi].
func ClampAmount(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// Percent returns part/whole*100, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}
