package lodging

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	discrepancyTolerance = decimal.New(1, -2)
	// amountLimit matches the NUMERIC(14,2) columns: twelve integer digits.
	amountLimit = decimal.New(1, 12)
)

// checkAmount enforces what every backend can store exactly: a non-negative
// value with at most two decimal places and twelve integer digits.
func checkAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return invalid(field, "amount must not be negative")
	}
	if !d.Equal(d.Round(2)) {
		return invalid(field, "amount must have at most two decimal places")
	}
	if d.GreaterThanOrEqual(amountLimit) {
		return invalid(field, "amount must be below %s", amountLimit.String())
	}
	return nil
}

// ParseAmount parses a user-entered, non-negative amount. A comma is
// accepted as the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, invalid("paidAmount", "amount is required")
	}
	value = strings.Replace(value, ",", ".", 1)
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, invalid("paidAmount", "%q is not a number", raw)
	}
	if err := checkAmount("paidAmount", amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// jsonAmount encodes a decimal as a bare JSON number.
type jsonAmount struct {
	decimal.Decimal
}

func newJSONAmount(d *decimal.Decimal) *jsonAmount {
	if d == nil {
		return nil
	}
	return &jsonAmount{Decimal: *d}
}

func (a jsonAmount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *jsonAmount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte(`""`)) {
		a.Decimal = decimal.Zero
		return nil
	}
	if err := a.Decimal.UnmarshalJSON(trimmed); err != nil {
		return invalid("amount", "%s is not a number", string(trimmed))
	}
	return nil
}

func (a *jsonAmount) ptr() *decimal.Decimal {
	if a == nil {
		return nil
	}
	d := a.Decimal
	return &d
}
