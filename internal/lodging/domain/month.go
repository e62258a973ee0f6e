package lodging

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MonthRecord is the lodging record of one month.
//
// ComputedAmount and PaidAmount are nil unless the month is closed.
type MonthRecord struct {
	Days           Days
	Closed         bool
	ComputedAmount *decimal.Decimal
	PaidAmount     *decimal.Decimal
}

// NewMonthRecord returns an open, empty record.
func NewMonthRecord() *MonthRecord {
	return &MonthRecord{Days: Days{}}
}

// Clone returns a detached copy.
func (m *MonthRecord) Clone() *MonthRecord {
	if m == nil {
		return nil
	}
	out := &MonthRecord{Days: m.Days.Clone(), Closed: m.Closed}
	if out.Days == nil {
		out.Days = Days{}
	}
	if m.ComputedAmount != nil {
		v := *m.ComputedAmount
		out.ComputedAmount = &v
	}
	if m.PaidAmount != nil {
		v := *m.PaidAmount
		out.PaidAmount = &v
	}
	return out
}

// Discrepancy returns paid minus computed. ok is false unless both
// amounts are present.
func (m *MonthRecord) Discrepancy() (diff decimal.Decimal, ok bool) {
	if m == nil || m.ComputedAmount == nil || m.PaidAmount == nil {
		return decimal.Zero, false
	}
	return m.PaidAmount.Sub(*m.ComputedAmount), true
}

// HasDiscrepancy reports a paid amount more than one cent away from the
// computed amount.
func (m *MonthRecord) HasDiscrepancy() bool {
	diff, ok := m.Discrepancy()
	if !ok {
		return false
	}
	return diff.Abs().GreaterThan(discrepancyTolerance)
}

// Validate checks the days against the month and the stored amounts.
func (m *MonthRecord) Validate(key MonthKey) error {
	if m == nil {
		return invalid("months", "%s has no record", key)
	}
	if err := m.Days.Validate(key); err != nil {
		return err
	}
	if m.PaidAmount != nil {
		if err := checkAmount("paidAmount", *m.PaidAmount); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if m.ComputedAmount != nil {
		if err := checkAmount("computedAmount", *m.ComputedAmount); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

type monthWire struct {
	Days           Days        `json:"days"`
	Closed         bool        `json:"closed"`
	ComputedAmount *jsonAmount `json:"computedAmount,omitempty"`
	PaidAmount     *jsonAmount `json:"paidAmount,omitempty"`
}

// monthInput also accepts the field names of the original Portuguese
// document.
type monthInput struct {
	Days                 *Days       `json:"days"`
	Closed               *bool       `json:"closed"`
	ComputedAmount       *jsonAmount `json:"computedAmount"`
	PaidAmount           *jsonAmount `json:"paidAmount"`
	LegacyDays           *Days       `json:"dias"`
	LegacyClosed         *bool       `json:"fechado"`
	LegacyComputedAmount *jsonAmount `json:"valorCalculado"`
	LegacyPaidAmount     *jsonAmount `json:"valorPago"`
}

// MarshalJSON omits absent amounts.
func (m MonthRecord) MarshalJSON() ([]byte, error) {
	days := m.Days
	if days == nil {
		days = Days{}
	}
	return json.Marshal(monthWire{
		Days:           days,
		Closed:         m.Closed,
		ComputedAmount: newJSONAmount(m.ComputedAmount),
		PaidAmount:     newJSONAmount(m.PaidAmount),
	})
}

// UnmarshalJSON accepts both the current and the legacy field names.
func (m *MonthRecord) UnmarshalJSON(data []byte) error {
	var in monthInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := MonthRecord{Days: Days{}}
	switch {
	case in.Days != nil:
		out.Days = *in.Days
	case in.LegacyDays != nil:
		out.Days = *in.LegacyDays
	}
	switch {
	case in.Closed != nil:
		out.Closed = *in.Closed
	case in.LegacyClosed != nil:
		out.Closed = *in.LegacyClosed
	}
	out.ComputedAmount = firstAmount(in.ComputedAmount, in.LegacyComputedAmount)
	out.PaidAmount = firstAmount(in.PaidAmount, in.LegacyPaidAmount)
	*m = out
	return nil
}

func firstAmount(values ...*jsonAmount) *decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return v.ptr()
		}
	}
	return nil
}
