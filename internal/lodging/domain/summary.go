package lodging

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Summary aggregates every month of a document.
type Summary struct {
	Months            int             `json:"months"`
	ClosedMonths      int             `json:"closedMonths"`
	TotalDays         int             `json:"totalDays"`
	TotalPaid         decimal.Decimal `json:"totalPaid"`
	MonthlyMean       decimal.Decimal `json:"monthlyMean"`
	OpenEstimatedCost decimal.Decimal `json:"openEstimatedCost"`
}

type summaryWire struct {
	Months            int        `json:"months"`
	ClosedMonths      int        `json:"closedMonths"`
	TotalDays         int        `json:"totalDays"`
	TotalPaid         jsonAmount `json:"totalPaid"`
	MonthlyMean       jsonAmount `json:"monthlyMean"`
	OpenEstimatedCost jsonAmount `json:"openEstimatedCost"`
}

// MarshalJSON writes the amounts as JSON numbers.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryWire{
		Months:            s.Months,
		ClosedMonths:      s.ClosedMonths,
		TotalDays:         s.TotalDays,
		TotalPaid:         jsonAmount{s.TotalPaid},
		MonthlyMean:       jsonAmount{s.MonthlyMean},
		OpenEstimatedCost: jsonAmount{s.OpenEstimatedCost},
	})
}

// Summarize computes the general statistics. The monthly mean divides the
// total paid by every month on record, closed or not.
func Summarize(doc *Document) Summary {
	s := Summary{TotalPaid: decimal.Zero, MonthlyMean: decimal.Zero, OpenEstimatedCost: decimal.Zero}
	if doc == nil {
		return s
	}
	openDays := 0
	for _, record := range doc.Months {
		if record == nil {
			continue
		}
		s.Months++
		s.TotalDays += record.Days.Count()
		if record.Closed {
			s.ClosedMonths++
			if record.PaidAmount != nil {
				s.TotalPaid = s.TotalPaid.Add(*record.PaidAmount)
			}
			continue
		}
		openDays += record.Days.Count()
	}
	if s.Months > 0 {
		s.MonthlyMean = s.TotalPaid.Div(decimal.NewFromInt(int64(s.Months))).Round(2)
	}
	s.OpenEstimatedCost = doc.User.DailyRate.Mul(decimal.NewFromInt(int64(openDays)))
	return s
}

// MonthView is a read model of one month.
type MonthView struct {
	Month          MonthKey         `json:"month"`
	Days           []int            `json:"days"`
	Entries        Days             `json:"entries"`
	DayCount       int              `json:"dayCount"`
	DailyRate      decimal.Decimal  `json:"dailyRate"`
	EstimatedCost  decimal.Decimal  `json:"estimatedCost"`
	Closed         bool             `json:"closed"`
	ComputedAmount *decimal.Decimal `json:"computedAmount,omitempty"`
	PaidAmount     *decimal.Decimal `json:"paidAmount,omitempty"`
	Discrepancy    *decimal.Decimal `json:"discrepancy,omitempty"`
	HasDiscrepancy bool             `json:"hasDiscrepancy"`
}

type monthViewWire struct {
	Month          MonthKey    `json:"month"`
	Days           []int       `json:"days"`
	Entries        Days        `json:"entries"`
	DayCount       int         `json:"dayCount"`
	DailyRate      jsonAmount  `json:"dailyRate"`
	EstimatedCost  jsonAmount  `json:"estimatedCost"`
	Closed         bool        `json:"closed"`
	ComputedAmount *jsonAmount `json:"computedAmount,omitempty"`
	PaidAmount     *jsonAmount `json:"paidAmount,omitempty"`
	Discrepancy    *jsonAmount `json:"discrepancy,omitempty"`
	HasDiscrepancy bool        `json:"hasDiscrepancy"`
}

// MarshalJSON writes the amounts as JSON numbers, like the document does.
func (v MonthView) MarshalJSON() ([]byte, error) {
	return json.Marshal(monthViewWire{
		Month:          v.Month,
		Days:           v.Days,
		Entries:        v.Entries,
		DayCount:       v.DayCount,
		DailyRate:      jsonAmount{v.DailyRate},
		EstimatedCost:  jsonAmount{v.EstimatedCost},
		Closed:         v.Closed,
		ComputedAmount: newJSONAmount(v.ComputedAmount),
		PaidAmount:     newJSONAmount(v.PaidAmount),
		Discrepancy:    newJSONAmount(v.Discrepancy),
		HasDiscrepancy: v.HasDiscrepancy,
	})
}

// ViewMonth builds the view of key. A month without a record yields an
// empty open view.
func ViewMonth(doc *Document, key MonthKey) MonthView {
	view := MonthView{Month: key, Days: []int{}, Entries: Days{}}
	if doc == nil {
		return view
	}
	view.DailyRate = doc.User.DailyRate
	record := doc.Months[key]
	if record != nil {
		view.Days = record.Days.Sorted()
		view.Entries = record.Days.Clone()
		if view.Entries == nil {
			view.Entries = Days{}
		}
		view.Closed = record.Closed
		view.ComputedAmount = record.ComputedAmount
		view.PaidAmount = record.PaidAmount
		if diff, ok := record.Discrepancy(); ok {
			view.Discrepancy = &diff
		}
		view.HasDiscrepancy = record.HasDiscrepancy()
	}
	view.DayCount = len(view.Days)
	view.EstimatedCost = view.DailyRate.Mul(decimal.NewFromInt(int64(view.DayCount)))
	return view
}
