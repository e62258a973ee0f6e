package lodging

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Profile is the singleton user profile.
type Profile struct {
	Name            string
	DefaultLocation string
	DailyRate       decimal.Decimal
}

// Validate checks the daily rate.
func (p Profile) Validate() error {
	return checkAmount("dailyRate", p.DailyRate)
}

type profileWire struct {
	Name            string     `json:"name"`
	DefaultLocation string     `json:"defaultLocation"`
	DailyRate       jsonAmount `json:"dailyRate"`
}

type profileInput struct {
	Name                  *string     `json:"name"`
	DefaultLocation       *string     `json:"defaultLocation"`
	DailyRate             *jsonAmount `json:"dailyRate"`
	LegacyName            *string     `json:"nome"`
	LegacyDefaultLocation *string     `json:"localPadrao"`
	LegacyDailyRate       *jsonAmount `json:"valorDiaria"`
}

// MarshalJSON encodes the daily rate as a number.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(profileWire{
		Name:            p.Name,
		DefaultLocation: p.DefaultLocation,
		DailyRate:       jsonAmount{Decimal: p.DailyRate},
	})
}

// UnmarshalJSON accepts both the current and the legacy field names.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var in profileInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Profile{}
	out.Name = firstString(in.Name, in.LegacyName)
	out.DefaultLocation = firstString(in.DefaultLocation, in.LegacyDefaultLocation)
	if rate := firstAmount(in.DailyRate, in.LegacyDailyRate); rate != nil {
		out.DailyRate = *rate
	}
	*p = out
	return nil
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

// Ledger maps month keys to month records.
type Ledger map[MonthKey]*MonthRecord

// Keys returns the month keys in chronological order.
func (l Ledger) Keys() []MonthKey {
	keys := make([]MonthKey, 0, len(l))
	for key := range l {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for key, record := range l {
		out[key] = record.Clone()
	}
	return out
}

// Document is the whole persisted state.
type Document struct {
	User   Profile `json:"user"`
	Months Ledger  `json:"months"`
}

// NewDocument returns the empty default document.
func NewDocument() *Document {
	return &Document{Months: Ledger{}}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{User: d.User, Months: d.Months.Clone()}
}

// Validate checks the profile and every month record.
func (d *Document) Validate() error {
	if d == nil {
		return ErrNilDocument
	}
	if err := d.User.Validate(); err != nil {
		return err
	}
	for key, record := range d.Months {
		if _, err := ParseMonthKey(string(key)); err != nil {
			return err
		}
		if err := record.Validate(key); err != nil {
			return err
		}
	}
	return nil
}

type documentInput struct {
	User         *Profile `json:"user"`
	Months       Ledger   `json:"months"`
	LegacyUser   *Profile `json:"usuario"`
	LegacyMonths Ledger   `json:"hospedagens"`
}

// UnmarshalJSON accepts both the current and the legacy top-level keys.
func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Document{Months: Ledger{}}
	switch {
	case in.User != nil:
		out.User = *in.User
	case in.LegacyUser != nil:
		out.User = *in.LegacyUser
	}
	months := in.Months
	if months == nil {
		months = in.LegacyMonths
	}
	for key, record := range months {
		if record == nil {
			record = NewMonthRecord()
		}
		out.Months[key] = record
	}
	*d = out
	return nil
}
