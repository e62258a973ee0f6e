package lodging

import (
	"time"

	"github.com/shopspring/decimal"
)

// ToggleOutcome reports what ToggleDay did.
type ToggleOutcome string

const (
	ToggleAdded   ToggleOutcome = "added"
	ToggleRemoved ToggleOutcome = "removed"
)

// LoggedDay identifies a day written by LogPreviousDay.
type LoggedDay struct {
	Month MonthKey
	Day   int
	Date  time.Time
}

// Record returns the record for key, or nil.
func (l Ledger) Record(key MonthKey) *MonthRecord {
	return l[key]
}

func (l Ledger) ensure(key MonthKey) *MonthRecord {
	record := l[key]
	if record == nil {
		record = NewMonthRecord()
		l[key] = record
	}
	if record.Days == nil {
		record.Days = Days{}
	}
	return record
}

// ToggleDay adds date to its month, or removes it when already logged.
// The month record is created on first use. A closed month is left
// untouched.
func (l Ledger) ToggleDay(date time.Time, loc *Location, now time.Time) (ToggleOutcome, error) {
	if date.IsZero() {
		return "", invalid("date", "required")
	}
	key := MonthKeyOf(date)
	if record := l[key]; record != nil && record.Closed {
		return "", ErrMonthClosed
	}
	record := l.ensure(key)
	day := date.Day()
	if record.Days.Has(day) {
		delete(record.Days, day)
		return ToggleRemoved, nil
	}
	record.Days[day] = NewDayEntry(now, loc)
	return ToggleAdded, nil
}

// LogPreviousDay adds the day before reference. It never removes a day.
func (l Ledger) LogPreviousDay(reference time.Time, loc *Location, now time.Time) (LoggedDay, error) {
	if reference.IsZero() {
		return LoggedDay{}, invalid("reference", "required")
	}
	yesterday := reference.AddDate(0, 0, -1)
	key := MonthKeyOf(yesterday)
	day := yesterday.Day()
	if record := l[key]; record != nil {
		if record.Closed {
			return LoggedDay{}, ErrMonthClosed
		}
		if record.Days.Has(day) {
			return LoggedDay{}, ErrDuplicateDay
		}
	}
	record := l.ensure(key)
	record.Days[day] = NewDayEntry(now, loc)
	return LoggedDay{Month: key, Day: day, Date: yesterday}, nil
}

// CloseMonth freezes the month. The computed amount is the current day
// count times dailyRate; it is not recalculated later.
func (l Ledger) CloseMonth(key MonthKey, paid, dailyRate decimal.Decimal) (*MonthRecord, error) {
	if paid.IsNegative() {
		return nil, invalid("paidAmount", "amount must not be negative")
	}
	if dailyRate.IsNegative() {
		return nil, invalid("dailyRate", "must not be negative")
	}
	record := l[key]
	if record == nil {
		return nil, ErrMonthNotFound
	}
	if record.Closed {
		return nil, ErrMonthClosed
	}
	computed := dailyRate.Mul(decimal.NewFromInt(int64(record.Days.Count())))
	record.Closed = true
	record.ComputedAmount = &computed
	record.PaidAmount = &paid
	return record, nil
}

// ReopenMonth reopens the month and drops both amounts.
func (l Ledger) ReopenMonth(key MonthKey) (*MonthRecord, error) {
	record := l[key]
	if record == nil {
		return nil, ErrMonthNotFound
	}
	record.Closed = false
	record.ComputedAmount = nil
	record.PaidAmount = nil
	return record, nil
}
