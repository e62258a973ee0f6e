package lodging

import (
	"regexp"
	"time"
)

const (
	monthKeyLayout = "2006-01"
	dateLayout     = "2006-01-02"
)

var (
	monthKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// MonthKey identifies a calendar month as YYYY-MM.
// Fixed width keeps string order equal to chronological order.
type MonthKey string

// MonthKeyOf derives the month key of t in t's location.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format(monthKeyLayout))
}

// ParseMonthKey validates a YYYY-MM key.
func ParseMonthKey(raw string) (MonthKey, error) {
	if !monthKeyPattern.MatchString(raw) {
		return "", invalid("month", "must be YYYY-MM, got %q", raw)
	}
	if _, err := time.Parse(monthKeyLayout, raw); err != nil {
		return "", invalid("month", "must be YYYY-MM, got %q", raw)
	}
	return MonthKey(raw), nil
}

// String returns the raw key.
func (k MonthKey) String() string { return string(k) }

// Start returns midnight of the first day of the month in loc.
func (k MonthKey) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(monthKeyLayout, string(k), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DaysIn returns the number of days of the month, 0 for a malformed key.
func (k MonthKey) DaysIn() int {
	start := k.Start(time.UTC)
	if start.IsZero() {
		return 0
	}
	return start.AddDate(0, 1, -1).Day()
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if !datePattern.MatchString(raw) {
		return time.Time{}, invalid("date", "invalid date format, use YYYY-MM-DD")
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, invalid("date", "%q is not a calendar date", raw)
	}
	return t, nil
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock location.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}
