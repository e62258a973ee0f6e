package lodging

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Location is an optional geolocation captured when a day is logged.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DayEntry is one logged lodging day. Entries migrated from the
// list form carry no metadata.
type DayEntry struct {
	Timestamp *time.Time `json:"timestamp"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
}

// NewDayEntry builds an entry stamped at now with an optional location.
func NewDayEntry(now time.Time, loc *Location) DayEntry {
	ts := now
	entry := DayEntry{Timestamp: &ts}
	if loc != nil {
		lat, lng := loc.Latitude, loc.Longitude
		entry.Latitude = &lat
		entry.Longitude = &lng
	}
	return entry
}

// Days maps day-of-month to its entry.
//
// On the wire Days accepts both the legacy list of day numbers and the
// map of day to entry. It always encodes as the map form.
type Days map[int]DayEntry

// Has reports whether day is logged.
func (d Days) Has(day int) bool {
	_, ok := d[day]
	return ok
}

// Count returns the number of logged days.
func (d Days) Count() int { return len(d) }

// Sorted returns the logged days in ascending order.
func (d Days) Sorted() []int {
	out := make([]int, 0, len(d))
	for day := range d {
		out = append(out, day)
	}
	sort.Ints(out)
	return out
}

// Clone returns a deep copy.
func (d Days) Clone() Days {
	if d == nil {
		return nil
	}
	out := make(Days, len(d))
	for day, entry := range d {
		out[day] = entry.clone()
	}
	return out
}

func (e DayEntry) clone() DayEntry {
	out := DayEntry{}
	if e.Timestamp != nil {
		ts := *e.Timestamp
		out.Timestamp = &ts
	}
	if e.Latitude != nil {
		v := *e.Latitude
		out.Latitude = &v
	}
	if e.Longitude != nil {
		v := *e.Longitude
		out.Longitude = &v
	}
	return out
}

// Validate checks every day against the month length.
func (d Days) Validate(key MonthKey) error {
	last := key.DaysIn()
	for day := range d {
		if day < 1 || day > last {
			return invalid("days", "day %d outside %s", day, key)
		}
	}
	return nil
}

// MarshalJSON encodes the map form with ascending day keys.
func (d Days) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, day := range d.Sorted() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(day)))
		buf.WriteByte(':')
		raw, err := json.Marshal(d[day])
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes either the list form or the map form.
func (d *Days) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*d = Days{}
		return nil
	}
	switch trimmed[0] {
	case '[':
		var list []int
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return invalid("days", "list form: %v", err)
		}
		out := make(Days, len(list))
		for _, day := range list {
			out[day] = DayEntry{}
		}
		*d = out
		return nil
	case '{':
		var raw map[string]*DayEntry
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return invalid("days", "map form: %v", err)
		}
		out := make(Days, len(raw))
		for key, entry := range raw {
			day, err := strconv.Atoi(key)
			if err != nil {
				return invalid("days", "day key %q is not a number", key)
			}
			if entry == nil {
				out[day] = DayEntry{}
				continue
			}
			out[day] = *entry
		}
		*d = out
		return nil
	default:
		return invalid("days", "expected list or object")
	}
}
