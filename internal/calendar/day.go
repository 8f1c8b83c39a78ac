// Package calendar provides date-only values for interval math.
//
// All booking intervals in the system are half-open day ranges [start, end).
// Day carries no time-of-day and no timezone, so comparisons can never drift
// across a midnight boundary the way raw time.Time values can.
package calendar

import (
	"fmt"
	"time"
)

// DayFormat is the canonical textual form of a Day.
const DayFormat = "2006-01-02"

// Day is a single calendar day, stored as UTC midnight.
type Day struct {
	t time.Time
}

// NewDay builds a Day from its components.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return Day{t: t}, nil
}

// FromTime truncates a timestamp to its calendar day. The day is taken from
// the timestamp's own location, then re-anchored to UTC midnight, so a local
// evening never rolls into the previous or next day.
func FromTime(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day in local time.
func Today() Day {
	return FromTime(time.Now())
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return d.t.Format(DayFormat)
}

// Time returns the day as a UTC-midnight timestamp.
func (d Day) Time() time.Time {
	return d.t
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d Day) Before(other Day) bool {
	return d.t.Before(other.t)
}

// After reports whether d is strictly after other.
func (d Day) After(other Day) bool {
	return d.t.After(other.t)
}

// Equal reports whether d and other are the same calendar day.
func (d Day) Equal(other Day) bool {
	return d.t.Equal(other.t)
}

// DaysUntil returns the number of days from d to other. Negative if other is
// before d.
func (d Day) DaysUntil(other Day) int {
	return int(other.t.Sub(d.t) / (24 * time.Hour))
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// EnumerateDays returns every day from start to end inclusive, in order.
// Returns nil when end is before start. This is for building the visible
// grid; interval math elsewhere stays half-open.
func EnumerateDays(start, end Day) []Day {
	if end.Before(start) {
		return nil
	}
	days := make([]Day, 0, start.DaysUntil(end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
