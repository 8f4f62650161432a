// Package clock is the single authority for "now" and for business day
// and week boundaries, in one configured local timezone. Every other
// component derives calendar boundaries through this package; nothing
// else computes a timezone offset.
package clock

import (
	"fmt"
	"time"
)

// DefaultTimezone is the canonical business timezone.
const DefaultTimezone = "America/Chicago"

// ─── Date ───────────────────────────────────────────────────────────────────

// Date is a calendar day in the business timezone, with no time-of-day
// component. It is what "business day" means everywhere in the engine.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar day of t, as observed in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string. The zero Date is returned for
// an empty string.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool { return d == Date{} }

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return DateOf(t)
}

// Weekday returns the day of week of d.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// ─── Clock ──────────────────────────────────────────────────────────────────

// Clock supplies business-local time and calendar boundaries.
type Clock struct {
	loc   *time.Location
	nowFn func() time.Time
}

// New returns a Clock in the named IANA timezone. If the zone database
// cannot resolve the name, a fixed UTC-6 offset stands in so the engine
// keeps a stable business day rather than drifting to UTC.
func New(tzName string) *Clock {
	if tzName == "" {
		tzName = DefaultTimezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.FixedZone("CST", -6*60*60)
	}
	return &Clock{loc: loc, nowFn: time.Now}
}

// NewAt returns a Clock with a caller-supplied time source. Tests use
// this to pin "now".
func NewAt(tzName string, nowFn func() time.Time) *Clock {
	c := New(tzName)
	c.nowFn = nowFn
	return c
}

// Location returns the business timezone.
func (c *Clock) Location() *time.Location { return c.loc }

// Now returns the current instant in the business timezone.
func (c *Clock) Now() time.Time {
	return c.nowFn().In(c.loc)
}

// BusinessDate returns the business day that t falls in.
func (c *Clock) BusinessDate(t time.Time) Date {
	return DateOf(t.In(c.loc))
}

// Today returns the current business day.
func (c *Clock) Today() Date {
	return c.BusinessDate(c.Now())
}

// WeekStart returns the Monday of d's business week.
func (c *Clock) WeekStart(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDays(-offset)
}

// WeekDays returns the 7 business days of d's week, Monday first.
func (c *Clock) WeekDays(d Date) [7]Date {
	var days [7]Date
	start := c.WeekStart(d)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return days
}

// NextMidnight returns the first instant of the business day after t.
func (c *Clock) NextMidnight(t time.Time) time.Time {
	d := c.BusinessDate(t)
	return time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, c.loc)
}

// StartOfDay returns the first instant of business day d.
func (c *Clock) StartOfDay(d Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, c.loc)
}
