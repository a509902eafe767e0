package availability

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ParseClock parses a wall-clock time given as HH:MM or HH:MM:SS, the latter
// being how TIME columns come back from Postgres.
func ParseClock(s string) (civil.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) == len("15:04") {
		s += ":00"
	}
	t, err := civil.ParseTime(s)
	if err != nil || !t.IsValid() {
		return civil.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t, nil
}

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// MinuteOfDay returns t as minutes after midnight. Seconds are dropped.
func MinuteOfDay(t civil.Time) int {
	return t.Hour*60 + t.Minute
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil || !d.IsValid() {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Midnight returns the UTC instant at which d starts.
func Midnight(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// Weekday returns d's day of week, Sunday being 0.
func Weekday(d civil.Date) int {
	return int(d.In(time.UTC).Weekday())
}

// Month is a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing d.
func MonthOf(d civil.Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns the first day of the month.
func (m Month) First() civil.Date {
	return civil.Date{Year: m.Year, Month: m.Month, Day: 1}
}

// Last returns the last day of the month.
func (m Month) Last() civil.Date {
	return m.Next().First().AddDays(-1)
}

// Next returns the following month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Days lists every date of the month in order.
func (m Month) Days() []civil.Date {
	last := m.Last()
	days := make([]civil.Date, 0, last.Day)
	for d := m.First(); !d.After(last); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
