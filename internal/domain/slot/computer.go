// Package slot computes open appointment slots from weekly availability
// windows, blocked dates and binding bookings. It is pure: callers load the
// data and pass it in.
package slot

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
)

// StepMinutes is the grid every slot start is aligned to, whatever the
// session duration.
const StepMinutes = 30

const (
	ReasonAlreadyBooked   = "already booked"
	MessageNoAvailability = "no availability configured for this day"
)

// Slot is a candidate start time with its verdict.
type Slot struct {
	Time      string    `json:"time"`
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
	Start     time.Time `json:"-"`
}

// Day is the slot listing for one date. Message explains an empty or fully
// unavailable day.
type Day struct {
	Date    civil.Date
	Slots   []Slot
	Message string
}

// HasAvailable reports whether any slot of the day can be booked.
func (d Day) HasAvailable() bool {
	for _, s := range d.Slots {
		if s.Available {
			return true
		}
	}
	return false
}

// Calendar is the data a computation reads. Inactive windows and non-binding
// bookings are ignored, so callers may pass unfiltered sets.
type Calendar struct {
	Windows  []*availability.Window
	Blocked  []*availability.BlockedDate
	Bookings []*booking.Booking
}

type Computer struct {
	now           func() time.Time
	minimumNotice time.Duration
}

// NewComputer returns a Computer reading the current instant from now.
// A nil now uses time.Now.
func NewComputer(now func() time.Time, minimumNotice time.Duration) *Computer {
	if now == nil {
		now = time.Now
	}
	return &Computer{now: now, minimumNotice: minimumNotice}
}

// NoticeCutoff returns the first date whose midnight is not before
// now + minimum notice. Earlier dates cannot be booked.
func (c *Computer) NoticeCutoff() civil.Date {
	earliest := c.now().UTC().Add(c.minimumNotice)
	d := civil.DateOf(earliest)
	if availability.Midnight(d).Before(earliest) {
		d = d.AddDays(1)
	}
	return d
}

// TooSoonReason is the slot reason used inside the notice window.
func (c *Computer) TooSoonReason() string {
	return fmt.Sprintf("too soon (%s minimum notice required)", formatNotice(c.minimumNotice))
}

// BlockedMessage is the day message for a blocked date.
func BlockedMessage(reason string) string {
	if reason == "" {
		reason = "not available"
	}
	return "date is blocked: " + reason
}

// ForDay lists the slots of date for a session of the given duration, ordered
// by start. Inside the notice window every slot is listed as unavailable. A
// blocked date or a weekday without active windows yields no slots.
func (c *Computer) ForDay(date civil.Date, duration time.Duration, cal Calendar) Day {
	day := Day{Date: date, Slots: []Slot{}}
	windows := availability.ActiveForWeekday(cal.Windows, availability.Weekday(date))

	if date.Before(c.NoticeCutoff()) {
		reason := c.TooSoonReason()
		for _, start := range candidates(windows, minutes(duration)) {
			day.Slots = append(day.Slots, Slot{
				Time:   availability.FormatClock(start),
				Reason: reason,
				Start:  at(date, start),
			})
		}
		day.Message = fmt.Sprintf("date must be at least %s from now", formatNotice(c.minimumNotice))
		if len(windows) == 0 {
			day.Message = MessageNoAvailability
		}
		return day
	}

	if b := blockedOn(cal.Blocked, date); b != nil {
		day.Message = BlockedMessage(b.Reason)
		return day
	}
	if len(windows) == 0 {
		day.Message = MessageNoAvailability
		return day
	}

	day.Slots = evaluate(date, windows, duration, bindingOn(cal.Bookings, date), false)
	return day
}

// AvailableDays returns the dates of month that have at least one open slot,
// ascending. Notice, blocked-date and weekday checks run before any slot is
// enumerated, and enumeration stops at the first open slot.
func (c *Computer) AvailableDays(month availability.Month, duration time.Duration, cal Calendar) []civil.Date {
	cutoff := c.NoticeCutoff()
	binding := filterBinding(cal.Bookings)

	days := []civil.Date{}
	for _, date := range month.Days() {
		if date.Before(cutoff) {
			continue
		}
		if blockedOn(cal.Blocked, date) != nil {
			continue
		}
		windows := availability.ActiveForWeekday(cal.Windows, availability.Weekday(date))
		if len(windows) == 0 {
			continue
		}
		slots := evaluate(date, windows, duration, bindingOn(binding, date), true)
		if len(slots) > 0 && slots[len(slots)-1].Available {
			days = append(days, date)
		}
	}
	return days
}

// evaluate checks each candidate start against the bookings. With
// stopAtFirst it returns as soon as an available slot is found.
func evaluate(date civil.Date, windows []*availability.Window, duration time.Duration, bookings []*booking.Booking, stopAtFirst bool) []Slot {
	starts := candidates(windows, minutes(duration))
	slots := make([]Slot, 0, len(starts))
	for _, start := range starts {
		slotStart := at(date, start)
		slotEnd := slotStart.Add(duration)

		s := Slot{Time: availability.FormatClock(start), Available: true, Start: slotStart}
		for _, b := range bookings {
			if b.Overlaps(slotStart, slotEnd) {
				s.Available = false
				s.Reason = ReasonAlreadyBooked
				break
			}
		}
		slots = append(slots, s)
		if stopAtFirst && s.Available {
			break
		}
	}
	return slots
}

// candidates returns grid-aligned start minutes whose session ends inside the
// window it starts in. Each window contributes its own grid, so windows
// starting off the half hour still produce their starts.
func candidates(windows []*availability.Window, durationMinutes int) []int {
	seen := make(map[int]struct{})
	var starts []int
	for _, w := range windows {
		end := w.EndMinute()
		for m := w.StartMinute(); m+durationMinutes <= end; m += StepMinutes {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			starts = append(starts, m)
		}
	}
	sort.Ints(starts)
	return starts
}

func blockedOn(blocked []*availability.BlockedDate, date civil.Date) *availability.BlockedDate {
	for _, b := range blocked {
		if b.Date == date {
			return b
		}
	}
	return nil
}

// bindingOn returns binding bookings intersecting date, including ones that
// started the previous day and run past midnight.
func bindingOn(bookings []*booking.Booking, date civil.Date) []*booking.Booking {
	dayStart := availability.Midnight(date)
	dayEnd := dayStart.Add(24 * time.Hour)
	var out []*booking.Booking
	for _, b := range bookings {
		if b.Status.IsBinding() && b.Overlaps(dayStart, dayEnd) {
			out = append(out, b)
		}
	}
	return out
}

func filterBinding(bookings []*booking.Booking) []*booking.Booking {
	out := make([]*booking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status.IsBinding() {
			out = append(out, b)
		}
	}
	return out
}

func at(date civil.Date, minute int) time.Time {
	return availability.Midnight(date).Add(time.Duration(minute) * time.Minute)
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}

func formatNotice(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}
