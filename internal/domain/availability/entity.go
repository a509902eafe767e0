package availability

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

// Window is a recurring weekly time range during which sessions may start
// and run. Several windows may share a weekday and may overlap.
type Window struct {
	ID        string
	DayOfWeek int
	Start     civil.Time
	End       civil.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWindow builds a validated window from HH:MM strings.
func NewWindow(dayOfWeek int, start, end string, active bool) (*Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	w := &Window{
		DayOfWeek: dayOfWeek,
		Start:     s,
		End:       e,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) Validate() error {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	if !w.Start.IsValid() || !w.End.IsValid() {
		return ErrInvalidTime
	}
	if w.StartMinute() >= w.EndMinute() {
		return ErrInvalidWindow
	}
	return nil
}

func (w *Window) StartMinute() int { return MinuteOfDay(w.Start) }
func (w *Window) EndMinute() int   { return MinuteOfDay(w.End) }

// ActiveForWeekday returns the active windows for weekday, ordered by start.
func ActiveForWeekday(windows []*Window, weekday int) []*Window {
	var out []*Window
	for _, w := range windows {
		if w.Active && w.DayOfWeek == weekday {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMinute() < out[j].StartMinute()
	})
	return out
}

// BlockedDate marks a whole civil date as unavailable.
type BlockedDate struct {
	ID        string
	Date      civil.Date
	Reason    string
	CreatedAt time.Time
}

func NewBlockedDate(date civil.Date, reason string) (*BlockedDate, error) {
	if !date.IsValid() {
		return nil, ErrInvalidDate
	}
	return &BlockedDate{Date: date, Reason: reason, CreatedAt: time.Now().UTC()}, nil
}

// DateRange is an inclusive range of civil dates. A zero bound is open.
type DateRange struct {
	From civil.Date
	To   civil.Date
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return ErrInvalidDateRange
	}
	return nil
}
