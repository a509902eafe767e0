package availability

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name    string
		day     int
		start   string
		end     string
		wantErr error
	}{
		{name: "valid", day: 1, start: "09:00", end: "17:00"},
		{name: "seconds accepted", day: 0, start: "09:00:00", end: "10:30:00"},
		{name: "day below range", day: -1, start: "09:00", end: "17:00", wantErr: ErrInvalidDayOfWeek},
		{name: "day above range", day: 7, start: "09:00", end: "17:00", wantErr: ErrInvalidDayOfWeek},
		{name: "bad start", day: 1, start: "9am", end: "17:00", wantErr: ErrInvalidTime},
		{name: "bad end", day: 1, start: "09:00", end: "25:00", wantErr: ErrInvalidTime},
		{name: "start equals end", day: 1, start: "09:00", end: "09:00", wantErr: ErrInvalidWindow},
		{name: "start after end", day: 1, start: "17:00", end: "09:00", wantErr: ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWindow(tt.day, tt.start, tt.end, true)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.day, w.DayOfWeek)
			assert.True(t, w.Active)
			assert.Less(t, w.StartMinute(), w.EndMinute())
		})
	}
}

func TestParseClockAndFormat(t *testing.T) {
	c, err := ParseClock("16:30")
	require.NoError(t, err)
	assert.Equal(t, 16*60+30, MinuteOfDay(c))
	assert.Equal(t, "16:30", FormatClock(MinuteOfDay(c)))
	assert.Equal(t, "09:05", FormatClock(9*60+5))
}

func TestActiveForWeekday(t *testing.T) {
	afternoon := mustWindow(t, 1, "13:00", "17:00", true)
	morning := mustWindow(t, 1, "09:00", "12:00", true)
	inactive := mustWindow(t, 1, "18:00", "20:00", false)
	tuesday := mustWindow(t, 2, "09:00", "12:00", true)

	got := ActiveForWeekday([]*Window{afternoon, inactive, tuesday, morning}, 1)

	require.Len(t, got, 2)
	assert.Same(t, morning, got[0])
	assert.Same(t, afternoon, got[1])
	assert.Empty(t, ActiveForWeekday([]*Window{inactive}, 1))
}

func TestMonth(t *testing.T) {
	m, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", m.String())
	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 29}, m.Last())
	assert.Len(t, m.Days(), 29)
	assert.Equal(t, Month{Year: 2025, Month: time.January}, Month{Year: 2024, Month: time.December}.Next())

	for _, bad := range []string{"", "2024", "2024-13", "2024/02", "Feb 2024"} {
		_, err := ParseMonth(bad)
		assert.ErrorIs(t, err, ErrInvalidMonth, bad)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 0, Weekday(d))
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Midnight(d))

	for _, bad := range []string{"", "2024-02-30", "10/03/2024", "2024-3-1x"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDateRange(t *testing.T) {
	from := civil.Date{Year: 2024, Month: time.March, Day: 1}
	to := civil.Date{Year: 2024, Month: time.March, Day: 31}
	r := DateRange{From: from, To: to}

	require.NoError(t, r.Validate())
	require.NoError(t, DateRange{From: from}.Validate())
	assert.ErrorIs(t, DateRange{From: to, To: from}.Validate(), ErrInvalidDateRange)
}

func mustWindow(t *testing.T, day int, start, end string, active bool) *Window {
	t.Helper()
	w, err := NewWindow(day, start, end, active)
	require.NoError(t, err)
	return w
}
