package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/slot"
	redisinfra "github.com/resilienthubs/booking-engine/internal/infrastructure/redis"
	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
)

const defaultAvailabilityCacheTTL = 30 * time.Second

// AvailabilityService answers the public availability queries and manages
// the practitioner's windows and blocked dates.
type AvailabilityService struct {
	repo     availability.Repository
	bookings booking.Repository
	computer *slot.Computer
	cache    AvailabilityCache
	cacheTTL time.Duration
}

// NewAvailabilityService wires the service. cache may be nil.
func NewAvailabilityService(repo availability.Repository, br booking.Repository, computer *slot.Computer, cache AvailabilityCache, cacheTTL time.Duration) *AvailabilityService {
	if cacheTTL <= 0 {
		cacheTTL = defaultAvailabilityCacheTTL
	}
	return &AvailabilityService{repo: repo, bookings: br, computer: computer, cache: cache, cacheTTL: cacheTTL}
}

// AvailableDays returns the dates of month with at least one open slot for
// the session type.
func (s *AvailabilityService) AvailableDays(ctx context.Context, month, sessionType string) ([]civil.Date, error) {
	m, err := availability.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	st, err := booking.LookupSessionType(sessionType)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(ctx, "days", m.String(), st.Type)
	var cached []civil.Date
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	cal, err := s.loadCalendar(ctx, m.First(), m.Last())
	if err != nil {
		return nil, err
	}
	days := s.computer.AvailableDays(m, st.Duration(), cal)
	s.cacheSet(ctx, key, days)
	return days, nil
}

// Slots lists the slots of one date for the session type.
func (s *AvailabilityService) Slots(ctx context.Context, date, sessionType string) (slot.Day, error) {
	d, err := availability.ParseDate(date)
	if err != nil {
		return slot.Day{}, err
	}
	st, err := booking.LookupSessionType(sessionType)
	if err != nil {
		return slot.Day{}, err
	}

	key := s.cacheKey(ctx, "slots", d.String(), st.Type)
	var cached slot.Day
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	day, err := s.day(ctx, d, st)
	if err != nil {
		return slot.Day{}, err
	}
	s.cacheSet(ctx, key, day)
	return day, nil
}

// CheckSlot recomputes the day from the store, bypassing the cache, and
// returns booking.ErrSlotUnavailable unless start is an open slot.
func (s *AvailabilityService) CheckSlot(ctx context.Context, start time.Time, st booking.SessionTypeConfig) error {
	start = start.UTC()
	day, err := s.day(ctx, civil.DateOf(start), st)
	if err != nil {
		return err
	}
	for _, sl := range day.Slots {
		if !sl.Start.Equal(start) {
			continue
		}
		if sl.Available {
			return nil
		}
		return fmt.Errorf("%w: %s", booking.ErrSlotUnavailable, sl.Reason)
	}
	if day.Message != "" {
		return fmt.Errorf("%w: %s", booking.ErrSlotUnavailable, day.Message)
	}
	return booking.ErrSlotUnavailable
}

func (s *AvailabilityService) day(ctx context.Context, d civil.Date, st booking.SessionTypeConfig) (slot.Day, error) {
	cal, err := s.loadCalendar(ctx, d, d)
	if err != nil {
		return slot.Day{}, err
	}
	return s.computer.ForDay(d, st.Duration(), cal), nil
}

// loadCalendar reads active windows, blocked dates and binding bookings
// touching [first, last].
func (s *AvailabilityService) loadCalendar(ctx context.Context, first, last civil.Date) (slot.Calendar, error) {
	windows, err := s.repo.ListActiveWindows(ctx)
	if err != nil {
		return slot.Calendar{}, fmt.Errorf("load availability windows: %w", err)
	}
	blocked, err := s.repo.ListBlockedDates(ctx, availability.DateRange{From: first, To: last})
	if err != nil {
		return slot.Calendar{}, fmt.Errorf("load blocked dates: %w", err)
	}
	bookings, err := s.bookings.ListBinding(ctx, availability.Midnight(first), availability.Midnight(last.AddDays(1)))
	if err != nil {
		return slot.Calendar{}, fmt.Errorf("load bookings: %w", err)
	}
	return slot.Calendar{Windows: windows, Blocked: blocked, Bookings: bookings}, nil
}

// cacheKey includes the notice cutoff so entries roll over as time passes.
func (s *AvailabilityService) cacheKey(ctx context.Context, kind, period string, st booking.SessionType) string {
	if s.cache == nil {
		return ""
	}
	version, err := s.cache.Version(ctx)
	if err != nil {
		logger.Warn("availability cache version unavailable", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("v%d:%s:%s:%s:%s", version, kind, period, st, s.computer.NoticeCutoff())
}

func (s *AvailabilityService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if key == "" {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err != nil && !errors.Is(err, redisinfra.ErrCacheMiss) {
		logger.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

func (s *AvailabilityService) cacheSet(ctx context.Context, key string, value interface{}) {
	if key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		logger.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached availability answer.
func (s *AvailabilityService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpVersion(ctx); err != nil {
		logger.Warn("availability cache invalidation failed", zap.Error(err))
	}
}

// WindowInput is the editable part of an availability window.
type WindowInput struct {
	DayOfWeek int
	Start     string
	End       string
	Active    bool
}

func (s *AvailabilityService) ListWindows(ctx context.Context) ([]*availability.Window, error) {
	return s.repo.ListWindows(ctx)
}

func (s *AvailabilityService) CreateWindow(ctx context.Context, input WindowInput) (*availability.Window, error) {
	w, err := availability.NewWindow(input.DayOfWeek, input.Start, input.End, input.Active)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateWindow(ctx, w); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return w, nil
}

func (s *AvailabilityService) UpdateWindow(ctx context.Context, id string, input WindowInput) (*availability.Window, error) {
	w, err := s.repo.GetWindow(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := availability.NewWindow(input.DayOfWeek, input.Start, input.End, input.Active)
	if err != nil {
		return nil, err
	}
	w.DayOfWeek = updated.DayOfWeek
	w.Start = updated.Start
	w.End = updated.End
	w.Active = updated.Active
	w.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateWindow(ctx, w); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return w, nil
}

// SetWindowActive toggles a window without touching its times.
func (s *AvailabilityService) SetWindowActive(ctx context.Context, id string, active bool) (*availability.Window, error) {
	w, err := s.repo.GetWindow(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Active = active
	w.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateWindow(ctx, w); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return w, nil
}

func (s *AvailabilityService) DeleteWindow(ctx context.Context, id string) error {
	if err := s.repo.DeleteWindow(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

// ListBlockedDates accepts optional YYYY-MM-DD bounds.
func (s *AvailabilityService) ListBlockedDates(ctx context.Context, from, to string) ([]*availability.BlockedDate, error) {
	var r availability.DateRange
	var err error
	if from != "" {
		if r.From, err = availability.ParseDate(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if r.To, err = availability.ParseDate(to); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListBlockedDates(ctx, r)
}

func (s *AvailabilityService) BlockDate(ctx context.Context, date, reason string) (*availability.BlockedDate, error) {
	d, err := availability.ParseDate(date)
	if err != nil {
		return nil, err
	}
	b, err := availability.NewBlockedDate(d, reason)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateBlockedDate(ctx, b); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return b, nil
}

func (s *AvailabilityService) UnblockDate(ctx context.Context, id string) error {
	if err := s.repo.DeleteBlockedDate(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}
