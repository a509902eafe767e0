package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
	redisinfra "github.com/resilienthubs/booking-engine/internal/infrastructure/redis"
	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
	"github.com/resilienthubs/booking-engine/internal/pkg/metrics"
)

const (
	defaultPaymentWindow = 30 * time.Minute
	transitionAttempts   = 3
)

// Transition triggers, used as the metric label.
const (
	TriggerWebhook = "webhook"
	TriggerSweeper = "sweeper"
	TriggerAdmin   = "admin"
)

type BookingService struct {
	txm           transaction.Manager
	bookings      booking.Repository
	availability  *AvailabilityService
	gateway       PaymentGateway
	locker        SlotLocker
	metrics       *metrics.Metrics
	paymentWindow time.Duration
	now           func() time.Time
}

// NewBookingService wires the service. locker may be nil, in which case the
// database uniqueness constraint is the only guard against double booking.
// as is needed by CreateBooking; without it transitions skip cache
// invalidation.
func NewBookingService(txm transaction.Manager, br booking.Repository, as *AvailabilityService, gw PaymentGateway, locker SlotLocker, m *metrics.Metrics, paymentWindow time.Duration) *BookingService {
	if m == nil {
		m = metrics.Nop()
	}
	if paymentWindow <= 0 {
		paymentWindow = defaultPaymentWindow
	}
	return &BookingService{
		txm:           txm,
		bookings:      br,
		availability:  as,
		gateway:       gw,
		locker:        locker,
		metrics:       m,
		paymentWindow: paymentWindow,
		now:           time.Now,
	}
}

type CreateBookingInput struct {
	SessionType string
	Date        string
	Time        string
	ClientName  string
	ClientEmail string
	Notes       string
}

// CreateBookingResult carries the stored booking and, for paid sessions, the
// hosted checkout page the client must visit.
type CreateBookingResult struct {
	Booking     *booking.Booking
	CheckoutURL string
}

// CreateBooking re-checks the requested slot under a per-day lock, opens a
// checkout for paid sessions and stores the booking.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	st, err := booking.LookupSessionType(input.SessionType)
	if err != nil {
		return nil, err
	}
	date, err := availability.ParseDate(input.Date)
	if err != nil {
		return nil, err
	}
	clock, err := availability.ParseClock(input.Time)
	if err != nil {
		return nil, err
	}
	start := availability.Midnight(date).Add(time.Duration(availability.MinuteOfDay(clock)) * time.Minute)

	b := booking.NewBooking(st, start, input.ClientName, input.ClientEmail, strings.TrimSpace(input.Notes), s.now(), s.paymentWindow)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if s.availability == nil {
		return nil, errors.New("booking creation needs an availability service")
	}

	// Bookings of different lengths overlap without sharing a start, so the
	// whole day is serialised rather than the single start.
	var hold redisinfra.SlotHold
	if s.locker != nil {
		hold, err = s.locker.LockSlot(ctx, availability.Midnight(date))
		if err != nil {
			if errors.Is(err, redisinfra.ErrLockNotAcquired) {
				s.metrics.BookingsCreatedTotal.WithLabelValues("lock_failed").Inc()
				return nil, fmt.Errorf("%w: another booking for this day is in progress", booking.ErrSlotUnavailable)
			}
			s.metrics.BookingsCreatedTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("lock booking day: %w", err)
		}
		defer func() {
			if err := hold.Release(context.Background()); err != nil {
				logger.Warn("failed to release booking lock", logger.BookingID(b.ID), zap.Error(err))
			}
		}()
	}

	if err := s.availability.CheckSlot(ctx, start, st); err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			s.metrics.BookingsCreatedTotal.WithLabelValues("slot_unavailable").Inc()
		}
		return nil, err
	}

	result := &CreateBookingResult{Booking: b}
	if !st.IsFree() {
		if s.gateway == nil {
			return nil, payment.ErrGatewayDisabled
		}
		// The checkout call is a network round trip; restart the lock TTL
		// so the day stays held until the insert.
		if hold != nil {
			if err := hold.Extend(ctx); err != nil {
				if errors.Is(err, redisinfra.ErrLockNotOwned) {
					s.metrics.BookingsCreatedTotal.WithLabelValues("lock_failed").Inc()
					return nil, fmt.Errorf("%w: booking lock lapsed", booking.ErrSlotUnavailable)
				}
				s.metrics.BookingsCreatedTotal.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("extend booking lock: %w", err)
			}
		}
		checkout, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
			BookingID:     b.ID,
			Description:   fmt.Sprintf("%s, %s %s UTC", st.Name, date, availability.FormatClock(availability.MinuteOfDay(clock))),
			AmountCents:   st.PriceCents,
			CustomerEmail: b.ClientEmail,
			ExpiresAt:     *b.PaymentExpiresAt,
		})
		if err != nil {
			s.metrics.BookingsCreatedTotal.WithLabelValues("gateway_error").Inc()
			return nil, err
		}
		b.GatewaySessionID = checkout.ID
		result.CheckoutURL = checkout.URL
	}

	err = transaction.WithinTx(ctx, s.txm, func(tx transaction.Tx) error {
		return s.bookings.Create(ctx, tx, b)
	})
	if err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			s.metrics.BookingsCreatedTotal.WithLabelValues("slot_unavailable").Inc()
		} else {
			s.metrics.BookingsCreatedTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	s.metrics.BookingsCreatedTotal.WithLabelValues("created").Inc()
	s.invalidate(ctx)
	logger.Info("booking created",
		logger.BookingID(b.ID),
		logger.SessionID(b.GatewaySessionID),
		zap.String("session_type", string(b.SessionType)),
		zap.Time("session_date", b.SessionDate),
		zap.String("status", b.Status.String()),
	)
	return result, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, f booking.Filter) ([]*booking.Booking, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Status != "" {
		if _, err := booking.ParseStatus(string(f.Status)); err != nil {
			return nil, err
		}
	}
	if f.SessionType != "" {
		if _, err := booking.LookupSessionType(string(f.SessionType)); err != nil {
			return nil, err
		}
	}
	return s.bookings.List(ctx, f)
}

// Stats reports the dashboard counters for the current UTC month.
func (s *BookingService) Stats(ctx context.Context) (*booking.Stats, error) {
	m := availability.MonthOf(civilToday(s.now()))
	return s.bookings.Stats(ctx, availability.Midnight(m.First()), availability.Midnight(m.Next().First()))
}

func (s *BookingService) UpdateAdminNotes(ctx context.Context, id, notes string) (*booking.Booking, error) {
	if err := s.bookings.UpdateAdminNotes(ctx, id, strings.TrimSpace(notes)); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) Cancel(ctx context.Context, id, reason string) (*booking.Booking, error) {
	return s.Transition(ctx, id, booking.StatusCancelled, reason, TriggerAdmin)
}

func (s *BookingService) Complete(ctx context.Context, id string) (*booking.Booking, error) {
	return s.Transition(ctx, id, booking.StatusCompleted, "", TriggerAdmin)
}

func (s *BookingService) MarkNoShow(ctx context.Context, id string) (*booking.Booking, error) {
	return s.Transition(ctx, id, booking.StatusNoShow, "", TriggerAdmin)
}

func (s *BookingService) Schedule(ctx context.Context, id string) (*booking.Booking, error) {
	return s.Transition(ctx, id, booking.StatusScheduled, "", TriggerAdmin)
}

// Transition applies target to the stored booking with compare-and-set,
// reloading and retrying when a concurrent writer got there first. A no-op
// transition returns the booking unchanged.
func (s *BookingService) Transition(ctx context.Context, id string, target booking.Status, reason, trigger string) (*booking.Booking, error) {
	for attempt := 0; attempt < transitionAttempts; attempt++ {
		b, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		from := b.Status
		changed, err := b.Transition(target, s.now(), reason)
		if err != nil {
			return nil, err
		}
		if !changed {
			logger.Debug("booking transition is a no-op",
				logger.BookingID(b.ID), zap.String("from", from.String()), zap.String("to", target.String()))
			return b, nil
		}

		err = s.bookings.UpdateStatus(ctx, nil, b, from)
		if errors.Is(err, booking.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.recordTransition(ctx, b, from, trigger)
		return b, nil
	}
	return nil, booking.ErrConcurrentUpdate
}

// ExpireOverdue expires pending bookings whose payment deadline plus grace
// has passed. It returns how many bookings it expired.
func (s *BookingService) ExpireOverdue(ctx context.Context, grace time.Duration) (int, error) {
	now := s.now()
	overdue, err := s.bookings.ListExpiredPending(ctx, now.Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("list overdue bookings: %w", err)
	}

	expired := 0
	for _, b := range overdue {
		if !b.PaymentOverdue(now, grace) {
			continue
		}
		from := b.Status
		changed, err := b.Transition(booking.StatusExpired, now, "")
		if err != nil || !changed {
			continue
		}
		if err := s.bookings.UpdateStatus(ctx, nil, b, from); err != nil {
			// A webhook settled it meanwhile.
			if errors.Is(err, booking.ErrConcurrentUpdate) {
				continue
			}
			logger.Error("failed to expire booking", logger.BookingID(b.ID), zap.Error(err))
			continue
		}
		s.recordTransition(ctx, b, from, TriggerSweeper)
		expired++
	}
	return expired, nil
}

func (s *BookingService) recordTransition(ctx context.Context, b *booking.Booking, from booking.Status, trigger string) {
	s.metrics.BookingTransitionsTotal.WithLabelValues(from.String(), b.Status.String(), trigger).Inc()
	if from.IsBinding() != b.Status.IsBinding() {
		s.invalidate(ctx)
	}
	logger.Info("booking transitioned",
		logger.BookingID(b.ID),
		zap.String("from", from.String()),
		zap.String("to", b.Status.String()),
		zap.String("trigger", trigger),
	)
}

func (s *BookingService) invalidate(ctx context.Context) {
	if s.availability != nil {
		s.availability.Invalidate(ctx)
	}
}

func civilToday(now time.Time) civil.Date {
	return civil.DateOf(now.UTC())
}
