package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
	"github.com/resilienthubs/booking-engine/internal/pkg/metrics"
)

// WebhookService reconciles verified gateway events with the booking ledger.
// Every verified event is recorded by id in the same transaction as its
// effect, so a redelivery is acknowledged without being applied again.
type WebhookService struct {
	txm          transaction.Manager
	gateway      PaymentGateway
	bookings     booking.Repository
	events       payment.EventRepository
	availability *AvailabilityService
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewWebhookService(txm transaction.Manager, gw PaymentGateway, br booking.Repository, er payment.EventRepository, as *AvailabilityService, m *metrics.Metrics) *WebhookService {
	if m == nil {
		m = metrics.Nop()
	}
	return &WebhookService{txm: txm, gateway: gw, bookings: br, events: er, availability: as, metrics: m, now: time.Now}
}

// Handle verifies and applies one webhook delivery. It returns
// payment.ErrInvalidSignature or payment.ErrMalformedPayload for deliveries
// that must be rejected; any other error means the event was not recorded
// and the gateway should retry.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (payment.Outcome, error) {
	ev, err := s.gateway.ParseWebhookEvent(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			logger.Warn("rejected webhook with invalid signature", zap.Error(err))
		}
		return "", err
	}

	var (
		outcome payment.Outcome
		applied *booking.Booking
		from    booking.Status
	)
	err = transaction.WithinTx(ctx, s.txm, func(tx transaction.Tx) error {
		outcome, applied, from = "", nil, ""

		fresh, err := s.events.Record(ctx, tx, &payment.ProcessedEvent{
			EventID:    ev.ID,
			Type:       ev.Type,
			SessionID:  ev.SessionID,
			ReceivedAt: s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("record webhook event: %w", err)
		}
		if !fresh {
			outcome = payment.OutcomeDuplicate
			return nil
		}

		outcome, applied, from, err = s.apply(ctx, tx, ev)
		if err != nil {
			return err
		}
		return s.events.SetOutcome(ctx, tx, ev.ID, outcome)
	})
	if err != nil {
		s.metrics.WebhookEventsTotal.WithLabelValues(ev.Type, "error").Inc()
		logger.Error("webhook processing failed", logger.EventID(ev.ID), logger.EventType(ev.Type), zap.Error(err))
		return "", err
	}

	s.metrics.WebhookEventsTotal.WithLabelValues(ev.Type, string(outcome)).Inc()
	if applied != nil {
		s.metrics.BookingTransitionsTotal.WithLabelValues(from.String(), applied.Status.String(), TriggerWebhook).Inc()
		if s.availability != nil {
			s.availability.Invalidate(ctx)
		}
	}
	s.log(ev, outcome)
	return outcome, nil
}

// apply dispatches ev by type. It returns the booking it changed, if any,
// with the status it left.
func (s *WebhookService) apply(ctx context.Context, tx transaction.Tx, ev *payment.Event) (payment.Outcome, *booking.Booking, booking.Status, error) {
	var target booking.Status
	switch ev.Type {
	case payment.EventCheckoutCompleted:
		// Delayed payment methods complete the checkout before the money moves.
		if ev.PaymentStatus == "unpaid" {
			return payment.OutcomeAwaitingPayment, nil, "", nil
		}
		target = booking.StatusConfirmed
	case payment.EventAsyncPaymentSuccess:
		target = booking.StatusConfirmed
	case payment.EventCheckoutExpired, payment.EventAsyncPaymentFailed:
		target = booking.StatusExpired
	default:
		return payment.OutcomeIgnored, nil, "", nil
	}

	b, err := s.bookings.GetByGatewaySessionID(ctx, ev.SessionID)
	if errors.Is(err, booking.ErrBookingNotFound) {
		return payment.OutcomeBookingNotFound, nil, "", nil
	}
	if err != nil {
		return "", nil, "", fmt.Errorf("find booking for session %s: %w", ev.SessionID, err)
	}

	from := b.Status
	// Money taken for a closed booking needs a refund, not a transition.
	if target == booking.StatusConfirmed {
		switch from {
		case booking.StatusExpired:
			return payment.OutcomePaymentAfterExpiry, nil, "", nil
		case booking.StatusCancelled, booking.StatusNoShow:
			return payment.OutcomePaymentForClosedBooking, nil, "", nil
		}
	}

	changed, err := b.Transition(target, s.now(), "")
	if errors.Is(err, booking.ErrInvalidTransition) {
		// e.g. an expiry notice for a booking an admin already scheduled.
		return payment.OutcomeIgnored, nil, "", nil
	}
	if err != nil {
		return "", nil, "", err
	}
	if !changed {
		return payment.OutcomeAlreadyApplied, nil, "", nil
	}

	if err := s.bookings.UpdateStatus(ctx, tx, b, from); err != nil {
		return "", nil, "", fmt.Errorf("update booking %s: %w", b.ID, err)
	}
	if target == booking.StatusConfirmed {
		return payment.OutcomeConfirmed, b, from, nil
	}
	return payment.OutcomeExpired, b, from, nil
}

func (s *WebhookService) log(ev *payment.Event, outcome payment.Outcome) {
	fields := []zap.Field{
		logger.EventID(ev.ID),
		logger.EventType(ev.Type),
		logger.SessionID(ev.SessionID),
		logger.BookingID(ev.BookingID),
		zap.String("outcome", string(outcome)),
	}
	switch outcome {
	case payment.OutcomeBookingNotFound, payment.OutcomePaymentAfterExpiry, payment.OutcomePaymentForClosedBooking:
		logger.Warn("webhook event needs manual reconciliation", fields...)
	case payment.OutcomeDuplicate, payment.OutcomeAlreadyApplied, payment.OutcomeIgnored:
		logger.Debug("webhook event acknowledged without change", fields...)
	default:
		logger.Info("webhook event applied", fields...)
	}
}
