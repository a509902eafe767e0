package payment

import (
	"context"
	"errors"
	"time"

	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
)

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrGatewayDisabled  = errors.New("payment gateway is not configured")
)

// Gateway event types the reconciler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventCheckoutExpired     = "checkout.session.expired"
	EventAsyncPaymentFailed  = "checkout.session.async_payment_failed"
	EventAsyncPaymentSuccess = "checkout.session.async_payment_succeeded"
)

// Event is a verified gateway notification about a checkout session.
type Event struct {
	ID        string
	Type      string
	SessionID string
	// BookingID comes from the checkout session metadata when present.
	BookingID string
	// PaymentStatus is the checkout session's payment_status, e.g. "paid".
	PaymentStatus string
	Created       time.Time
}

// Outcome records what the reconciler did with an event.
type Outcome string

const (
	OutcomeConfirmed          Outcome = "confirmed"
	OutcomeExpired            Outcome = "expired"
	OutcomeAlreadyApplied     Outcome = "already_applied"
	OutcomeIgnored            Outcome = "ignored"
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomeBookingNotFound    Outcome = "booking_not_found"
	OutcomePaymentAfterExpiry Outcome = "payment_after_expiry"
	OutcomeAwaitingPayment    Outcome = "awaiting_payment"

	// Payment for a booking already cancelled or marked no-show.
	OutcomePaymentForClosedBooking Outcome = "payment_for_closed_booking"
)

// ProcessedEvent is the audit row kept per gateway event id.
type ProcessedEvent struct {
	EventID    string    `db:"event_id"`
	Type       string    `db:"type"`
	SessionID  string    `db:"gateway_session_id"`
	Outcome    Outcome   `db:"outcome"`
	ReceivedAt time.Time `db:"received_at"`
}

// EventRepository stores processed gateway events for deduplication.
type EventRepository interface {
	// Record inserts e and reports false when the event id was already stored.
	Record(ctx context.Context, tx transaction.Tx, e *ProcessedEvent) (bool, error)
	SetOutcome(ctx context.Context, tx transaction.Tx, eventID string, outcome Outcome) error
}

// CheckoutRequest describes a hosted checkout for one booking.
type CheckoutRequest struct {
	BookingID     string
	Description   string
	AmountCents   int64
	CustomerEmail string
	ExpiresAt     time.Time
}

// CheckoutSession is what the gateway returns for a created checkout.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}
