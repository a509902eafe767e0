package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Booking is a single client session. Bookings are never deleted; they
// leave the calendar by moving to a non-binding status.
type Booking struct {
	ID                 string
	SessionType        SessionType
	SessionDate        time.Time
	DurationMinutes    int
	EndTime            *time.Time
	Status             Status
	GatewaySessionID   string
	PaymentExpiresAt   *time.Time
	ClientName         string
	ClientEmail        string
	PriceCents         int64
	Notes              string
	AdminNotes         string
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewBooking creates a booking for st starting at start. Paid sessions start
// in pending_payment with a payment deadline; free ones are confirmed at once.
func NewBooking(st SessionTypeConfig, start time.Time, clientName, clientEmail, notes string, now time.Time, paymentWindow time.Duration) *Booking {
	start = start.UTC()
	end := start.Add(st.Duration())
	now = now.UTC()
	b := &Booking{
		ID:              uuid.New().String(),
		SessionType:     st.Type,
		SessionDate:     start,
		DurationMinutes: st.DurationMinutes,
		EndTime:         &end,
		Status:          StatusConfirmed,
		ClientName:      strings.TrimSpace(clientName),
		ClientEmail:     strings.TrimSpace(clientEmail),
		PriceCents:      st.PriceCents,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !st.IsFree() {
		expires := now.Add(paymentWindow)
		b.Status = StatusPendingPayment
		b.PaymentExpiresAt = &expires
	}
	return b
}

func (b *Booking) Validate() error {
	if b.ClientName == "" {
		return ErrClientNameRequired
	}
	if b.ClientEmail == "" {
		return ErrClientEmailRequired
	}
	if b.SessionDate.IsZero() {
		return ErrSessionDateRequired
	}
	if _, err := LookupSessionType(string(b.SessionType)); err != nil {
		return err
	}
	return nil
}

// End returns the stored end time, or SessionDate + DurationMinutes when none
// was stored.
func (b *Booking) End() time.Time {
	if b.EndTime != nil {
		return b.EndTime.UTC()
	}
	return b.SessionDate.UTC().Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps reports whether [start, end) intersects the booking's interval.
// Intervals that only touch do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.End()) && end.After(b.SessionDate)
}

// Transition moves the booking to target. It returns changed=false without
// error when the booking is already in target or in a terminal state, so a
// redelivered event is harmless. A move missing from the transition table
// returns ErrInvalidTransition.
func (b *Booking) Transition(target Status, now time.Time, reason string) (bool, error) {
	if _, err := ParseStatus(string(target)); err != nil {
		return false, err
	}
	if b.Status == target || b.Status.IsTerminal() {
		return false, nil
	}
	if !CanTransition(b.Status, target) {
		return false, ErrInvalidTransition
	}

	switch target {
	case StatusConfirmed:
		b.PaymentExpiresAt = nil
	case StatusCancelled:
		b.CancellationReason = strings.TrimSpace(reason)
	}
	b.Status = target
	b.UpdatedAt = now.UTC()
	return true, nil
}

// PaymentOverdue reports whether a pending booking's deadline plus grace has
// passed at now.
func (b *Booking) PaymentOverdue(now time.Time, grace time.Duration) bool {
	if b.Status != StatusPendingPayment || b.PaymentExpiresAt == nil {
		return false
	}
	return now.After(b.PaymentExpiresAt.Add(grace))
}
