package booking

import (
	"context"
	"time"

	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
)

// Filter narrows an administrative booking listing. Zero fields do not filter.
type Filter struct {
	Status      Status
	SessionType SessionType
	// Search matches client name or email, case-insensitively.
	Search string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Stats summarises bookings for the admin dashboard.
type Stats struct {
	TotalThisMonth    int   `json:"total_this_month" db:"total_this_month"`
	Confirmed         int   `json:"confirmed" db:"confirmed"`
	PendingPayment    int   `json:"pending_payment" db:"pending_payment"`
	TotalRevenueCents int64 `json:"total_revenue_cents" db:"total_revenue_cents"`
}

type Repository interface {
	// Create inserts b. A binding booking that collides with another binding
	// booking at the same start returns ErrSlotUnavailable.
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByGatewaySessionID returns ErrBookingNotFound when no booking carries
	// the checkout session id.
	GetByGatewaySessionID(ctx context.Context, sessionID string) (*Booking, error)

	// ListBinding returns binding bookings whose interval intersects [from, to).
	ListBinding(ctx context.Context, from, to time.Time) ([]*Booking, error)

	List(ctx context.Context, f Filter) ([]*Booking, error)

	// Stats counts bookings whose session starts in [monthStart, monthEnd),
	// counts confirmed and pending bookings overall, and sums the price of
	// confirmed and completed bookings.
	Stats(ctx context.Context, monthStart, monthEnd time.Time) (*Stats, error)

	// UpdateStatus persists b's status fields only when the stored status is
	// still expected. Otherwise it returns ErrConcurrentUpdate.
	UpdateStatus(ctx context.Context, tx transaction.Tx, b *Booking, expected Status) error

	// UpdateAdminNotes replaces the internal notes kept by the practitioner.
	UpdateAdminNotes(ctx context.Context, id, notes string) error

	// ListExpiredPending returns pending_payment bookings whose payment
	// deadline is before the given instant.
	ListExpiredPending(ctx context.Context, before time.Time) ([]*Booking, error)
}
