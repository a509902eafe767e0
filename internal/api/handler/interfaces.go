package handler

import (
	"bytes"
	"context"

	"cloud.google.com/go/civil"

	"github.com/resilienthubs/booking-engine/internal/application"
	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	"github.com/resilienthubs/booking-engine/internal/domain/slot"
)

// AvailabilityServiceInterface is the availability query and admin surface.
type AvailabilityServiceInterface interface {
	AvailableDays(ctx context.Context, month, sessionType string) ([]civil.Date, error)
	Slots(ctx context.Context, date, sessionType string) (slot.Day, error)

	ListWindows(ctx context.Context) ([]*availability.Window, error)
	CreateWindow(ctx context.Context, input application.WindowInput) (*availability.Window, error)
	UpdateWindow(ctx context.Context, id string, input application.WindowInput) (*availability.Window, error)
	SetWindowActive(ctx context.Context, id string, active bool) (*availability.Window, error)
	DeleteWindow(ctx context.Context, id string) error
	ListBlockedDates(ctx context.Context, from, to string) ([]*availability.BlockedDate, error)
	BlockDate(ctx context.Context, date, reason string) (*availability.BlockedDate, error)
	UnblockDate(ctx context.Context, id string) error
}

// BookingServiceInterface is the booking creation and admin surface.
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*application.CreateBookingResult, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	ListBookings(ctx context.Context, f booking.Filter) ([]*booking.Booking, error)
	Stats(ctx context.Context) (*booking.Stats, error)
	UpdateAdminNotes(ctx context.Context, id, notes string) (*booking.Booking, error)
	Cancel(ctx context.Context, id, reason string) (*booking.Booking, error)
	Complete(ctx context.Context, id string) (*booking.Booking, error)
	MarkNoShow(ctx context.Context, id string) (*booking.Booking, error)
	Schedule(ctx context.Context, id string) (*booking.Booking, error)
}

type WebhookServiceInterface interface {
	Handle(ctx context.Context, payload []byte, signature string) (payment.Outcome, error)
}

type ExportServiceInterface interface {
	Workbook(ctx context.Context, f booking.Filter) (*bytes.Buffer, string, error)
	Calendar(ctx context.Context) (string, error)
}
