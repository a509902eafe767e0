package handler

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/resilienthubs/booking-engine/internal/application"
	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	"github.com/resilienthubs/booking-engine/internal/domain/slot"
)

type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) AvailableDays(ctx context.Context, month, sessionType string) ([]civil.Date, error) {
	args := m.Called(ctx, month, sessionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]civil.Date), args.Error(1)
}

func (m *MockAvailabilityService) Slots(ctx context.Context, date, sessionType string) (slot.Day, error) {
	args := m.Called(ctx, date, sessionType)
	return args.Get(0).(slot.Day), args.Error(1)
}

func (m *MockAvailabilityService) ListWindows(ctx context.Context) ([]*availability.Window, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*availability.Window), args.Error(1)
}

func (m *MockAvailabilityService) CreateWindow(ctx context.Context, input application.WindowInput) (*availability.Window, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Window), args.Error(1)
}

func (m *MockAvailabilityService) UpdateWindow(ctx context.Context, id string, input application.WindowInput) (*availability.Window, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Window), args.Error(1)
}

func (m *MockAvailabilityService) SetWindowActive(ctx context.Context, id string, active bool) (*availability.Window, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Window), args.Error(1)
}

func (m *MockAvailabilityService) DeleteWindow(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAvailabilityService) ListBlockedDates(ctx context.Context, from, to string) ([]*availability.BlockedDate, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*availability.BlockedDate), args.Error(1)
}

func (m *MockAvailabilityService) BlockDate(ctx context.Context, date, reason string) (*availability.BlockedDate, error) {
	args := m.Called(ctx, date, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.BlockedDate), args.Error(1)
}

func (m *MockAvailabilityService) UnblockDate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, input application.CreateBookingInput) (*application.CreateBookingResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CreateBookingResult), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return m.booking(m.Called(ctx, id))
}

func (m *MockBookingService) ListBookings(ctx context.Context, f booking.Filter) ([]*booking.Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingService) Stats(ctx context.Context) (*booking.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Stats), args.Error(1)
}

func (m *MockBookingService) UpdateAdminNotes(ctx context.Context, id, notes string) (*booking.Booking, error) {
	return m.booking(m.Called(ctx, id, notes))
}

func (m *MockBookingService) Cancel(ctx context.Context, id, reason string) (*booking.Booking, error) {
	return m.booking(m.Called(ctx, id, reason))
}

func (m *MockBookingService) Complete(ctx context.Context, id string) (*booking.Booking, error) {
	return m.booking(m.Called(ctx, id))
}

func (m *MockBookingService) MarkNoShow(ctx context.Context, id string) (*booking.Booking, error) {
	return m.booking(m.Called(ctx, id))
}

func (m *MockBookingService) Schedule(ctx context.Context, id string) (*booking.Booking, error) {
	return m.booking(m.Called(ctx, id))
}

func (m *MockBookingService) booking(args mock.Arguments) (*booking.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Handle(ctx context.Context, payload []byte, signature string) (payment.Outcome, error) {
	args := m.Called(ctx, payload, signature)
	return args.Get(0).(payment.Outcome), args.Error(1)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Workbook(ctx context.Context, f booking.Filter) (*bytes.Buffer, string, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*bytes.Buffer), args.String(1), args.Error(2)
}

func (m *MockExportService) Calendar(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type testServer struct {
	echo         *echo.Echo
	availability *MockAvailabilityService
	bookings     *MockBookingService
	webhooks     *MockWebhookService
	exports      *MockExportService
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// newTestServer mounts every route on mocked services without auth.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithAdmin(t, passThrough)
}

// newTestServerWithAdmin guards the admin routes with admin.
func newTestServerWithAdmin(t *testing.T, admin echo.MiddlewareFunc) *testServer {
	t.Helper()
	s := &testServer{
		echo:         NewTestEcho(),
		availability: new(MockAvailabilityService),
		bookings:     new(MockBookingService),
		webhooks:     new(MockWebhookService),
		exports:      new(MockExportService),
	}
	RegisterRoutes(s.echo, Handlers{
		Health:            NewHealthHandler(nil),
		Availability:      NewAvailabilityHandler(s.availability),
		Booking:           NewBookingHandler(s.bookings),
		Webhook:           NewWebhookHandler(s.webhooks),
		AdminAvailability: NewAdminAvailabilityHandler(s.availability),
		AdminBooking:      NewAdminBookingHandler(s.bookings, s.exports),
	}, passThrough, admin)
	t.Cleanup(func() {
		s.availability.AssertExpectations(t)
		s.bookings.AssertExpectations(t)
		s.webhooks.AssertExpectations(t)
		s.exports.AssertExpectations(t)
	})
	return s
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}
