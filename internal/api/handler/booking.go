package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/resilienthubs/booking-engine/internal/application"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
)

// BookingHandler serves the public booking creation path.
type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	SessionType string `json:"session_type" validate:"required" example:"one_on_one"`
	Date        string `json:"date" validate:"required" example:"2024-03-04"`
	Time        string `json:"time" validate:"required" example:"10:00"`
	ClientName  string `json:"client_name" validate:"required,max=200" example:"Ada Lovelace"`
	ClientEmail string `json:"client_email" validate:"required,email,max=320" example:"ada@example.com"`
	Notes       string `json:"notes" validate:"max=2000"`
}

type BookingResponse struct {
	ID                 string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SessionType        string     `json:"session_type" example:"one_on_one"`
	SessionDate        time.Time  `json:"session_date"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	DurationMinutes    int        `json:"duration_minutes" example:"60"`
	Status             string     `json:"status" example:"pending_payment"`
	PaymentExpiresAt   *time.Time `json:"payment_expires_at,omitempty"`
	ClientName         string     `json:"client_name"`
	ClientEmail        string     `json:"client_email"`
	PriceCents         int64      `json:"price_cents" example:"8000"`
	Notes              string     `json:"notes,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// AdminBookingResponse adds the fields only the practitioner sees.
type AdminBookingResponse struct {
	BookingResponse
	GatewaySessionID string    `json:"gateway_session_id,omitempty"`
	AdminNotes       string    `json:"admin_notes,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateBookingResponse struct {
	Booking     BookingResponse `json:"booking"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID: b.ID, SessionType: string(b.SessionType), SessionDate: b.SessionDate,
		EndTime: b.EndTime, DurationMinutes: b.DurationMinutes, Status: string(b.Status),
		PaymentExpiresAt: b.PaymentExpiresAt, ClientName: b.ClientName, ClientEmail: b.ClientEmail,
		PriceCents: b.PriceCents, Notes: b.Notes, CancellationReason: b.CancellationReason,
		CreatedAt: b.CreatedAt,
	}
}

func toAdminBookingResponse(b *booking.Booking) AdminBookingResponse {
	return AdminBookingResponse{
		BookingResponse:  toBookingResponse(b),
		GatewaySessionID: b.GatewaySessionID,
		AdminNotes:       b.AdminNotes,
		UpdatedAt:        b.UpdatedAt,
	}
}

// Create godoc
// @Summary Book a session
// @Description Holds the slot and returns the checkout page for paid sessions.
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "booking"
// @Success 201 {object} CreateBookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "slot no longer available"
// @Failure 503 {object} api.ErrorResponse "payments not configured"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	result, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		SessionType: req.SessionType, Date: req.Date, Time: req.Time,
		ClientName: req.ClientName, ClientEmail: req.ClientEmail, Notes: req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreateBookingResponse{
		Booking:     toBookingResponse(result.Booking),
		CheckoutURL: result.CheckoutURL,
	})
}
