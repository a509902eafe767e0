package handler

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler the service exposes.
type Handlers struct {
	Health            *HealthHandler
	Availability      *AvailabilityHandler
	Booking           *BookingHandler
	Webhook           *WebhookHandler
	AdminAvailability *AdminAvailabilityHandler
	AdminBooking      *AdminBookingHandler
}

// RegisterRoutes mounts the API under /api/v1. public guards the client
// facing routes, admin guards /api/v1/admin. The webhook is only verified
// by its signature.
func RegisterRoutes(e *echo.Echo, h Handlers, public, admin echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	v1.POST("/webhooks/stripe", h.Webhook.Stripe)

	pub := v1.Group("", public)
	pub.GET("/session-types", h.Availability.SessionTypes)
	pub.GET("/availability/days", h.Availability.Days)
	pub.GET("/availability/slots", h.Availability.Slots)
	pub.POST("/bookings", h.Booking.Create)

	adm := v1.Group("/admin", admin)
	adm.GET("/availability/windows", h.AdminAvailability.ListWindows)
	adm.POST("/availability/windows", h.AdminAvailability.CreateWindow)
	adm.PUT("/availability/windows/:id", h.AdminAvailability.UpdateWindow)
	adm.PATCH("/availability/windows/:id", h.AdminAvailability.ToggleWindow)
	adm.DELETE("/availability/windows/:id", h.AdminAvailability.DeleteWindow)
	adm.GET("/availability/blocked-dates", h.AdminAvailability.ListBlockedDates)
	adm.POST("/availability/blocked-dates", h.AdminAvailability.BlockDate)
	adm.DELETE("/availability/blocked-dates/:id", h.AdminAvailability.UnblockDate)

	adm.GET("/bookings", h.AdminBooking.List)
	adm.GET("/bookings/stats", h.AdminBooking.Stats)
	adm.GET("/bookings/export.xlsx", h.AdminBooking.Export)
	adm.GET("/bookings/calendar.ics", h.AdminBooking.Calendar)
	adm.GET("/bookings/:id", h.AdminBooking.Get)
	adm.PATCH("/bookings/:id/notes", h.AdminBooking.UpdateNotes)
	adm.POST("/bookings/:id/cancel", h.AdminBooking.Cancel)
	adm.POST("/bookings/:id/complete", h.AdminBooking.Complete)
	adm.POST("/bookings/:id/no-show", h.AdminBooking.NoShow)
	adm.POST("/bookings/:id/schedule", h.AdminBooking.Schedule)
}
