package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/api/middleware"
	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminBookingHandler lists, transitions and exports bookings.
type AdminBookingHandler struct {
	bookings BookingServiceInterface
	exports  ExportServiceInterface
}

func NewAdminBookingHandler(bookings BookingServiceInterface, exports ExportServiceInterface) *AdminBookingHandler {
	return &AdminBookingHandler{bookings: bookings, exports: exports}
}

type UpdateNotesRequest struct {
	AdminNotes string `json:"admin_notes" validate:"max=5000"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500" example:"client asked to reschedule"`
}

// filterFromQuery reads the listing filters shared by the list and export
// endpoints. from and to are dates; to is inclusive.
func filterFromQuery(c echo.Context) (booking.Filter, error) {
	f := booking.Filter{
		Status:      booking.Status(c.QueryParam("status")),
		SessionType: booking.SessionType(c.QueryParam("type")),
		Search:      c.QueryParam("search"),
	}
	if s := c.QueryParam("from"); s != "" {
		d, err := availability.ParseDate(s)
		if err != nil {
			return f, err
		}
		from := availability.Midnight(d)
		f.From = &from
	}
	if s := c.QueryParam("to"); s != "" {
		d, err := availability.ParseDate(s)
		if err != nil {
			return f, err
		}
		to := availability.Midnight(d.AddDays(1))
		f.To = &to
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, availability.ErrInvalidDateRange
	}
	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func intQuery(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

// List godoc
// @Summary List bookings
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "status"
// @Param type query string false "session type"
// @Param search query string false "client name or email"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD, inclusive"
// @Param limit query int false "page size" default(50)
// @Param offset query int false "offset" default(0)
// @Success 200 {array} AdminBookingResponse
// @Router /admin/bookings [get]
func (h *AdminBookingHandler) List(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	bookings, err := h.bookings.ListBookings(c.Request().Context(), f)
	if err != nil {
		return err
	}
	resp := make([]AdminBookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toAdminBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a booking
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "booking id"
// @Success 200 {object} AdminBookingResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/bookings/{id} [get]
func (h *AdminBookingHandler) Get(c echo.Context) error {
	b, err := h.bookings.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAdminBookingResponse(b))
}

// Stats godoc
// @Summary Dashboard counters
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} booking.Stats
// @Router /admin/bookings/stats [get]
func (h *AdminBookingHandler) Stats(c echo.Context) error {
	stats, err := h.bookings.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// UpdateNotes godoc
// @Summary Replace the practitioner's notes
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "booking id"
// @Param request body UpdateNotesRequest true "notes"
// @Success 200 {object} AdminBookingResponse
// @Router /admin/bookings/{id}/notes [patch]
func (h *AdminBookingHandler) UpdateNotes(c echo.Context) error {
	var req UpdateNotesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.bookings.UpdateAdminNotes(c.Request().Context(), c.Param("id"), req.AdminNotes)
	if err != nil {
		return err
	}
	audit(c, "notes", b)
	return c.JSON(http.StatusOK, toAdminBookingResponse(b))
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "booking id"
// @Param request body CancelBookingRequest false "reason"
// @Success 200 {object} AdminBookingResponse
// @Failure 400 {object} api.ErrorResponse "transition not allowed"
// @Router /admin/bookings/{id}/cancel [post]
func (h *AdminBookingHandler) Cancel(c echo.Context) error {
	// The body is optional; Bind leaves req empty without one.
	var req CancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.bookings.Cancel(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	audit(c, "cancel", b)
	return c.JSON(http.StatusOK, toAdminBookingResponse(b))
}

// Complete godoc
// @Summary Mark a session as held
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "booking id"
// @Success 200 {object} AdminBookingResponse
// @Router /admin/bookings/{id}/complete [post]
func (h *AdminBookingHandler) Complete(c echo.Context) error {
	return h.transition(c, "complete", h.bookings.Complete)
}

// NoShow godoc
// @Summary Mark a client as absent
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "booking id"
// @Success 200 {object} AdminBookingResponse
// @Router /admin/bookings/{id}/no-show [post]
func (h *AdminBookingHandler) NoShow(c echo.Context) error {
	return h.transition(c, "no_show", h.bookings.MarkNoShow)
}

// Schedule godoc
// @Summary Mark a session as scheduled with the client
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "booking id"
// @Success 200 {object} AdminBookingResponse
// @Router /admin/bookings/{id}/schedule [post]
func (h *AdminBookingHandler) Schedule(c echo.Context) error {
	return h.transition(c, "schedule", h.bookings.Schedule)
}

func (h *AdminBookingHandler) transition(c echo.Context, action string, apply func(ctx context.Context, id string) (*booking.Booking, error)) error {
	b, err := apply(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	audit(c, action, b)
	return c.JSON(http.StatusOK, toAdminBookingResponse(b))
}

// audit records which admin changed a booking.
func audit(c echo.Context, action string, b *booking.Booking) {
	logger.Info("admin booking action",
		logger.BookingID(b.ID),
		zap.String("action", action),
		zap.String("status", b.Status.String()),
		zap.String("admin", middleware.AdminSubject(c)),
	)
}

// Export godoc
// @Summary Download bookings as a spreadsheet
// @Tags admin
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /admin/bookings/export.xlsx [get]
func (h *AdminBookingHandler) Export(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	buf, filename, err := h.exports.Workbook(c.Request().Context(), f)
	if err != nil {
		return err
	}
	logger.Info("bookings exported",
		zap.String("file", filename),
		zap.Int("bytes", buf.Len()),
		zap.String("admin", middleware.AdminSubject(c)),
	)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Calendar godoc
// @Summary iCalendar feed of upcoming sessions
// @Tags admin
// @Security BearerAuth
// @Produce text/calendar
// @Success 200 {string} string
// @Router /admin/bookings/calendar.ics [get]
func (h *AdminBookingHandler) Calendar(c echo.Context) error {
	feed, err := h.exports.Calendar(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}
