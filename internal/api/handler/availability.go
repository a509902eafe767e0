package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/slot"
)

// AvailabilityHandler serves the public availability queries.
type AvailabilityHandler struct {
	service AvailabilityServiceInterface
}

func NewAvailabilityHandler(s AvailabilityServiceInterface) *AvailabilityHandler {
	return &AvailabilityHandler{service: s}
}

type AvailableDaysResponse struct {
	AvailableDays []string `json:"available_days" example:"2024-03-04,2024-03-11"`
}

type SessionTypesResponse struct {
	SessionTypes []booking.SessionTypeConfig `json:"session_types"`
}

type SlotsResponse struct {
	Date    string      `json:"date" example:"2024-03-04"`
	Slots   []slot.Slot `json:"slots"`
	Message string      `json:"message,omitempty"`
}

// Days godoc
// @Summary List bookable days of a month
// @Tags availability
// @Produce json
// @Param month query string true "YYYY-MM"
// @Param type query string true "session type"
// @Success 200 {object} AvailableDaysResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /availability/days [get]
func (h *AvailabilityHandler) Days(c echo.Context) error {
	month, sessionType := c.QueryParam("month"), c.QueryParam("type")
	if month == "" || sessionType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "month and type are required")
	}
	days, err := h.service.AvailableDays(c.Request().Context(), month, sessionType)
	if err != nil {
		return err
	}
	resp := AvailableDaysResponse{AvailableDays: make([]string, len(days))}
	for i, d := range days {
		resp.AvailableDays[i] = d.String()
	}
	return c.JSON(http.StatusOK, resp)
}

// Slots godoc
// @Summary List candidate start times of a day
// @Tags availability
// @Produce json
// @Param date query string true "YYYY-MM-DD"
// @Param type query string true "session type"
// @Success 200 {object} SlotsResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /availability/slots [get]
func (h *AvailabilityHandler) Slots(c echo.Context) error {
	date, sessionType := c.QueryParam("date"), c.QueryParam("type")
	if date == "" || sessionType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date and type are required")
	}
	day, err := h.service.Slots(c.Request().Context(), date, sessionType)
	if err != nil {
		return err
	}
	resp := SlotsResponse{Date: day.Date.String(), Slots: day.Slots, Message: day.Message}
	if resp.Slots == nil {
		resp.Slots = []slot.Slot{}
	}
	return c.JSON(http.StatusOK, resp)
}

// SessionTypes godoc
// @Summary List bookable session types with duration and price
// @Tags availability
// @Produce json
// @Success 200 {object} SessionTypesResponse
// @Router /session-types [get]
func (h *AvailabilityHandler) SessionTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, SessionTypesResponse{SessionTypes: booking.SessionTypes()})
}
