package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/resilienthubs/booking-engine/internal/application"
	"github.com/resilienthubs/booking-engine/internal/domain/availability"
)

// AdminAvailabilityHandler manages weekly windows and blocked dates.
type AdminAvailabilityHandler struct {
	service AvailabilityServiceInterface
}

func NewAdminAvailabilityHandler(s AvailabilityServiceInterface) *AdminAvailabilityHandler {
	return &AdminAvailabilityHandler{service: s}
}

type WindowRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6" example:"1"`
	StartTime string `json:"start_time" validate:"required" example:"09:00"`
	EndTime   string `json:"end_time" validate:"required" example:"17:00"`
	Active    *bool  `json:"active"`
}

func (r WindowRequest) input() application.WindowInput {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return application.WindowInput{DayOfWeek: *r.DayOfWeek, Start: r.StartTime, End: r.EndTime, Active: active}
}

type ToggleWindowRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type BlockDateRequest struct {
	Date   string `json:"date" validate:"required" example:"2024-12-25"`
	Reason string `json:"reason" validate:"max=500" example:"holiday"`
}

type WindowResponse struct {
	ID        string    `json:"id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BlockedDateResponse struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toWindowResponse(w *availability.Window) WindowResponse {
	return WindowResponse{
		ID: w.ID, DayOfWeek: w.DayOfWeek,
		StartTime: availability.FormatClock(w.StartMinute()),
		EndTime:   availability.FormatClock(w.EndMinute()),
		Active:    w.Active, UpdatedAt: w.UpdatedAt,
	}
}

func toBlockedDateResponse(b *availability.BlockedDate) BlockedDateResponse {
	return BlockedDateResponse{ID: b.ID, Date: b.Date.String(), Reason: b.Reason, CreatedAt: b.CreatedAt}
}

// ListWindows godoc
// @Summary List availability windows
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} WindowResponse
// @Router /admin/availability/windows [get]
func (h *AdminAvailabilityHandler) ListWindows(c echo.Context) error {
	windows, err := h.service.ListWindows(c.Request().Context())
	if err != nil {
		return err
	}
	resp := make([]WindowResponse, len(windows))
	for i, w := range windows {
		resp[i] = toWindowResponse(w)
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateWindow godoc
// @Summary Add a weekly availability window
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body WindowRequest true "window"
// @Success 201 {object} WindowResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /admin/availability/windows [post]
func (h *AdminAvailabilityHandler) CreateWindow(c echo.Context) error {
	var req WindowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	w, err := h.service.CreateWindow(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toWindowResponse(w))
}

// UpdateWindow godoc
// @Summary Replace a window
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "window id"
// @Param request body WindowRequest true "window"
// @Success 200 {object} WindowResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/availability/windows/{id} [put]
func (h *AdminAvailabilityHandler) UpdateWindow(c echo.Context) error {
	var req WindowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	w, err := h.service.UpdateWindow(c.Request().Context(), c.Param("id"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWindowResponse(w))
}

// ToggleWindow godoc
// @Summary Activate or deactivate a window
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "window id"
// @Param request body ToggleWindowRequest true "state"
// @Success 200 {object} WindowResponse
// @Router /admin/availability/windows/{id} [patch]
func (h *AdminAvailabilityHandler) ToggleWindow(c echo.Context) error {
	var req ToggleWindowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	w, err := h.service.SetWindowActive(c.Request().Context(), c.Param("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWindowResponse(w))
}

// DeleteWindow godoc
// @Summary Delete a window
// @Tags admin
// @Security BearerAuth
// @Param id path string true "window id"
// @Success 204
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/availability/windows/{id} [delete]
func (h *AdminAvailabilityHandler) DeleteWindow(c echo.Context) error {
	if err := h.service.DeleteWindow(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBlockedDates godoc
// @Summary List blocked dates
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {array} BlockedDateResponse
// @Router /admin/availability/blocked-dates [get]
func (h *AdminAvailabilityHandler) ListBlockedDates(c echo.Context) error {
	dates, err := h.service.ListBlockedDates(c.Request().Context(), c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}
	resp := make([]BlockedDateResponse, len(dates))
	for i, d := range dates {
		resp[i] = toBlockedDateResponse(d)
	}
	return c.JSON(http.StatusOK, resp)
}

// BlockDate godoc
// @Summary Block a whole date
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body BlockDateRequest true "date"
// @Success 201 {object} BlockedDateResponse
// @Failure 409 {object} api.ErrorResponse "already blocked"
// @Router /admin/availability/blocked-dates [post]
func (h *AdminAvailabilityHandler) BlockDate(c echo.Context) error {
	var req BlockDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.BlockDate(c.Request().Context(), req.Date, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBlockedDateResponse(b))
}

// UnblockDate godoc
// @Summary Remove a blocked date
// @Tags admin
// @Security BearerAuth
// @Param id path string true "blocked date id"
// @Success 204
// @Router /admin/availability/blocked-dates/{id} [delete]
func (h *AdminAvailabilityHandler) UnblockDate(c echo.Context) error {
	if err := h.service.UnblockDate(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
