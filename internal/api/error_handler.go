package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{availability.ErrInvalidDate, http.StatusBadRequest},
	{availability.ErrInvalidMonth, http.StatusBadRequest},
	{availability.ErrInvalidTime, http.StatusBadRequest},
	{availability.ErrInvalidWindow, http.StatusBadRequest},
	{availability.ErrInvalidDayOfWeek, http.StatusBadRequest},
	{availability.ErrInvalidDateRange, http.StatusBadRequest},
	{booking.ErrUnknownSessionType, http.StatusBadRequest},
	{booking.ErrInvalidStatus, http.StatusBadRequest},
	{booking.ErrInvalidTransition, http.StatusBadRequest},
	{booking.ErrClientNameRequired, http.StatusBadRequest},
	{booking.ErrClientEmailRequired, http.StatusBadRequest},
	{booking.ErrSessionDateRequired, http.StatusBadRequest},
	{payment.ErrMalformedPayload, http.StatusBadRequest},
	{payment.ErrInvalidSignature, http.StatusUnauthorized},
	{booking.ErrBookingNotFound, http.StatusNotFound},
	{availability.ErrWindowNotFound, http.StatusNotFound},
	{availability.ErrBlockedDateNotFound, http.StatusNotFound},
	{booking.ErrSlotUnavailable, http.StatusConflict},
	{availability.ErrDateAlreadyBlocked, http.StatusConflict},
	{booking.ErrConcurrentUpdate, http.StatusConflict},
	{payment.ErrGatewayDisabled, http.StatusServiceUnavailable},
}

// StatusFor maps a domain error to its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// CustomHTTPErrorHandler renders echo and domain errors as ErrorResponse and
// logs server errors.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    = http.StatusInternalServerError
		message = http.StatusText(http.StatusInternalServerError)
	)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else if status := StatusFor(err); status != http.StatusInternalServerError {
		code = status
		message = err.Error()
	}

	if code >= 500 {
		logger.Error("server error",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: message, Code: code})
	}
	if err != nil {
		logger.Error("failed to send error response", zap.Error(err))
	}
}
