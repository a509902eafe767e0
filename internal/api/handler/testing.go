package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/resilienthubs/booking-engine/internal/api"
)

// NewTestEcho returns an echo instance wired with the production validator
// and error handler.
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}
