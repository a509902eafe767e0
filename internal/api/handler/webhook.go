package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Checkout events are a few kilobytes.
const maxWebhookBody = 256 << 10

// SignatureHeader carries the gateway's webhook signature.
const SignatureHeader = "Stripe-Signature"

type WebhookHandler struct {
	service WebhookServiceInterface
}

func NewWebhookHandler(s WebhookServiceInterface) *WebhookHandler {
	return &WebhookHandler{service: s}
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

// Stripe godoc
// @Summary Payment gateway webhook
// @Description Verifies the signature and reconciles the referenced booking.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "signature"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse "gateway retries"
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) Stripe(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read body")
	}
	if len(payload) > maxWebhookBody {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}

	if _, err := h.service.Handle(c.Request().Context(), payload, c.Request().Header.Get(SignatureHeader)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, WebhookResponse{Received: true})
}
