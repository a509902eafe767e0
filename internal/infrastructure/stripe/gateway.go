// Package stripe adapts Stripe Checkout and Stripe webhooks to the payment
// domain.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/config"
	"github.com/resilienthubs/booking-engine/internal/domain/payment"
)

// Stripe rejects checkout sessions that expire sooner than this.
const minCheckoutLifetime = 30 * time.Minute

const signatureTolerance = 300 * time.Second

// Gateway creates checkout sessions and verifies webhook deliveries.
type Gateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
	now           func() time.Time
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithBackendURL points the API client at another base URL.
func WithBackendURL(url string, log *zap.Logger) Option {
	return func(g *Gateway) {
		if g.api == nil {
			return
		}
		backend := stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
			URL:               stripego.String(url),
			LeveledLogger:     log.Sugar(),
			MaxNetworkRetries: stripego.Int64(0),
		})
		g.api = client.New(g.api.CheckoutSessions.Key, &stripego.Backends{API: backend, Connect: backend, Uploads: backend})
	}
}

// WithClock overrides the clock used for checkout expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// NewGateway builds a gateway from cfg. Without a secret key checkout
// creation is disabled but webhook verification still works.
func NewGateway(cfg config.StripeConfig, log *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		webhookSecret: cfg.WebhookSecret,
		currency:      strings.ToLower(cfg.Currency),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		now:           time.Now,
	}
	if cfg.Enabled() {
		backend := stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
			LeveledLogger: log.Sugar(),
		})
		g.api = client.New(cfg.SecretKey, &stripego.Backends{API: backend, Connect: backend, Uploads: backend})
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateCheckoutSession opens a hosted payment page for one booking. The
// booking id travels in the session metadata.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if g.api == nil {
		return nil, payment.ErrGatewayDisabled
	}

	expiresAt := req.ExpiresAt
	if earliest := g.now().Add(minCheckoutLifetime + time.Minute); expiresAt.Before(earliest) {
		expiresAt = earliest
	}

	params := &stripego.CheckoutSessionParams{
		Mode:              stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:        stripego.String(g.successURL),
		CancelURL:         stripego.String(g.cancelURL),
		ClientReferenceID: stripego.String(req.BookingID),
		ExpiresAt:         stripego.Int64(expiresAt.Unix()),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripego.String(g.currency),
					UnitAmount: stripego.Int64(req.AmountCents),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripego.String(req.Description),
					},
				},
				Quantity: stripego.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripego.String(req.CustomerEmail)
	}
	params.AddMetadata("booking_id", req.BookingID)
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &payment.CheckoutSession{
		ID:        s.ID,
		URL:       s.URL,
		ExpiresAt: time.Unix(s.ExpiresAt, 0).UTC(),
	}, nil
}

// ParseWebhookEvent verifies the Stripe-Signature header against the shared
// secret and decodes the event. It fails closed: a missing secret, header or
// signature yields payment.ErrInvalidSignature.
func (g *Gateway) ParseWebhookEvent(payload []byte, signature string) (*payment.Event, error) {
	if g.webhookSecret == "" || signature == "" {
		return nil, payment.ErrInvalidSignature
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, signature, g.webhookSecret, signatureTolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                signatureTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("%w: event id and type are required", payment.ErrMalformedPayload)
	}

	out := &payment.Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: time.Unix(ev.Created, 0).UTC(),
	}
	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: checkout event without data", payment.ErrMalformedPayload)
	}

	var session stripego.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: checkout session id missing", payment.ErrMalformedPayload)
	}
	out.SessionID = session.ID
	out.BookingID = session.Metadata["booking_id"]
	if out.BookingID == "" {
		out.BookingID = session.ClientReferenceID
	}
	out.PaymentStatus = string(session.PaymentStatus)
	return out, nil
}
