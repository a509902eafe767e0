package application

import (
	"context"
	"time"

	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	redisinfra "github.com/resilienthubs/booking-engine/internal/infrastructure/redis"
)

// PaymentGateway creates hosted checkouts and verifies gateway callbacks.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
	ParseWebhookEvent(payload []byte, signature string) (*payment.Event, error)
}

// SlotLocker holds a short exclusive lock around booking creation.
type SlotLocker interface {
	LockSlot(ctx context.Context, start time.Time) (redisinfra.SlotHold, error)
}

// AvailabilityCache stores computed availability under a data version.
type AvailabilityCache interface {
	Version(ctx context.Context) (int64, error)
	BumpVersion(ctx context.Context) error
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
