package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
)

// BookingExpirer expires pending bookings whose payment window has lapsed.
type BookingExpirer interface {
	ExpireOverdue(ctx context.Context, grace time.Duration) (int, error)
}

// ExpiredBookingSweeper periodically releases slots held by bookings whose
// checkout was abandoned and whose expiry webhook never arrived.
type ExpiredBookingSweeper struct {
	bookingService BookingExpirer
	interval       time.Duration
	grace          time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}
}

func NewExpiredBookingSweeper(bs BookingExpirer, interval, grace time.Duration) *ExpiredBookingSweeper {
	return &ExpiredBookingSweeper{
		bookingService: bs,
		interval:       interval,
		grace:          grace,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (s *ExpiredBookingSweeper) Start(ctx context.Context) {
	logger.Info("expired booking sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("grace", s.grace),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("expired booking sweeper stopped (context cancelled)")
			return
		case <-s.stopCh:
			logger.Info("expired booking sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpiredBookingSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *ExpiredBookingSweeper) sweep(ctx context.Context) {
	log := logger.Get()

	count, err := s.bookingService.ExpireOverdue(ctx, s.grace)
	if err != nil {
		log.Error("expired booking sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		log.Info("expired overdue bookings", zap.Int("count", count))
	} else {
		log.Debug("no overdue bookings")
	}
}
