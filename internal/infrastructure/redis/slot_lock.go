package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/resilienthubs/booking-engine/internal/pkg/metrics"
)

var (
	ErrLockNotAcquired = errors.New("lock is held by another request")
	ErrLockNotOwned    = errors.New("lock is not owned by this holder")
)

// Compare-and-delete so a holder never frees a lock that expired and was
// taken by someone else.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held Redis lock identified by a random token.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// LockManager hands out short-lived exclusive locks.
type LockManager struct {
	client     *redis.Client
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
	metrics    *metrics.Metrics
}

// NewLockManager returns a manager whose slot locks live for ttl. m may be nil.
func NewLockManager(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *LockManager {
	if m == nil {
		m = metrics.Nop()
	}
	return &LockManager{client: client, ttl: ttl, retries: 3, retryDelay: 100 * time.Millisecond, metrics: m}
}

// SlotKey is the lock key guarding a session start.
func SlotKey(start time.Time) string {
	return "slot:" + start.UTC().Format(time.RFC3339)
}

func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := "lock:" + key
	token := uuid.New().String()

	ok, err := m.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockKey, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{client: m.client, key: lockKey, token: token, ttl: ttl}, nil
}

func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*Lock, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lock, err := m.AcquireLock(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		lastErr = err
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lastErr
}

// SlotHold is a held slot lock.
type SlotHold interface {
	// Extend restarts the hold's TTL.
	Extend(ctx context.Context) error
	Release(ctx context.Context) error
}

type slotHold struct {
	lock    *Lock
	manager *LockManager
}

func (h *slotHold) Extend(ctx context.Context) error {
	began := time.Now()
	err := h.lock.Extend(ctx, h.manager.ttl)
	h.manager.observe("extend", began, err)
	return err
}

func (h *slotHold) Release(ctx context.Context) error {
	began := time.Now()
	err := h.lock.Release(ctx)
	h.manager.observe("release", began, err)
	return err
}

// LockSlot holds the slot starting at start until the hold is released or
// the TTL passes.
func (m *LockManager) LockSlot(ctx context.Context, start time.Time) (SlotHold, error) {
	began := time.Now()
	lock, err := m.AcquireLockWithRetry(ctx, SlotKey(start), m.ttl, m.retries, m.retryDelay)
	m.observe("acquire", began, err)
	if err != nil {
		return nil, err
	}
	return &slotHold{lock: lock, manager: m}, nil
}

func (m *LockManager) observe(op string, began time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.metrics.SlotLockDuration.WithLabelValues(op, status).Observe(time.Since(began).Seconds())
}

func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	l.ttl = ttl
	return nil
}
