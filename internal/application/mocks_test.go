package application

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
	redisinfra "github.com/resilienthubs/booking-engine/internal/infrastructure/redis"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockPaymentGateway implements PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) ParseWebhookEvent(payload []byte, signature string) (*payment.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

// MockSlotLocker implements SlotLocker
type MockSlotLocker struct {
	mock.Mock
}

func (m *MockSlotLocker) LockSlot(ctx context.Context, start time.Time) (redisinfra.SlotHold, error) {
	args := m.Called(ctx, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.SlotHold), args.Error(1)
}

// fakeHold records what CreateBooking does with its day lock.
type fakeHold struct {
	extended  int
	released  bool
	extendErr error
}

func (h *fakeHold) Extend(context.Context) error {
	h.extended++
	return h.extendErr
}

func (h *fakeHold) Release(context.Context) error {
	h.released = true
	return nil
}

// === In-memory fakes ===

type fakeTx struct{ committed, rolledBack bool }

func (t *fakeTx) Commit() error   { t.committed = true; return nil }
func (t *fakeTx) Rollback() error { t.rolledBack = true; return nil }

type fakeTxManager struct{ begun int }

func (m *fakeTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	m.begun++
	return &fakeTx{}, nil
}

// fakeBookingRepo stores copies so callers cannot mutate stored rows behind
// its back, mirroring a real database.
type fakeBookingRepo struct {
	mu        sync.Mutex
	rows      map[string]booking.Booking
	updateErr error
	// staleOnce makes the next UpdateStatus fail as if another writer won.
	staleOnce bool
}

func newFakeBookingRepo(bs ...*booking.Booking) *fakeBookingRepo {
	r := &fakeBookingRepo{rows: make(map[string]booking.Booking)}
	for _, b := range bs {
		r.rows[b.ID] = *b
	}
	return r
}

func (r *fakeBookingRepo) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Status.IsBinding() {
		for _, row := range r.rows {
			if row.Status.IsBinding() && row.SessionDate.Equal(b.SessionDate) {
				return booking.ErrSlotUnavailable
			}
		}
	}
	r.rows[b.ID] = *b
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return &row, nil
}

func (r *fakeBookingRepo) GetByGatewaySessionID(ctx context.Context, sessionID string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if sessionID != "" && row.GatewaySessionID == sessionID {
			return &row, nil
		}
	}
	return nil, booking.ErrBookingNotFound
}

func (r *fakeBookingRepo) ListBinding(ctx context.Context, from, to time.Time) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, row := range r.rows {
		row := row
		if row.Status.IsBinding() && row.Overlaps(from, to) {
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) List(ctx context.Context, f booking.Filter) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, row := range r.rows {
		row := row
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		if f.SessionType != "" && row.SessionType != f.SessionType {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(row.ClientName), q) && !strings.Contains(strings.ToLower(row.ClientEmail), q) {
				continue
			}
		}
		if f.From != nil && row.SessionDate.Before(*f.From) {
			continue
		}
		if f.To != nil && !row.SessionDate.Before(*f.To) {
			continue
		}
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionDate.Before(out[j].SessionDate) })
	return out, nil
}

func (r *fakeBookingRepo) Stats(ctx context.Context, monthStart, monthEnd time.Time) (*booking.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &booking.Stats{}
	for _, row := range r.rows {
		if !row.SessionDate.Before(monthStart) && row.SessionDate.Before(monthEnd) {
			st.TotalThisMonth++
		}
		switch row.Status {
		case booking.StatusConfirmed:
			st.Confirmed++
			st.TotalRevenueCents += row.PriceCents
		case booking.StatusCompleted:
			st.TotalRevenueCents += row.PriceCents
		case booking.StatusPendingPayment:
			st.PendingPayment++
		}
	}
	return st, nil
}

func (r *fakeBookingRepo) UpdateStatus(ctx context.Context, tx transaction.Tx, b *booking.Booking, expected booking.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	row, ok := r.rows[b.ID]
	if !ok {
		return booking.ErrBookingNotFound
	}
	if r.staleOnce {
		r.staleOnce = false
		return booking.ErrConcurrentUpdate
	}
	if row.Status != expected {
		return booking.ErrConcurrentUpdate
	}
	row.Status = b.Status
	row.PaymentExpiresAt = b.PaymentExpiresAt
	row.CancellationReason = b.CancellationReason
	row.UpdatedAt = b.UpdatedAt
	r.rows[b.ID] = row
	return nil
}

func (r *fakeBookingRepo) UpdateAdminNotes(ctx context.Context, id, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return booking.ErrBookingNotFound
	}
	row.AdminNotes = notes
	r.rows[id] = row
	return nil
}

func (r *fakeBookingRepo) ListExpiredPending(ctx context.Context, before time.Time) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, row := range r.rows {
		row := row
		if row.Status == booking.StatusPendingPayment && row.PaymentExpiresAt != nil && row.PaymentExpiresAt.Before(before) {
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) status(id string) booking.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id].Status
}

type fakeAvailabilityRepo struct {
	windows []*availability.Window
	blocked []*availability.BlockedDate
	seq     int
}

func (r *fakeAvailabilityRepo) ListWindows(ctx context.Context) ([]*availability.Window, error) {
	return r.windows, nil
}

func (r *fakeAvailabilityRepo) ListActiveWindows(ctx context.Context) ([]*availability.Window, error) {
	var out []*availability.Window
	for _, w := range r.windows {
		if w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) GetWindow(ctx context.Context, id string) (*availability.Window, error) {
	for _, w := range r.windows {
		if w.ID == id {
			cp := *w
			return &cp, nil
		}
	}
	return nil, availability.ErrWindowNotFound
}

func (r *fakeAvailabilityRepo) CreateWindow(ctx context.Context, w *availability.Window) error {
	r.seq++
	w.ID = "w-" + string(rune('0'+r.seq))
	r.windows = append(r.windows, w)
	return nil
}

func (r *fakeAvailabilityRepo) UpdateWindow(ctx context.Context, w *availability.Window) error {
	for i, existing := range r.windows {
		if existing.ID == w.ID {
			r.windows[i] = w
			return nil
		}
	}
	return availability.ErrWindowNotFound
}

func (r *fakeAvailabilityRepo) DeleteWindow(ctx context.Context, id string) error {
	for i, w := range r.windows {
		if w.ID == id {
			r.windows = append(r.windows[:i], r.windows[i+1:]...)
			return nil
		}
	}
	return availability.ErrWindowNotFound
}

func (r *fakeAvailabilityRepo) ListBlockedDates(ctx context.Context, rng availability.DateRange) ([]*availability.BlockedDate, error) {
	var out []*availability.BlockedDate
	for _, b := range r.blocked {
		if !rng.From.IsZero() && b.Date.Before(rng.From) {
			continue
		}
		if !rng.To.IsZero() && b.Date.After(rng.To) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) CreateBlockedDate(ctx context.Context, b *availability.BlockedDate) error {
	for _, existing := range r.blocked {
		if existing.Date == b.Date {
			return availability.ErrDateAlreadyBlocked
		}
	}
	r.seq++
	b.ID = "bd-" + string(rune('0'+r.seq))
	r.blocked = append(r.blocked, b)
	return nil
}

func (r *fakeAvailabilityRepo) DeleteBlockedDate(ctx context.Context, id string) error {
	for i, b := range r.blocked {
		if b.ID == id {
			r.blocked = append(r.blocked[:i], r.blocked[i+1:]...)
			return nil
		}
	}
	return availability.ErrBlockedDateNotFound
}

type fakeEventRepo struct {
	mu       sync.Mutex
	outcomes map[string]payment.Outcome
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{outcomes: make(map[string]payment.Outcome)}
}

func (r *fakeEventRepo) Record(ctx context.Context, tx transaction.Tx, e *payment.ProcessedEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.outcomes[e.EventID]; ok {
		return false, nil
	}
	r.outcomes[e.EventID] = ""
	return true, nil
}

func (r *fakeEventRepo) SetOutcome(ctx context.Context, tx transaction.Tx, eventID string, outcome payment.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[eventID] = outcome
	return nil
}

// fakeCache mirrors the Redis cache: JSON values behind a version counter.
type fakeCache struct {
	mu      sync.Mutex
	version int64
	entries map[string][]byte
	gets    int
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Version(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, nil
}

func (c *fakeCache) BumpVersion(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return redisinfra.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}
