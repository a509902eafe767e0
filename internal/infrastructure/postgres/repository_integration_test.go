//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/config"
	"github.com/resilienthubs/booking-engine/internal/domain/availability"
	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := config.Load()
	db, err := NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	require.NoError(t, RunMigrations(db.DB, zap.NewNop()))

	clean := func() {
		db.Exec("DELETE FROM payment_events")
		db.Exec("DELETE FROM session_bookings")
		db.Exec("DELETE FROM blocked_dates")
		db.Exec("DELETE FROM availability")
	}
	clean()
	t.Cleanup(func() {
		clean()
		db.Close()
	})
	return db
}

func newPendingBooking(t *testing.T, start time.Time, sessionID string) *booking.Booking {
	t.Helper()
	st, err := booking.LookupSessionType("one_on_one")
	require.NoError(t, err)
	b := booking.NewBooking(st, start, "Ana", "ana@example.com", "", time.Now(), 30*time.Minute)
	b.GatewaySessionID = sessionID
	return b
}

func TestAvailabilityRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAvailabilityRepository(db)
	ctx := context.Background()

	w, err := availability.NewWindow(1, "09:00", "17:00", true)
	require.NoError(t, err)
	require.NoError(t, repo.CreateWindow(ctx, w))
	require.NotEmpty(t, w.ID)

	inactive, err := availability.NewWindow(2, "10:00", "12:30", false)
	require.NoError(t, err)
	require.NoError(t, repo.CreateWindow(ctx, inactive))

	all, err := repo.ListWindows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.ListActiveWindows(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 9*60, active[0].StartMinute())
	assert.Equal(t, 17*60, active[0].EndMinute())

	inactive.Active = true
	require.NoError(t, repo.UpdateWindow(ctx, inactive))
	got, err := repo.GetWindow(ctx, inactive.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, 12*60+30, got.EndMinute())

	require.NoError(t, repo.DeleteWindow(ctx, inactive.ID))
	assert.ErrorIs(t, repo.DeleteWindow(ctx, inactive.ID), availability.ErrWindowNotFound)

	d := civil.Date{Year: 2030, Month: time.May, Day: 1}
	b, err := availability.NewBlockedDate(d, "holiday")
	require.NoError(t, err)
	require.NoError(t, repo.CreateBlockedDate(ctx, b))

	dup, err := availability.NewBlockedDate(d, "again")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.CreateBlockedDate(ctx, dup), availability.ErrDateAlreadyBlocked)

	blocked, err := repo.ListBlockedDates(ctx, availability.DateRange{From: d, To: d})
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, d, blocked[0].Date)

	none, err := repo.ListBlockedDates(ctx, availability.DateRange{From: d.AddDays(1)})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBookingRepository_BindingUniqueness(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db)
	txm := NewTxManager(db)
	ctx := context.Background()
	start := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)

	first := newPendingBooking(t, start, "cs_first")
	require.NoError(t, transaction.WithinTx(ctx, txm, func(tx transaction.Tx) error {
		return repo.Create(ctx, tx, first)
	}))

	second := newPendingBooking(t, start, "cs_second")
	err := transaction.WithinTx(ctx, txm, func(tx transaction.Tx) error {
		return repo.Create(ctx, tx, second)
	})
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)

	// Once the first booking expires the start frees up.
	_, err = first.Transition(booking.StatusExpired, time.Now(), "")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, nil, first, booking.StatusPendingPayment))
	require.NoError(t, repo.Create(ctx, nil, second))
}

func TestBookingRepository_QueriesAndCompareAndSet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()
	start := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)

	b := newPendingBooking(t, start, "cs_query")
	require.NoError(t, repo.Create(ctx, nil, b))

	bySession, err := repo.GetByGatewaySessionID(ctx, "cs_query")
	require.NoError(t, err)
	assert.Equal(t, b.ID, bySession.ID)
	_, err = repo.GetByGatewaySessionID(ctx, "cs_missing")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)

	day := time.Date(2030, 5, 6, 0, 0, 0, 0, time.UTC)
	binding, err := repo.ListBinding(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, binding, 1)
	assert.Equal(t, start.Add(time.Hour), binding[0].End())

	list, err := repo.List(ctx, booking.Filter{Search: "ANA@", Status: booking.StatusPendingPayment})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	overdue, err := repo.ListExpiredPending(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	stale := *b
	_, err = b.Transition(booking.StatusConfirmed, time.Now(), "")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, nil, b, booking.StatusPendingPayment))

	_, err = stale.Transition(booking.StatusExpired, time.Now(), "")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, nil, &stale, booking.StatusPendingPayment), booking.ErrConcurrentUpdate)

	stored, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, stored.Status)
	assert.Nil(t, stored.PaymentExpiresAt)

	require.NoError(t, repo.UpdateAdminNotes(ctx, b.ID, "prefers mornings"))
	stats, err := repo.Stats(ctx, day.AddDate(0, 0, -5), day.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalThisMonth)
	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, int64(8700), stats.TotalRevenueCents)
}

func TestPaymentEventRepository_Record(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentEventRepository(db)
	ctx := context.Background()

	e := &payment.ProcessedEvent{EventID: "evt_1", Type: payment.EventCheckoutCompleted, SessionID: "cs_1", ReceivedAt: time.Now()}
	inserted, err := repo.Record(ctx, nil, e)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Record(ctx, nil, e)
	require.NoError(t, err)
	assert.False(t, inserted)

	require.NoError(t, repo.SetOutcome(ctx, nil, "evt_1", payment.OutcomeConfirmed))
	var outcome string
	require.NoError(t, db.Get(&outcome, `SELECT outcome FROM payment_events WHERE event_id = $1`, "evt_1"))
	assert.Equal(t, "confirmed", outcome)
}
