package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
)

type bookingRow struct {
	ID                 string         `db:"id"`
	SessionType        string         `db:"session_type"`
	SessionDate        time.Time      `db:"session_date"`
	DurationMinutes    int            `db:"duration_minutes"`
	EndTime            *time.Time     `db:"end_time"`
	Status             string         `db:"status"`
	StripeSessionID    sql.NullString `db:"stripe_session_id"`
	PaymentExpiresAt   *time.Time     `db:"payment_expires_at"`
	ClientName         string         `db:"client_name"`
	ClientEmail        string         `db:"client_email"`
	PriceCents         int64          `db:"price_cents"`
	Notes              string         `db:"notes"`
	BookingNotes       string         `db:"booking_notes"`
	CancellationReason string         `db:"cancellation_reason"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

const bookingColumns = `id, session_type, session_date, duration_minutes, end_time, status, stripe_session_id,
	payment_expires_at, client_name, client_email, price_cents, notes, booking_notes, cancellation_reason,
	created_at, updated_at`

// bindingStatusSQL must match booking.BindingStatuses and the partial unique
// index in the migrations.
const bindingStatusSQL = `('pending_payment', 'confirmed', 'scheduled')`

// effectiveEndSQL mirrors booking.End: a missing end_time falls back to the
// duration.
const effectiveEndSQL = `COALESCE(end_time, session_date + duration_minutes * INTERVAL '1 minute')`

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	q, err := conn(r.db, tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO session_bookings (id, session_type, session_date, duration_minutes, end_time, status,
		stripe_session_id, payment_expires_at, client_name, client_email, price_cents, notes, booking_notes,
		cancellation_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = q.ExecContext(ctx, query,
		b.ID, string(b.SessionType), b.SessionDate, b.DurationMinutes, b.EndTime, string(b.Status),
		nullString(b.GatewaySessionID), b.PaymentExpiresAt, b.ClientName, b.ClientEmail, b.PriceCents,
		b.Notes, b.AdminNotes, b.CancellationReason, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(constraintOf(err), "binding_start") {
			return booking.ErrSlotUnavailable
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM session_bookings WHERE id = $1`, id)
}

func (r *BookingRepository) GetByGatewaySessionID(ctx context.Context, sessionID string) (*booking.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM session_bookings WHERE stripe_session_id = $1`, sessionID)
}

func (r *BookingRepository) ListBinding(ctx context.Context, from, to time.Time) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM session_bookings
		WHERE status IN ` + bindingStatusSQL + `
		AND session_date < $2 AND ` + effectiveEndSQL + ` > $1
		ORDER BY session_date`
	return r.selectMany(ctx, query, from.UTC(), to.UTC())
}

func (r *BookingRepository) List(ctx context.Context, f booking.Filter) ([]*booking.Booking, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.SessionType != "" {
		where = append(where, "session_type = "+arg(string(f.SessionType)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + escapeLike(strings.ToLower(s)) + "%")
		where = append(where, "(LOWER(client_name) LIKE "+p+" OR LOWER(client_email) LIKE "+p+")")
	}
	if f.From != nil {
		where = append(where, "session_date >= "+arg(f.From.UTC()))
	}
	if f.To != nil {
		where = append(where, "session_date < "+arg(f.To.UTC()))
	}

	query := `SELECT ` + bookingColumns + ` FROM session_bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY session_date DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + arg(f.Offset)
	}
	return r.selectMany(ctx, query, args...)
}

func (r *BookingRepository) Stats(ctx context.Context, monthStart, monthEnd time.Time) (*booking.Stats, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE session_date >= $1 AND session_date < $2) AS total_this_month,
		COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
		COUNT(*) FILTER (WHERE status = 'pending_payment') AS pending_payment,
		COALESCE(SUM(price_cents) FILTER (WHERE status IN ('confirmed', 'completed')), 0) AS total_revenue_cents
		FROM session_bookings`
	var s booking.Stats
	if err := r.db.GetContext(ctx, &s, query, monthStart.UTC(), monthEnd.UTC()); err != nil {
		return nil, fmt.Errorf("booking stats: %w", err)
	}
	return &s, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, b *booking.Booking, expected booking.Status) error {
	q, err := conn(r.db, tx)
	if err != nil {
		return err
	}
	query := `UPDATE session_bookings
		SET status = $1, payment_expires_at = $2, cancellation_reason = $3, updated_at = $4
		WHERE id = $5 AND status = $6`
	res, err := q.ExecContext(ctx, query,
		string(b.Status), b.PaymentExpiresAt, b.CancellationReason, b.UpdatedAt, b.ID, string(expected))
	if err != nil {
		if isUniqueViolation(err) {
			return booking.ErrSlotUnavailable
		}
		return fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return booking.ErrConcurrentUpdate
	}
	return nil
}

func (r *BookingRepository) UpdateAdminNotes(ctx context.Context, id, notes string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE session_bookings SET booking_notes = $1, updated_at = NOW() WHERE id = $2`, notes, id)
	if err != nil {
		return fmt.Errorf("update booking notes: %w", err)
	}
	return expectOneRow(res, booking.ErrBookingNotFound)
}

func (r *BookingRepository) ListExpiredPending(ctx context.Context, before time.Time) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM session_bookings
		WHERE status = 'pending_payment' AND payment_expires_at IS NOT NULL AND payment_expires_at < $1
		ORDER BY payment_expires_at`
	return r.selectMany(ctx, query, before.UTC())
}

func (r *BookingRepository) getOne(ctx context.Context, query string, args ...interface{}) (*booking.Booking, error) {
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) selectMany(ctx context.Context, query string, args ...interface{}) ([]*booking.Booking, error) {
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]*booking.Booking, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

func (row *bookingRow) toEntity() *booking.Booking {
	b := &booking.Booking{
		ID:                 row.ID,
		SessionType:        booking.SessionType(row.SessionType),
		SessionDate:        row.SessionDate.UTC(),
		DurationMinutes:    row.DurationMinutes,
		EndTime:            row.EndTime,
		Status:             booking.Status(row.Status),
		GatewaySessionID:   row.StripeSessionID.String,
		PaymentExpiresAt:   row.PaymentExpiresAt,
		ClientName:         row.ClientName,
		ClientEmail:        row.ClientEmail,
		PriceCents:         row.PriceCents,
		Notes:              row.Notes,
		AdminNotes:         row.BookingNotes,
		CancellationReason: row.CancellationReason,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	return b
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ booking.Repository = (*BookingRepository)(nil)
