package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"

	"github.com/resilienthubs/booking-engine/internal/domain/availability"
)

type windowRow struct {
	ID        string    `db:"id"`
	DayOfWeek int       `db:"day_of_week"`
	StartTime string    `db:"start_time"`
	EndTime   string    `db:"end_time"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type blockedDateRow struct {
	ID        string    `db:"id"`
	Date      time.Time `db:"date"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

const windowColumns = `id, day_of_week, start_time::text AS start_time, end_time::text AS end_time, is_active, created_at, updated_at`

type AvailabilityRepository struct{ db *sqlx.DB }

func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) ListWindows(ctx context.Context) ([]*availability.Window, error) {
	return r.selectWindows(ctx, `SELECT `+windowColumns+` FROM availability ORDER BY day_of_week, start_time`)
}

func (r *AvailabilityRepository) ListActiveWindows(ctx context.Context) ([]*availability.Window, error) {
	return r.selectWindows(ctx, `SELECT `+windowColumns+` FROM availability WHERE is_active ORDER BY day_of_week, start_time`)
}

func (r *AvailabilityRepository) GetWindow(ctx context.Context, id string) (*availability.Window, error) {
	var row windowRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+windowColumns+` FROM availability WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, availability.ErrWindowNotFound
		}
		return nil, fmt.Errorf("get availability window: %w", err)
	}
	return row.toEntity()
}

func (r *AvailabilityRepository) CreateWindow(ctx context.Context, w *availability.Window) error {
	query := `INSERT INTO availability (day_of_week, start_time, end_time, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, w.DayOfWeek, w.Start.String(), w.End.String(), w.Active, w.CreatedAt, w.UpdatedAt).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("create availability window: %w", err)
	}
	return nil
}

func (r *AvailabilityRepository) UpdateWindow(ctx context.Context, w *availability.Window) error {
	query := `UPDATE availability SET day_of_week = $1, start_time = $2, end_time = $3, is_active = $4, updated_at = $5 WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, w.DayOfWeek, w.Start.String(), w.End.String(), w.Active, w.UpdatedAt, w.ID)
	if err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	return expectOneRow(res, availability.ErrWindowNotFound)
}

func (r *AvailabilityRepository) DeleteWindow(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	return expectOneRow(res, availability.ErrWindowNotFound)
}

func (r *AvailabilityRepository) ListBlockedDates(ctx context.Context, dr availability.DateRange) ([]*availability.BlockedDate, error) {
	query := `SELECT id, date, reason, created_at FROM blocked_dates
		WHERE ($1::date IS NULL OR date >= $1::date) AND ($2::date IS NULL OR date <= $2::date)
		ORDER BY date`
	var rows []blockedDateRow
	if err := r.db.SelectContext(ctx, &rows, query, nullDate(dr.From), nullDate(dr.To)); err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	out := make([]*availability.BlockedDate, len(rows))
	for i, row := range rows {
		out[i] = &availability.BlockedDate{
			ID:        row.ID,
			Date:      civil.DateOf(row.Date),
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}

func (r *AvailabilityRepository) CreateBlockedDate(ctx context.Context, b *availability.BlockedDate) error {
	query := `INSERT INTO blocked_dates (date, reason, created_at) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, b.Date.String(), b.Reason, b.CreatedAt).Scan(&b.ID); err != nil {
		if isUniqueViolation(err) {
			return availability.ErrDateAlreadyBlocked
		}
		return fmt.Errorf("create blocked date: %w", err)
	}
	return nil
}

func (r *AvailabilityRepository) DeleteBlockedDate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blocked_dates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blocked date: %w", err)
	}
	return expectOneRow(res, availability.ErrBlockedDateNotFound)
}

func (r *AvailabilityRepository) selectWindows(ctx context.Context, query string, args ...interface{}) ([]*availability.Window, error) {
	var rows []windowRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	out := make([]*availability.Window, 0, len(rows))
	for _, row := range rows {
		w, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func (row *windowRow) toEntity() (*availability.Window, error) {
	start, err := availability.ParseClock(row.StartTime)
	if err != nil {
		return nil, fmt.Errorf("window %s: %w", row.ID, err)
	}
	end, err := availability.ParseClock(row.EndTime)
	if err != nil {
		return nil, fmt.Errorf("window %s: %w", row.ID, err)
	}
	return &availability.Window{
		ID:        row.ID,
		DayOfWeek: row.DayOfWeek,
		Start:     start,
		End:       end,
		Active:    row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func nullDate(d civil.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ availability.Repository = (*AvailabilityRepository)(nil)
