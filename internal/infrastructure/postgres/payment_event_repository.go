package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/resilienthubs/booking-engine/internal/domain/payment"
	"github.com/resilienthubs/booking-engine/internal/domain/transaction"
)

type PaymentEventRepository struct{ db *sqlx.DB }

func NewPaymentEventRepository(db *sqlx.DB) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

// Record inserts the event row. A concurrent delivery of the same event id
// waits on the first transaction and then sees the conflict.
func (r *PaymentEventRepository) Record(ctx context.Context, tx transaction.Tx, e *payment.ProcessedEvent) (bool, error) {
	q, err := conn(r.db, tx)
	if err != nil {
		return false, err
	}
	query := `INSERT INTO payment_events (event_id, type, gateway_session_id, outcome, received_at)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT (event_id) DO NOTHING`
	res, err := q.ExecContext(ctx, query, e.EventID, e.Type, e.SessionID, string(e.Outcome), e.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("record payment event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *PaymentEventRepository) SetOutcome(ctx context.Context, tx transaction.Tx, eventID string, outcome payment.Outcome) error {
	q, err := conn(r.db, tx)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `UPDATE payment_events SET outcome = $1 WHERE event_id = $2`, string(outcome), eventID); err != nil {
		return fmt.Errorf("set payment event outcome: %w", err)
	}
	return nil
}

var _ payment.EventRepository = (*PaymentEventRepository)(nil)
