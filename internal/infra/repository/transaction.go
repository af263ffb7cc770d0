package repository

import (
	"context"
	"time"

	"transit-booking/internal/domain/payment"
	"transit-booking/internal/infra"
	"transit-booking/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertTransactionSQL = `
INSERT INTO payment_transactions (id, booking_id, kind, method, amount_cents, status, reference, reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	listTransactionsSQL = `
SELECT id, booking_id, kind, method, amount_cents, status, reference, reason, created_at, updated_at
  FROM payment_transactions
 WHERE booking_id = $1
 ORDER BY created_at, id`
)

type transactionRow struct {
	id          uuid.UUID
	bookingID   uuid.UUID
	amountCents int64
	createdAt   time.Time
	updatedAt   time.Time
}

type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Save accepts only terminal transactions; the booking row must already exist.
func (r *TransactionRepository) Save(ctx context.Context, tx *payment.Transaction) error {
	if !tx.Status().IsTerminal() {
		return infra.NewRepoErr(infra.KindConflict, "transaction is not terminal")
	}
	_, err := r.pool.Exec(ctx, insertTransactionSQL,
		tx.ID(), tx.BookingID(), string(tx.Kind()), tx.Method().String(), tx.Amount().Cents(),
		string(tx.Status()), tx.Reference(), tx.Reason(), tx.CreatedAt(), tx.UpdatedAt(),
	)
	if err != nil {
		return wrapErr("failed to insert payment transaction", err)
	}
	return nil
}

func (r *TransactionRepository) ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]*payment.Transaction, error) {
	rows, err := r.pool.Query(ctx, listTransactionsSQL, bookingID)
	if err != nil {
		return nil, wrapErr("failed to list payment transactions", err)
	}
	defer rows.Close()

	out := make([]*payment.Transaction, 0)
	for rows.Next() {
		var (
			t                    transactionRow
			kind, method, status string
			reference, reason    string
		)
		if err := rows.Scan(&t.id, &t.bookingID, &kind, &method, &t.amountCents, &status,
			&reference, &reason, &t.createdAt, &t.updatedAt); err != nil {
			return nil, wrapErr("failed to scan payment transaction", err)
		}
		out = append(out, payment.ReconstructTransaction(
			t.id, t.bookingID,
			payment.Kind(kind), payment.Method(method),
			money.FromCents(t.amountCents),
			payment.Status(status), reference, reason,
			t.createdAt, t.updatedAt,
		))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate payment transactions", err)
	}
	return out, nil
}
