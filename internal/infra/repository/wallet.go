package repository

import (
	"context"

	"transit-booking/internal/domain/payment"
	"transit-booking/internal/pkg/money"
	"transit-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ensureWalletSQL = `
INSERT INTO wallets (user_id, balance_cents)
VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING`

	walletBalanceSQL = `SELECT balance_cents FROM wallets WHERE user_id = $1`

	// check-and-debit is one statement; the row lock serialises concurrent debits
	debitWalletSQL = `
UPDATE wallets
   SET balance_cents = balance_cents - $2, updated_at = NOW()
 WHERE user_id = $1 AND balance_cents >= $2
RETURNING balance_cents`

	creditWalletSQL = `
UPDATE wallets
   SET balance_cents = balance_cents + $2, updated_at = NOW()
 WHERE user_id = $1
RETURNING balance_cents`
)

// WalletRepository opens each wallet lazily with the configured starting balance.
type WalletRepository struct {
	pool    *pgxpool.Pool
	initial money.Money
}

func NewWalletRepository(pool *pgxpool.Pool, initial money.Money) *WalletRepository {
	return &WalletRepository{pool: pool, initial: initial}
}

func (r *WalletRepository) ensure(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, ensureWalletSQL, userID, r.initial.Cents()); err != nil {
		return wrapErr("failed to open wallet", err)
	}
	return nil
}

func (r *WalletRepository) Balance(ctx context.Context, userID uuid.UUID) (money.Money, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return money.Zero(), err
	}
	var cents int64
	if err := r.pool.QueryRow(ctx, walletBalanceSQL, userID).Scan(&cents); err != nil {
		return money.Zero(), wrapErr("failed to get wallet balance", err)
	}
	return money.FromCents(cents), nil
}

func (r *WalletRepository) Debit(ctx context.Context, userID uuid.UUID, amount money.Money) (money.Money, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return money.Zero(), err
	}
	var cents int64
	err := r.pool.QueryRow(ctx, debitWalletSQL, userID, amount.Cents()).Scan(&cents)
	if err != nil {
		if pgconv.IsNoRows(err) {
			balance, balErr := r.Balance(ctx, userID)
			if balErr != nil {
				return money.Zero(), balErr
			}
			return balance, payment.ErrInsufficientFunds
		}
		return money.Zero(), wrapErr("failed to debit wallet", err)
	}
	return money.FromCents(cents), nil
}

func (r *WalletRepository) Credit(ctx context.Context, userID uuid.UUID, amount money.Money) (money.Money, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return money.Zero(), err
	}
	var cents int64
	if err := r.pool.QueryRow(ctx, creditWalletSQL, userID, amount.Cents()).Scan(&cents); err != nil {
		return money.Zero(), wrapErr("failed to credit wallet", err)
	}
	return money.FromCents(cents), nil
}
