package repository

import (
	"context"
	"time"

	"transit-booking/internal/infra"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/pkg/pgconv"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// an existing live key is left untouched; an expired one is reclaimed
	tryInsertIdempotencyKeySQL = `
INSERT INTO idempotency_keys (key, user_id, endpoint, status, request_hash, expires_at)
VALUES ($1, $2, $3, 'processing', $4, $5)
ON CONFLICT (key, user_id) DO UPDATE
   SET endpoint = EXCLUDED.endpoint,
       status = 'processing',
       request_hash = EXCLUDED.request_hash,
       result_booking_id = NULL,
       expires_at = EXCLUDED.expires_at,
       created_at = NOW()
 WHERE idempotency_keys.expires_at <= $6`

	getIdempotencyKeySQL = `
SELECT key, user_id, endpoint, status, request_hash, result_booking_id, expires_at
  FROM idempotency_keys
 WHERE key = $1 AND user_id = $2`

	completeIdempotencyKeySQL = `
UPDATE idempotency_keys
   SET status = 'completed', result_booking_id = $3
 WHERE key = $1 AND user_id = $2`

	releaseIdempotencyKeySQL = `
DELETE FROM idempotency_keys
 WHERE key = $1 AND user_id = $2 AND status = 'processing'`

	deleteExpiredIdempotencyKeysSQL = `DELETE FROM idempotency_keys WHERE expires_at <= $1`
)

type IdempotencyRepository struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

func NewIdempotencyRepository(pool *pgxpool.Pool, clk clock.Clock) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool, clock: clk}
}

func (r *IdempotencyRepository) TryInsert(ctx context.Context, rec shared.IdempotencyRecord) (bool, error) {
	tag, err := r.pool.Exec(ctx, tryInsertIdempotencyKeySQL,
		rec.Key, rec.UserID, rec.Endpoint, rec.RequestHash,
		pgconv.TimeToPgtype(rec.ExpiresAt), pgconv.TimeToPgtype(r.clock.Now()),
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to try insert idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdempotencyRepository) Get(ctx context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	var (
		rec       shared.IdempotencyRecord
		resultID  pgtype.UUID
		expiresAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, getIdempotencyKeySQL, key, userID).Scan(
		&rec.Key, &rec.UserID, &rec.Endpoint, &rec.Status, &rec.RequestHash, &resultID, &expiresAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NewRepoErr(infra.KindNotFound, "idempotency key not found")
		}
		return nil, infra.WrapRepoErr("failed to get idempotency key", err)
	}
	rec.ResultBookingID = pgconv.UUIDPtrFromPgtype(resultID)
	rec.ExpiresAt = pgconv.TimeFromPgtype(expiresAt)
	return &rec, nil
}

func (r *IdempotencyRepository) UpdateStatusCompleted(ctx context.Context, key, userID, bookingID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, completeIdempotencyKeySQL, key, userID, bookingID)
	if err != nil {
		return infra.WrapRepoErr("failed to update idempotency key status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr(infra.KindNotFound, "idempotency key not found")
	}
	return nil
}

func (r *IdempotencyRepository) Release(ctx context.Context, key, userID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, releaseIdempotencyKeySQL, key, userID); err != nil {
		return infra.WrapRepoErr("failed to release idempotency key", err)
	}
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteExpiredIdempotencyKeysSQL, pgconv.TimeToPgtype(now))
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}
