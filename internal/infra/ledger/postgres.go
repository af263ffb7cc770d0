package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/infra"
	"transit-booking/internal/infra/db"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/pkg/pgconv"
	"transit-booking/internal/usecase/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	reserveSQL = `
UPDATE inventory
   SET held = held + $3
 WHERE offering_id = $1 AND class = $2
   AND held + committed + $3 <= capacity`

	inventoryExistsSQL = `SELECT EXISTS (SELECT 1 FROM inventory WHERE offering_id = $1 AND class = $2)`

	insertHoldSQL = `
INSERT INTO inventory_holds (id, offering_id, class, seats, expires_at)
VALUES ($1, $2, $3, $4, $5)`

	deleteHoldSQL = `
DELETE FROM inventory_holds
 WHERE id = $1
RETURNING offering_id, class, seats, expires_at`

	releaseHeldSQL = `
UPDATE inventory
   SET held = held - $3
 WHERE offering_id = $1 AND class = $2`

	commitHeldSQL = `
UPDATE inventory
   SET held = held - $3, committed = committed + $3
 WHERE offering_id = $1 AND class = $2`

	releaseCommittedSQL = `
UPDATE inventory
   SET committed = committed - $3
 WHERE offering_id = $1 AND class = $2 AND committed >= $3`

	stateSQL = `SELECT capacity, held, committed FROM inventory WHERE offering_id = $1 AND class = $2`

	sweepSQL = `
DELETE FROM inventory_holds
 WHERE expires_at <= $1
RETURNING offering_id, class, seats`
)

// check_violation raised by inventory_counters_check
const checkViolation = "23514"

// PostgresLedger relies on the row lock taken by a conditional UPDATE, so
// concurrent reserves serialise on the (offering, class) row only.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	clock  clock.Clock
	ttl    time.Duration
	logger *slog.Logger
}

func NewPostgresLedger(pool *pgxpool.Pool, clk clock.Clock, ttl time.Duration, logger *slog.Logger) *PostgresLedger {
	if ttl <= 0 {
		ttl = inventory.DefaultHoldTTL
	}
	return &PostgresLedger{pool: pool, clock: clk, ttl: ttl, logger: logger}
}

var _ shared.InventoryLedger = (*PostgresLedger)(nil)

func (l *PostgresLedger) Reserve(ctx context.Context, key inventory.Key, seats int) (inventory.Hold, error) {
	hold, err := inventory.NewHold(key, seats, l.clock.Now(), l.ttl)
	if err != nil {
		return inventory.Hold{}, err
	}

	_, err = db.RunInTx(ctx, l.pool, pgx.TxOptions{}, func(tx db.DBTX) (struct{}, error) {
		tag, err := tx.Exec(ctx, reserveSQL, key.OfferingID, key.Class.String(), seats)
		if err != nil {
			return struct{}{}, l.translate("reserve seats", key, err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, inventoryExistsSQL, key.OfferingID, key.Class.String()).Scan(&exists); err != nil {
				return struct{}{}, infra.WrapRepoErr("failed to check inventory", err)
			}
			if !exists {
				return struct{}{}, inventory.ErrUnknownInventory
			}
			return struct{}{}, inventory.ErrInsufficientCapacity
		}
		_, err = tx.Exec(ctx, insertHoldSQL, hold.ID, key.OfferingID, key.Class.String(), seats, pgconv.TimeToPgtype(hold.ExpiresAt))
		if err != nil {
			return struct{}{}, infra.WrapRepoErr("failed to insert hold", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return inventory.Hold{}, err
	}
	return hold, nil
}

func (l *PostgresLedger) Commit(ctx context.Context, hold inventory.Hold) error {
	now := l.clock.Now()
	expired, err := db.RunInTx(ctx, l.pool, pgx.TxOptions{}, func(tx db.DBTX) (bool, error) {
		seats, found, err := deleteHold(ctx, tx, hold)
		if err != nil {
			return false, err
		}
		if !found {
			if hold.ExpiredAt(now) {
				return true, nil
			}
			return false, inventory.ErrHoldNotFound
		}

		// a lapsed hold is released in the same transaction, never committed
		stmt := commitHeldSQL
		if hold.ExpiredAt(now) {
			stmt = releaseHeldSQL
		}
		if _, err := tx.Exec(ctx, stmt, hold.Key.OfferingID, hold.Key.Class.String(), seats); err != nil {
			return false, l.translate("commit hold", hold.Key, err)
		}
		return hold.ExpiredAt(now), nil
	})
	if err != nil {
		return err
	}
	if expired {
		return inventory.ErrHoldExpired
	}
	return nil
}

func (l *PostgresLedger) Release(ctx context.Context, hold inventory.Hold) error {
	_, err := db.RunInTx(ctx, l.pool, pgx.TxOptions{}, func(tx db.DBTX) (struct{}, error) {
		seats, found, err := deleteHold(ctx, tx, hold)
		if err != nil || !found {
			return struct{}{}, err
		}
		if _, err := tx.Exec(ctx, releaseHeldSQL, hold.Key.OfferingID, hold.Key.Class.String(), seats); err != nil {
			return struct{}{}, l.translate("release hold", hold.Key, err)
		}
		return struct{}{}, nil
	})
	return err
}

func (l *PostgresLedger) ReleaseCommitted(ctx context.Context, key inventory.Key, seats int) error {
	if seats <= 0 {
		return inventory.ErrInvalidSeatCount
	}
	tag, err := l.pool.Exec(ctx, releaseCommittedSQL, key.OfferingID, key.Class.String(), seats)
	if err != nil {
		return l.translate("release committed seats", key, err)
	}
	if tag.RowsAffected() == 0 {
		l.logger.Error("release of more seats than committed", "key", key.String(), "seats", seats)
		return inventory.ErrInvariantViolated
	}
	return nil
}

func (l *PostgresLedger) State(ctx context.Context, key inventory.Key) (inventory.State, error) {
	var s inventory.State
	err := l.pool.QueryRow(ctx, stateSQL, key.OfferingID, key.Class.String()).Scan(&s.Capacity, &s.Held, &s.Committed)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return inventory.State{}, inventory.ErrUnknownInventory
		}
		return inventory.State{}, infra.WrapRepoErr("failed to read inventory state", err)
	}
	return s, nil
}

func (l *PostgresLedger) SweepExpired(ctx context.Context) (int, error) {
	now := l.clock.Now()
	return db.RunInTxWithRetry(ctx, l.pool, pgx.TxOptions{}, func(tx db.DBTX) (int, error) {
		rows, err := tx.Query(ctx, sweepSQL, pgconv.TimeToPgtype(now))
		if err != nil {
			return 0, infra.WrapRepoErr("failed to delete expired holds", err)
		}
		released := make(map[inventory.Key]int)
		count := 0
		for rows.Next() {
			var (
				key   inventory.Key
				class string
				seats int
			)
			if err := rows.Scan(&key.OfferingID, &class, &seats); err != nil {
				rows.Close()
				return 0, infra.WrapRepoErr("failed to scan expired hold", err)
			}
			key.Class = inventoryClass(class)
			released[key] += seats
			count++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return 0, infra.WrapRepoErr("failed to read expired holds", err)
		}

		for key, seats := range released {
			if _, err := tx.Exec(ctx, releaseHeldSQL, key.OfferingID, key.Class.String(), seats); err != nil {
				return 0, l.translate("sweep expired holds", key, err)
			}
		}
		return count, nil
	})
}

func deleteHold(ctx context.Context, tx db.DBTX, hold inventory.Hold) (int, bool, error) {
	var (
		key       inventory.Key
		class     string
		seats     int
		expiresAt time.Time
	)
	err := tx.QueryRow(ctx, deleteHoldSQL, hold.ID).Scan(&key.OfferingID, &class, &seats, &expiresAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, infra.WrapRepoErr("failed to delete hold", err)
	}
	return seats, true, nil
}

func (l *PostgresLedger) translate(op string, key inventory.Key, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
		l.logger.Error("inventory invariant violated",
			"op", op, "key", key.String(), "constraint", pgErr.ConstraintName)
		return inventory.ErrInvariantViolated
	}
	return infra.WrapRepoErr("failed to "+op, err)
}
