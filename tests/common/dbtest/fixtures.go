//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/infra/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Queryer is satisfied by *pgxpool.Pool and pgx.Tx.
type Queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PutOffering stores o with zeroed inventory rows.
func PutOffering(t *testing.T, pool *pgxpool.Pool, o *offering.Offering) {
	t.Helper()
	require.NoError(t, repository.NewCatalogRepository(pool).Put(context.Background(), o))
}

func PutPromo(t *testing.T, pool *pgxpool.Pool, p *fare.Promo) {
	t.Helper()
	require.NoError(t, repository.NewCatalogRepository(pool).PutPromo(context.Background(), p))
}

// InventoryCounters reads the raw counter row, bypassing any ledger.
func InventoryCounters(t *testing.T, db Queryer, key inventory.Key) inventory.State {
	t.Helper()

	var s inventory.State
	err := db.QueryRow(context.Background(),
		"SELECT capacity, held, committed FROM inventory WHERE offering_id = $1 AND class = $2",
		key.OfferingID, key.Class.String()).Scan(&s.Capacity, &s.Held, &s.Committed)
	require.NoError(t, err)
	return s
}

func CountRows(t *testing.T, db Queryer, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	_, err := pool.Exec(ctx, sqlAny.(string))
	return err
}
