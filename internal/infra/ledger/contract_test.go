//go:build unit || e2e

package ledger_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/usecase/shared"
	"transit-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractTTL = 10 * time.Minute

// ledgerFactory registers the offering with the backend and returns a ledger
// reading time from clk.
type ledgerFactory func(t *testing.T, o *offering.Offering, clk *clock.MockClock) shared.InventoryLedger

// runLedgerContract checks the behaviour every InventoryLedger backend must share.
func runLedgerContract(t *testing.T, newLedger ledgerFactory) {
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	setup := func(t *testing.T, capacity int) (shared.InventoryLedger, inventory.Key, *clock.MockClock) {
		t.Helper()
		o := builder.NewOfferingBuilder().WithCapacity("sleeper", capacity).MustBuild()
		clk := clock.NewMockClock(start)
		return newLedger(t, o, clk), inventory.Key{OfferingID: o.ID(), Class: "sleeper"}, clk
	}

	assertState := func(t *testing.T, l shared.InventoryLedger, key inventory.Key, held, committed int) {
		t.Helper()
		st, err := l.State(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, held, st.Held, "held")
		assert.Equal(t, committed, st.Committed, "committed")
		assert.NoError(t, st.Validate())
	}

	t.Run("reserve then commit moves seats from held to committed", func(t *testing.T) {
		l, key, _ := setup(t, 5)

		hold, err := l.Reserve(ctx, key, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, hold.Seats)
		assertState(t, l, key, 3, 0)

		require.NoError(t, l.Commit(ctx, hold))
		assertState(t, l, key, 0, 3)
	})

	t.Run("reserve beyond capacity fails without side effects", func(t *testing.T) {
		l, key, _ := setup(t, 2)

		_, err := l.Reserve(ctx, key, 3)
		require.ErrorIs(t, err, inventory.ErrInsufficientCapacity)
		assertState(t, l, key, 0, 0)
	})

	t.Run("release is idempotent", func(t *testing.T) {
		l, key, _ := setup(t, 2)

		hold, err := l.Reserve(ctx, key, 2)
		require.NoError(t, err)
		require.NoError(t, l.Release(ctx, hold))
		require.NoError(t, l.Release(ctx, hold))
		assertState(t, l, key, 0, 0)

		unknown := inventory.Hold{ID: uuid.New(), Key: key, Seats: 1, ExpiresAt: start.Add(time.Hour)}
		require.NoError(t, l.Release(ctx, unknown))
		assertState(t, l, key, 0, 0)
	})

	t.Run("released seats can be reserved again", func(t *testing.T) {
		l, key, _ := setup(t, 1)

		hold, err := l.Reserve(ctx, key, 1)
		require.NoError(t, err)
		_, err = l.Reserve(ctx, key, 1)
		require.ErrorIs(t, err, inventory.ErrInsufficientCapacity)

		require.NoError(t, l.Release(ctx, hold))
		_, err = l.Reserve(ctx, key, 1)
		require.NoError(t, err)
	})

	t.Run("commit after expiry fails and returns the seats", func(t *testing.T) {
		l, key, clk := setup(t, 2)

		hold, err := l.Reserve(ctx, key, 2)
		require.NoError(t, err)

		clk.Add(contractTTL + time.Second)
		require.ErrorIs(t, l.Commit(ctx, hold), inventory.ErrHoldExpired)

		_, err = l.SweepExpired(ctx)
		require.NoError(t, err)
		assertState(t, l, key, 0, 0)
	})

	t.Run("sweep releases lapsed holds only", func(t *testing.T) {
		l, key, clk := setup(t, 4)

		_, err := l.Reserve(ctx, key, 2)
		require.NoError(t, err)
		clk.Add(contractTTL / 2)
		fresh, err := l.Reserve(ctx, key, 1)
		require.NoError(t, err)

		clk.Add(contractTTL/2 + time.Second)
		released, err := l.SweepExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, released, 0)

		assertState(t, l, key, 1, 0)
		require.NoError(t, l.Commit(ctx, fresh))
		assertState(t, l, key, 0, 1)
	})

	t.Run("release committed returns seats for cancellation", func(t *testing.T) {
		l, key, _ := setup(t, 3)

		hold, err := l.Reserve(ctx, key, 2)
		require.NoError(t, err)
		require.NoError(t, l.Commit(ctx, hold))

		require.NoError(t, l.ReleaseCommitted(ctx, key, 2))
		assertState(t, l, key, 0, 0)

		require.ErrorIs(t, l.ReleaseCommitted(ctx, key, 1), inventory.ErrInvariantViolated)
		assertState(t, l, key, 0, 0)
	})

	t.Run("unknown inventory", func(t *testing.T) {
		l, key, _ := setup(t, 1)

		_, err := l.Reserve(ctx, inventory.Key{OfferingID: key.OfferingID, Class: "first"}, 1)
		require.ErrorIs(t, err, inventory.ErrUnknownInventory)
	})

	t.Run("concurrent reserves never oversell", func(t *testing.T) {
		const (
			capacity = 5
			workers  = 40
		)
		l, key, _ := setup(t, capacity)

		var (
			wg       sync.WaitGroup
			won      atomic.Int32
			soldOut  atomic.Int32
			startGun = make(chan struct{})
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-startGun
				_, err := l.Reserve(ctx, key, 1)
				if err == nil {
					won.Add(1)
					return
				}
				if assert.ErrorIs(t, err, inventory.ErrInsufficientCapacity) {
					soldOut.Add(1)
				}
			}()
		}
		close(startGun)
		wg.Wait()

		assert.Equal(t, int32(capacity), won.Load())
		assert.Equal(t, int32(workers-capacity), soldOut.Load())
		assertState(t, l, key, capacity, 0)
	})

	t.Run("last seat race has exactly one winner", func(t *testing.T) {
		l, key, _ := setup(t, 1)

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				hold, err := l.Reserve(ctx, key, 1)
				if err == nil {
					err = l.Commit(ctx, hold)
				}
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok, failed int
		for err := range results {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, inventory.ErrInsufficientCapacity)
			failed++
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, failed)
		assertState(t, l, key, 0, 1)
	})
}
