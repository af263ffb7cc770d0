package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type memEntry struct {
	mu    sync.Mutex
	state inventory.State
	holds map[uuid.UUID]inventory.Hold
}

// MemoryLedger serialises on a mutex per (offering, class). The ledger-wide
// lock only guards creation of entries.
type MemoryLedger struct {
	mu       sync.Mutex
	entries  map[inventory.Key]*memEntry
	capacity shared.CapacityLookup
	clock    clock.Clock
	ttl      time.Duration
	logger   *slog.Logger
}

func NewMemoryLedger(capacity shared.CapacityLookup, clk clock.Clock, ttl time.Duration, logger *slog.Logger) *MemoryLedger {
	if ttl <= 0 {
		ttl = inventory.DefaultHoldTTL
	}
	return &MemoryLedger{
		entries:  make(map[inventory.Key]*memEntry),
		capacity: capacity,
		clock:    clk,
		ttl:      ttl,
		logger:   logger,
	}
}

func (l *MemoryLedger) lookup(key inventory.Key) (*memEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	return e, ok
}

func (l *MemoryLedger) entry(ctx context.Context, key inventory.Key) (*memEntry, error) {
	if e, ok := l.lookup(key); ok {
		return e, nil
	}

	// capacity lookup may hit the catalog, so it runs outside the lock
	capacity, err := l.capacity.Capacity(ctx, key)
	if err != nil {
		return nil, inventory.ErrUnknownInventory
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok {
		return e, nil
	}
	e := &memEntry{
		state: inventory.State{Capacity: capacity},
		holds: make(map[uuid.UUID]inventory.Hold),
	}
	l.entries[key] = e
	return e, nil
}

func (l *MemoryLedger) Reserve(ctx context.Context, key inventory.Key, seats int) (inventory.Hold, error) {
	if seats <= 0 {
		return inventory.Hold{}, inventory.ErrInvalidSeatCount
	}
	e, err := l.entry(ctx, key)
	if err != nil {
		return inventory.Hold{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.clock.Now()
	l.expireLocked(e, now)

	if !e.state.CanReserve(seats) {
		return inventory.Hold{}, inventory.ErrInsufficientCapacity
	}
	hold, err := inventory.NewHold(key, seats, now, l.ttl)
	if err != nil {
		return inventory.Hold{}, err
	}
	e.state.Held += seats
	e.holds[hold.ID] = hold
	return hold, l.checkLocked(key, e)
}

func (l *MemoryLedger) Commit(_ context.Context, hold inventory.Hold) error {
	e, ok := l.lookup(hold.Key)
	if !ok {
		return inventory.ErrHoldNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stored, present := e.holds[hold.ID]
	if hold.ExpiredAt(l.clock.Now()) {
		if present {
			delete(e.holds, hold.ID)
			e.state.Held -= stored.Seats
		}
		if err := l.checkLocked(hold.Key, e); err != nil {
			return err
		}
		return inventory.ErrHoldExpired
	}
	if !present {
		return inventory.ErrHoldNotFound
	}

	delete(e.holds, hold.ID)
	e.state.Held -= stored.Seats
	e.state.Committed += stored.Seats
	return l.checkLocked(hold.Key, e)
}

func (l *MemoryLedger) Release(_ context.Context, hold inventory.Hold) error {
	e, ok := l.lookup(hold.Key)
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stored, present := e.holds[hold.ID]
	if !present {
		return nil
	}
	delete(e.holds, hold.ID)
	e.state.Held -= stored.Seats
	return l.checkLocked(hold.Key, e)
}

func (l *MemoryLedger) ReleaseCommitted(ctx context.Context, key inventory.Key, seats int) error {
	if seats <= 0 {
		return inventory.ErrInvalidSeatCount
	}
	e, err := l.entry(ctx, key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Committed < seats {
		l.logger.Error("release of more seats than committed",
			"key", key.String(), "seats", seats, "committed", e.state.Committed)
		return inventory.ErrInvariantViolated
	}
	e.state.Committed -= seats
	return l.checkLocked(key, e)
}

func (l *MemoryLedger) State(ctx context.Context, key inventory.Key) (inventory.State, error) {
	e, err := l.entry(ctx, key)
	if err != nil {
		return inventory.State{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	l.expireLocked(e, l.clock.Now())
	return e.state, nil
}

func (l *MemoryLedger) SweepExpired(_ context.Context) (int, error) {
	l.mu.Lock()
	entries := make([]*memEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.Unlock()

	now := l.clock.Now()
	released := 0
	for _, e := range entries {
		e.mu.Lock()
		released += l.expireLocked(e, now)
		e.mu.Unlock()
	}
	return released, nil
}

// expireLocked drops lapsed holds; the caller holds e.mu.
func (l *MemoryLedger) expireLocked(e *memEntry, now time.Time) int {
	n := 0
	for id, h := range e.holds {
		if h.ExpiredAt(now) {
			delete(e.holds, id)
			e.state.Held -= h.Seats
			n++
		}
	}
	return n
}

func (l *MemoryLedger) checkLocked(key inventory.Key, e *memEntry) error {
	if err := e.state.Validate(); err != nil {
		l.logger.Error("inventory invariant violated",
			"key", key.String(),
			"capacity", e.state.Capacity,
			"held", e.state.Held,
			"committed", e.state.Committed)
		return err
	}
	return nil
}
