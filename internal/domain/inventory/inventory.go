package inventory

import (
	"errors"
	"fmt"
	"time"

	"transit-booking/internal/domain/offering"

	"github.com/google/uuid"
)

const DefaultHoldTTL = 10 * time.Minute

var (
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrHoldExpired          = errors.New("hold expired")
	ErrHoldNotFound         = errors.New("hold not found")
	ErrInvalidSeatCount     = errors.New("seat count must be positive")
	ErrUnknownInventory     = errors.New("no inventory for offering class")
	// ErrInvariantViolated signals a ledger bug, never a user error.
	ErrInvariantViolated = errors.New("inventory invariant violated")
)

type Key struct {
	OfferingID uuid.UUID
	Class      offering.Class
}

func (k Key) String() string {
	return k.OfferingID.String() + ":" + k.Class.String()
}

// Hold is the token handed back by a successful reserve.
type Hold struct {
	ID        uuid.UUID
	Key       Key
	Seats     int
	ExpiresAt time.Time
}

func NewHold(key Key, seats int, now time.Time, ttl time.Duration) (Hold, error) {
	if seats <= 0 {
		return Hold{}, ErrInvalidSeatCount
	}
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return Hold{
		ID:        uuid.New(),
		Key:       key,
		Seats:     seats,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (h Hold) ExpiredAt(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

type State struct {
	Capacity  int
	Held      int
	Committed int
}

func (s State) Available() int {
	return s.Capacity - s.Held - s.Committed
}

func (s State) CanReserve(seats int) bool {
	return s.Held+s.Committed+seats <= s.Capacity
}

func (s State) Validate() error {
	if s.Held < 0 || s.Committed < 0 || s.Held+s.Committed > s.Capacity {
		return fmt.Errorf("%w: capacity=%d held=%d committed=%d", ErrInvariantViolated, s.Capacity, s.Held, s.Committed)
	}
	return nil
}
