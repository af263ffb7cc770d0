//go:build unit

package inventory_test

import (
	"testing"
	"time"

	"transit-booking/internal/domain/inventory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHold(t *testing.T) {
	key := inventory.Key{OfferingID: uuid.New(), Class: "sleeper"}
	now := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)

	t.Run("TTL指定", func(t *testing.T) {
		h, err := inventory.NewHold(key, 2, now, 5*time.Minute)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, h.ID)
		assert.Equal(t, key, h.Key)
		assert.Equal(t, now.Add(5*time.Minute), h.ExpiresAt)
	})

	t.Run("TTL未指定は既定値", func(t *testing.T) {
		h, err := inventory.NewHold(key, 1, now, 0)
		require.NoError(t, err)
		assert.Equal(t, now.Add(inventory.DefaultHoldTTL), h.ExpiresAt)
	})

	t.Run("座席数0は不可", func(t *testing.T) {
		_, err := inventory.NewHold(key, 0, now, time.Minute)
		assert.ErrorIs(t, err, inventory.ErrInvalidSeatCount)
	})

	t.Run("期限ちょうどで失効", func(t *testing.T) {
		h, err := inventory.NewHold(key, 1, now, time.Minute)
		require.NoError(t, err)
		assert.False(t, h.ExpiredAt(now.Add(59*time.Second)))
		assert.True(t, h.ExpiredAt(now.Add(time.Minute)))
	})
}

func TestState(t *testing.T) {
	tests := []struct {
		name       string
		state      inventory.State
		available  int
		canReserve int
		reservable bool
		valid      bool
	}{
		{name: "empty", state: inventory.State{Capacity: 5}, available: 5, canReserve: 5, reservable: true, valid: true},
		{name: "partly held", state: inventory.State{Capacity: 5, Held: 2, Committed: 1}, available: 2, canReserve: 3, reservable: false, valid: true},
		{name: "full", state: inventory.State{Capacity: 2, Held: 1, Committed: 1}, available: 0, canReserve: 1, reservable: false, valid: true},
		{name: "overbooked", state: inventory.State{Capacity: 2, Held: 2, Committed: 1}, available: -1, canReserve: 1, reservable: false, valid: false},
		{name: "negative held", state: inventory.State{Capacity: 2, Held: -1}, available: 3, canReserve: 1, reservable: true, valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.available, tt.state.Available())
			assert.Equal(t, tt.reservable, tt.state.CanReserve(tt.canReserve))
			if tt.valid {
				assert.NoError(t, tt.state.Validate())
			} else {
				assert.ErrorIs(t, tt.state.Validate(), inventory.ErrInvariantViolated)
			}
		})
	}
}

func TestKey_String(t *testing.T) {
	id := uuid.MustParse("7d0b6f1e-7d43-4c1a-9a53-2f3c1f1e0a11")
	assert.Equal(t, "7d0b6f1e-7d43-4c1a-9a53-2f3c1f1e0a11:ac3", inventory.Key{OfferingID: id, Class: "ac3"}.String())
}
