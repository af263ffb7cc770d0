//go:build unit

package booking_test

import (
	"testing"
	"time"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/pkg/money"

	"github.com/stretchr/testify/assert"
)

func TestTieredRefundPolicy_RefundFor(t *testing.T) {
	policy := booking.NewTieredRefundPolicy()
	cancelledAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	departIn := func(d time.Duration) *time.Time {
		dep := cancelledAt.Add(d)
		return &dep
	}

	tests := []struct {
		name      string
		fare      money.Money
		departure *time.Time
		want      money.Money
	}{
		{name: "48h or more: fare minus clerkage", fare: money.FromMajor(1000), departure: departIn(72 * time.Hour), want: money.FromMajor(940)},
		{name: "exactly 48h", fare: money.FromMajor(1000), departure: departIn(48 * time.Hour), want: money.FromMajor(940)},
		{name: "12-48h: 75 percent", fare: money.FromMajor(1000), departure: departIn(24 * time.Hour), want: money.FromMajor(690)},
		{name: "4-12h: 50 percent", fare: money.FromMajor(1000), departure: departIn(6 * time.Hour), want: money.FromMajor(440)},
		{name: "under 4h: nothing", fare: money.FromMajor(1000), departure: departIn(3 * time.Hour), want: money.Zero()},
		{name: "departed: nothing", fare: money.FromMajor(1000), departure: departIn(-time.Hour), want: money.Zero()},
		{name: "low fare uses the smaller clerkage", fare: money.FromMajor(400), departure: departIn(72 * time.Hour), want: money.FromMajor(370)},
		{name: "fare of exactly 500 uses the smaller clerkage", fare: money.FromMajor(500), departure: departIn(72 * time.Hour), want: money.FromMajor(470)},
		{name: "on-demand: full fare minus clerkage", fare: money.FromMajor(242), departure: nil, want: money.FromMajor(212)},
		{name: "clerkage larger than fare", fare: money.FromMajor(20), departure: nil, want: money.Zero()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.RefundFor(tt.fare, tt.departure, cancelledAt)
			assert.Equal(t, tt.want.Cents(), got.Cents())
		})
	}
}
