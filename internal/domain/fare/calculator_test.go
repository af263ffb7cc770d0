//go:build unit

package fare_test

import (
	"testing"

	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/pkg/money"
	"transit-booking/tests/common/builder"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moneyCmp = cmp.Comparer(func(a, b money.Money) bool { return a.Cents() == b.Cents() })

func TestRuleCalculator_Compute(t *testing.T) {
	calc := fare.NewRuleCalculator()
	train := builder.NewOfferingBuilder().MustBuild()
	taxi := builder.NewTaxiBuilder().MustBuild()
	metro := builder.NewMetroBuilder().MustBuild()

	tests := []struct {
		name  string
		req   fare.Request
		want  fare.Quote
		errIs error
	}{
		{
			name: "train charges per seat",
			req:  fare.Request{Offering: train, Passengers: 2, Class: "sleeper"},
			want: fare.Quote{Class: "sleeper", Base: money.FromMajor(1600), Discount: money.Zero(), Total: money.FromMajor(1600), Seats: 2},
		},
		{
			name: "class lookup is case-insensitive",
			req:  fare.Request{Offering: train, Passengers: 1, Class: " AC3 "},
			want: fare.Quote{Class: "ac3", Base: money.FromMajor(2000), Discount: money.Zero(), Total: money.FromMajor(2000), Seats: 1},
		},
		{
			name: "taxi charges once per vehicle",
			req:  fare.Request{Offering: taxi, Passengers: 3},
			want: fare.Quote{Class: offering.ClassVehicle, Base: money.FromMajor(242), Discount: money.Zero(), Total: money.FromMajor(242), Seats: 1},
		},
		{
			name: "metro uses the zone fare",
			req:  fare.Request{Offering: metro, Passengers: 3, Class: "general"},
			want: fare.Quote{Class: offering.ClassGeneral, Base: money.FromMajor(120), Discount: money.Zero(), Total: money.FromMajor(120), Seats: 3},
		},
		{
			name: "fixed promo is subtracted after the kind rule",
			req:  fare.Request{Offering: train, Passengers: 2, Class: "sleeper", Promo: builder.NewAmountPromo("FIRSTRIDE", 100000)},
			want: fare.Quote{Class: "sleeper", Base: money.FromMajor(1600), Discount: money.FromMajor(1000), Total: money.FromMajor(600), Seats: 2},
		},
		{
			name: "promo never takes the total below zero",
			req:  fare.Request{Offering: metro, Passengers: 1, Class: "general", Promo: builder.NewAmountPromo("BIGOFF", 1000000)},
			want: fare.Quote{Class: offering.ClassGeneral, Base: money.FromMajor(40), Discount: money.FromMajor(40), Total: money.Zero(), Seats: 1},
		},
		{
			name: "percentage promo",
			req:  fare.Request{Offering: train, Passengers: 2, Class: "sleeper", Promo: builder.NewPercentPromo("FESTIVE10", 10, nil, nil)},
			want: fare.Quote{Class: "sleeper", Base: money.FromMajor(1600), Discount: money.FromMajor(160), Total: money.FromMajor(1440), Seats: 2},
		},
		{
			name:  "zero passengers",
			req:   fare.Request{Offering: train, Passengers: 0, Class: "sleeper"},
			errIs: fare.ErrInvalidPassengerCount,
		},
		{
			name:  "taxi over seat limit",
			req:   fare.Request{Offering: taxi, Passengers: 5},
			errIs: fare.ErrInvalidPassengerCount,
		},
		{
			name:  "unknown class",
			req:   fare.Request{Offering: train, Passengers: 1, Class: "first"},
			errIs: offering.ErrInvalidClass,
		},
		{
			name:  "empty class on a multi-class offering",
			req:   fare.Request{Offering: train, Passengers: 1},
			errIs: offering.ErrInvalidClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Compute(tt.req)
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, moneyCmp); diff != "" {
				t.Errorf("Quote mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRuleCalculator_IsPure(t *testing.T) {
	calc := fare.NewRuleCalculator()
	req := fare.Request{Offering: builder.NewOfferingBuilder().MustBuild(), Passengers: 3, Class: "sleeper"}

	first, err := calc.Compute(req)
	require.NoError(t, err)
	second, err := calc.Compute(req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
