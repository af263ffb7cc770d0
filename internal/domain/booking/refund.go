package booking

import (
	"time"

	"transit-booking/internal/pkg/money"
)

var (
	clerkageThreshold = money.FromMajor(500)
	clerkageHigh      = money.FromMajor(60)
	clerkageLow       = money.FromMajor(30)
)

type RefundPolicy interface {
	RefundFor(fare money.Money, departure *time.Time, cancelledAt time.Time) money.Money
}

// TieredRefundPolicy deducts a clerkage charge and a share of the fare that
// grows as departure approaches.
type TieredRefundPolicy struct{}

func NewTieredRefundPolicy() *TieredRefundPolicy {
	return &TieredRefundPolicy{}
}

func Clerkage(fare money.Money) money.Money {
	if fare.GreaterThan(clerkageThreshold) {
		return clerkageHigh
	}
	return clerkageLow
}

func (p *TieredRefundPolicy) RefundFor(fare money.Money, departure *time.Time, cancelledAt time.Time) money.Money {
	clerkage := Clerkage(fare)
	if departure == nil {
		return fare.Sub(clerkage)
	}

	lead := departure.Sub(cancelledAt)
	switch {
	case lead >= 48*time.Hour:
		return fare.Sub(clerkage)
	case lead >= 12*time.Hour:
		return fare.Scale(0.75).Sub(clerkage)
	case lead >= 4*time.Hour:
		return fare.Scale(0.5).Sub(clerkage)
	default:
		return money.Zero()
	}
}
