package fare

import (
	"errors"

	"transit-booking/internal/domain/offering"
	"transit-booking/internal/pkg/money"
)

var (
	ErrInvalidPassengerCount = errors.New("passenger count must be positive")
	ErrUnsupportedKind       = errors.New("no fare rule for transport kind")
)

type Request struct {
	Offering   *offering.Offering
	Passengers int
	Class      string
	Promo      *Promo
}

type Quote struct {
	Class    offering.Class
	Base     money.Money
	Discount money.Money
	Total    money.Money
	// Seats is the number of inventory units the booking consumes.
	Seats int
}

// Calculator must stay free of side effects; quotes are computed speculatively.
type Calculator interface {
	Compute(req Request) (Quote, error)
}

// Rule prices one transport kind. The class has already been resolved.
type Rule func(o *offering.Offering, cs offering.ClassSpec, passengers int) money.Money

type RuleCalculator struct {
	rules map[offering.Kind]Rule
}

func NewRuleCalculator() *RuleCalculator {
	return &RuleCalculator{
		rules: map[offering.Kind]Rule{
			offering.KindTrain:  perSeat,
			offering.KindBus:    perSeat,
			offering.KindFlight: perSeat,
			offering.KindTaxi:   perVehicle,
			offering.KindMetro:  zoneFare,
		},
	}
}

func perSeat(_ *offering.Offering, cs offering.ClassSpec, passengers int) money.Money {
	return cs.Fare.Times(passengers)
}

// baseFare + perKmRate x distance, charged once per vehicle.
func perVehicle(o *offering.Offering, _ offering.ClassSpec, _ int) money.Money {
	p := o.Pricing()
	return p.BaseFare.Add(p.PerKmRate.Scale(p.DistanceKm))
}

func zoneFare(o *offering.Offering, _ offering.ClassSpec, passengers int) money.Money {
	return o.Pricing().ZoneFare.Times(passengers)
}

func (c *RuleCalculator) Compute(req Request) (Quote, error) {
	if req.Passengers <= 0 {
		return Quote{}, ErrInvalidPassengerCount
	}
	o := req.Offering
	if o == nil {
		return Quote{}, offering.ErrInvalidOffering
	}
	if o.Kind() == offering.KindTaxi && req.Passengers > o.Pricing().MaxPassengers {
		return Quote{}, ErrInvalidPassengerCount
	}

	cs, err := o.ResolveClass(req.Class)
	if err != nil {
		return Quote{}, err
	}

	rule, ok := c.rules[o.Kind()]
	if !ok {
		return Quote{}, ErrUnsupportedKind
	}

	base := rule(o, cs, req.Passengers)
	discount := money.Zero()
	if req.Promo != nil {
		discount = req.Promo.Discount().AmountFor(base)
	}

	return Quote{
		Class:    cs.Class,
		Base:     base,
		Discount: discount,
		Total:    base.Sub(discount),
		Seats:    o.SeatsFor(req.Passengers),
	}, nil
}
