//go:build unit || e2e

package builder

import (
	"time"

	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/pkg/money"
)

type OfferingBuilder struct {
	Kind          offering.Kind
	Name          string
	Operator      string
	Origin        string
	Destination   string
	DepartureTime *time.Time
	ArrivalTime   *time.Time
	Classes       []offering.ClassSpec
	Pricing       offering.Pricing
}

// NewOfferingBuilder defaults to a two-class train departing tomorrow.
func NewOfferingBuilder() *OfferingBuilder {
	dep := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	arr := dep.Add(8 * time.Hour)
	return &OfferingBuilder{
		Kind:          offering.KindTrain,
		Name:          "Rajdhani Express",
		Operator:      "Indian Railways",
		Origin:        "New Delhi",
		Destination:   "Mumbai Central",
		DepartureTime: &dep,
		ArrivalTime:   &arr,
		Classes: []offering.ClassSpec{
			{Class: "sleeper", Fare: money.FromMajor(800), Capacity: 10},
			{Class: "ac3", Fare: money.FromMajor(2000), Capacity: 4},
		},
	}
}

func NewTaxiBuilder() *OfferingBuilder {
	return &OfferingBuilder{
		Kind:        offering.KindTaxi,
		Name:        "Sedan",
		Operator:    "City Cabs",
		Origin:      "Connaught Place",
		Destination: "IGI Airport",
		Classes:     []offering.ClassSpec{{Class: offering.ClassVehicle, Capacity: 1}},
		Pricing: offering.Pricing{
			BaseFare:      money.FromMajor(50),
			PerKmRate:     money.FromMajor(12),
			DistanceKm:    16,
			MaxPassengers: 4,
		},
	}
}

func NewMetroBuilder() *OfferingBuilder {
	dep := time.Now().Add(2 * time.Hour).Truncate(time.Minute)
	return &OfferingBuilder{
		Kind:          offering.KindMetro,
		Name:          "Yellow Line",
		Operator:      "DMRC",
		Origin:        "Rajiv Chowk",
		Destination:   "Hauz Khas",
		DepartureTime: &dep,
		Classes:       []offering.ClassSpec{{Class: offering.ClassGeneral, Capacity: 300}},
		Pricing:       offering.Pricing{ZoneFare: money.FromMajor(40)},
	}
}

func (b *OfferingBuilder) With(mutate func(*OfferingBuilder)) *OfferingBuilder {
	mutate(b)
	return b
}

func (b *OfferingBuilder) WithCapacity(class offering.Class, capacity int) *OfferingBuilder {
	for i := range b.Classes {
		if b.Classes[i].Class == class {
			b.Classes[i].Capacity = capacity
		}
	}
	return b
}

func (b *OfferingBuilder) WithDeparture(dep time.Time) *OfferingBuilder {
	arr := dep.Add(8 * time.Hour)
	b.DepartureTime = &dep
	b.ArrivalTime = &arr
	return b
}

func (b *OfferingBuilder) BuildDomain() (*offering.Offering, error) {
	return offering.NewOffering(b.Kind, b.Name, b.Operator, b.Origin, b.Destination, b.DepartureTime, b.ArrivalTime, b.Classes, b.Pricing)
}

// MustBuild is for fixtures whose inputs are known to be valid.
func (b *OfferingBuilder) MustBuild() *offering.Offering {
	o, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	return o
}

func NewAmountPromo(code string, cents int64) *fare.Promo {
	p, err := fare.NewPromo(code, &cents, nil, nil, nil)
	if err != nil {
		panic(err)
	}
	return p
}

func NewPercentPromo(code string, percent float64, validFrom, validTo *time.Time) *fare.Promo {
	p, err := fare.NewPromo(code, nil, &percent, validFrom, validTo)
	if err != nil {
		panic(err)
	}
	return p
}
