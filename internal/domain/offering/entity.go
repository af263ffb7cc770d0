package offering

import (
	"sort"
	"strings"
	"time"

	"transit-booking/internal/pkg/money"

	"github.com/google/uuid"
)

type ClassSpec struct {
	Class    Class
	Fare     money.Money
	Capacity int
}

// Pricing holds kind-specific fare parameters; per-class fares live in ClassSpec.
type Pricing struct {
	BaseFare      money.Money
	PerKmRate     money.Money
	DistanceKm    float64
	ZoneFare      money.Money
	MaxPassengers int
}

type Offering struct {
	id            uuid.UUID
	kind          Kind
	name          string
	operator      string
	origin        string
	destination   string
	departureTime *time.Time
	arrivalTime   *time.Time
	classes       []ClassSpec
	pricing       Pricing
}

func NewOffering(
	kind Kind,
	name, operator, origin, destination string,
	departureTime, arrivalTime *time.Time,
	classes []ClassSpec,
	pricing Pricing,
) (*Offering, error) {
	return build(uuid.New(), kind, name, operator, origin, destination, departureTime, arrivalTime, classes, pricing)
}

func ReconstructOffering(
	id uuid.UUID,
	kind Kind,
	name, operator, origin, destination string,
	departureTime, arrivalTime *time.Time,
	classes []ClassSpec,
	pricing Pricing,
) (*Offering, error) {
	return build(id, kind, name, operator, origin, destination, departureTime, arrivalTime, classes, pricing)
}

func build(
	id uuid.UUID,
	kind Kind,
	name, operator, origin, destination string,
	departureTime, arrivalTime *time.Time,
	classes []ClassSpec,
	pricing Pricing,
) (*Offering, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return nil, ErrInvalidOffering
	}
	if kind.Scheduled() && departureTime == nil {
		return nil, ErrInvalidOffering
	}
	if departureTime != nil && arrivalTime != nil && arrivalTime.Before(*departureTime) {
		return nil, ErrInvalidOffering
	}
	if len(classes) == 0 {
		return nil, ErrInvalidOffering
	}
	seen := make(map[Class]struct{}, len(classes))
	specs := make([]ClassSpec, 0, len(classes))
	for _, cs := range classes {
		cs.Class = NormalizeClass(cs.Class.String())
		if cs.Class == "" || cs.Capacity < 0 {
			return nil, ErrInvalidOffering
		}
		if _, dup := seen[cs.Class]; dup {
			return nil, ErrInvalidOffering
		}
		seen[cs.Class] = struct{}{}
		specs = append(specs, cs)
	}
	if kind == KindTaxi && pricing.MaxPassengers <= 0 {
		pricing.MaxPassengers = 4
	}

	return &Offering{
		id:            id,
		kind:          kind,
		name:          name,
		operator:      operator,
		origin:        strings.TrimSpace(origin),
		destination:   strings.TrimSpace(destination),
		departureTime: departureTime,
		arrivalTime:   arrivalTime,
		classes:       specs,
		pricing:       pricing,
	}, nil
}

func (o *Offering) ID() uuid.UUID             { return o.id }
func (o *Offering) Kind() Kind                { return o.kind }
func (o *Offering) Name() string              { return o.name }
func (o *Offering) Operator() string          { return o.operator }
func (o *Offering) Origin() string            { return o.origin }
func (o *Offering) Destination() string       { return o.destination }
func (o *Offering) DepartureTime() *time.Time { return o.departureTime }
func (o *Offering) ArrivalTime() *time.Time   { return o.arrivalTime }
func (o *Offering) Pricing() Pricing          { return o.pricing }

func (o *Offering) Classes() []ClassSpec {
	out := make([]ClassSpec, len(o.classes))
	copy(out, o.classes)
	return out
}

// ResolveClass maps a requested class to the offered one. An empty request
// resolves only when the offering has exactly one class.
func (o *Offering) ResolveClass(requested string) (ClassSpec, error) {
	c := NormalizeClass(requested)
	if c == "" {
		if len(o.classes) == 1 {
			return o.classes[0], nil
		}
		return ClassSpec{}, ErrInvalidClass
	}
	for _, cs := range o.classes {
		if cs.Class == c {
			return cs, nil
		}
	}
	return ClassSpec{}, ErrInvalidClass
}

// SeatsFor is the number of inventory units a booking of n passengers consumes.
func (o *Offering) SeatsFor(passengers int) int {
	if o.kind.PerVehicle() {
		return 1
	}
	return passengers
}

func (o *Offering) MatchesRoute(origin, destination string) bool {
	return strings.EqualFold(o.origin, strings.TrimSpace(origin)) &&
		strings.EqualFold(o.destination, strings.TrimSpace(destination))
}

// DepartsOn compares calendar dates in the departure's own location.
// On-demand offerings match any date.
func (o *Offering) DepartsOn(date time.Time) bool {
	if o.departureTime == nil {
		return true
	}
	d := o.departureTime.In(date.Location())
	y1, m1, d1 := d.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// LowestFare is the cheapest single-passenger price, used to order search results.
func (o *Offering) LowestFare() money.Money {
	switch o.kind {
	case KindTaxi:
		return o.pricing.BaseFare.Add(o.pricing.PerKmRate.Scale(o.pricing.DistanceKm))
	case KindMetro:
		return o.pricing.ZoneFare
	}
	lowest := o.classes[0].Fare
	for _, cs := range o.classes[1:] {
		if cs.Fare.LessThan(lowest) {
			lowest = cs.Fare
		}
	}
	return lowest
}

// SortForSearch orders by departure ascending, ties broken by lowest fare.
// On-demand offerings sort after scheduled ones.
func SortForSearch(offerings []*Offering) {
	sort.SliceStable(offerings, func(i, j int) bool {
		a, b := offerings[i], offerings[j]
		switch {
		case a.departureTime == nil && b.departureTime != nil:
			return false
		case a.departureTime != nil && b.departureTime == nil:
			return true
		case a.departureTime != nil && b.departureTime != nil && !a.departureTime.Equal(*b.departureTime):
			return a.departureTime.Before(*b.departureTime)
		}
		return a.LowestFare().LessThan(b.LowestFare())
	})
}
