package memstore

import (
	"time"

	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/pkg/money"
)

type seedRoute struct {
	kind        offering.Kind
	name        string
	operator    string
	origin      string
	destination string
	departHour  int
	departMin   int
	duration    time.Duration
	classes     []offering.ClassSpec
	pricing     offering.Pricing
}

func cls(c offering.Class, fareMajor int64, capacity int) offering.ClassSpec {
	return offering.ClassSpec{Class: c, Fare: money.FromMajor(fareMajor), Capacity: capacity}
}

var seedRoutes = []seedRoute{
	{
		kind: offering.KindTrain, name: "Rajdhani Express", operator: "Indian Railways",
		origin: "New Delhi", destination: "Mumbai Central", departHour: 16, departMin: 55, duration: 15*time.Hour + 50*time.Minute,
		classes: []offering.ClassSpec{cls("1a", 4755, 18), cls("2a", 2870, 46), cls("3a", 2045, 64)},
	},
	{
		kind: offering.KindTrain, name: "Shatabdi Express", operator: "Indian Railways",
		origin: "New Delhi", destination: "Mumbai Central", departHour: 6, departMin: 0, duration: 16 * time.Hour,
		classes: []offering.ClassSpec{cls("ec", 2505, 56), cls("cc", 1240, 78)},
	},
	{
		kind: offering.KindTrain, name: "Tamil Nadu Express", operator: "Indian Railways",
		origin: "New Delhi", destination: "Chennai Central", departHour: 22, departMin: 30, duration: 33 * time.Hour,
		classes: []offering.ClassSpec{cls("2a", 3650, 46), cls("3a", 2540, 64), cls("sl", 935, 72)},
	},
	{
		kind: offering.KindBus, name: "Volvo Multi-Axle Sleeper", operator: "VRL Travels",
		origin: "Bengaluru", destination: "Goa", departHour: 21, departMin: 0, duration: 11 * time.Hour,
		classes: []offering.ClassSpec{cls("sleeper", 1450, 30), cls("seater", 780, 15)},
	},
	{
		kind: offering.KindBus, name: "AC Seater", operator: "KSRTC",
		origin: "Bengaluru", destination: "Goa", departHour: 21, departMin: 0, duration: 12 * time.Hour,
		classes: []offering.ClassSpec{cls("seater", 650, 45)},
	},
	{
		kind: offering.KindFlight, name: "AI 865", operator: "Air India",
		origin: "New Delhi", destination: "Mumbai", departHour: 7, departMin: 0, duration: 2*time.Hour + 10*time.Minute,
		classes: []offering.ClassSpec{cls("economy", 5450, 162), cls("business", 18900, 18)},
	},
	{
		kind: offering.KindFlight, name: "6E 2134", operator: "IndiGo",
		origin: "New Delhi", destination: "Mumbai", departHour: 9, departMin: 15, duration: 2*time.Hour + 5*time.Minute,
		classes: []offering.ClassSpec{cls("economy", 4890, 180)},
	},
	{
		kind: offering.KindMetro, name: "Yellow Line", operator: "DMRC",
		origin: "Rajiv Chowk", destination: "Hauz Khas", departHour: 8, departMin: 0, duration: 25 * time.Minute,
		classes: []offering.ClassSpec{cls(offering.ClassGeneral, 0, 300)},
		pricing: offering.Pricing{ZoneFare: money.FromMajor(30)},
	},
	{
		kind: offering.KindMetro, name: "Blue Line", operator: "DMRC",
		origin: "Rajiv Chowk", destination: "Dwarka Sector 21", departHour: 8, departMin: 10, duration: 50 * time.Minute,
		classes: []offering.ClassSpec{cls(offering.ClassGeneral, 0, 300)},
		pricing: offering.Pricing{ZoneFare: money.FromMajor(45)},
	},
}

var seedTaxis = []seedRoute{
	{
		kind: offering.KindTaxi, name: "Sedan", operator: "City Cabs",
		origin: "Connaught Place", destination: "IGI Airport",
		classes: []offering.ClassSpec{cls(offering.ClassVehicle, 0, 1)},
		pricing: offering.Pricing{BaseFare: money.FromMajor(50), PerKmRate: money.FromMajor(12), DistanceKm: 16, MaxPassengers: 4},
	},
	{
		kind: offering.KindTaxi, name: "SUV", operator: "City Cabs",
		origin: "Connaught Place", destination: "IGI Airport",
		classes: []offering.ClassSpec{cls(offering.ClassVehicle, 0, 1)},
		pricing: offering.Pricing{BaseFare: money.FromMajor(80), PerKmRate: money.FromMajor(18), DistanceKm: 16, MaxPassengers: 6},
	},
}

// SeedOfferings builds the sample catalog with scheduled departures for
// the given number of days, anchored to midnight of now in loc.
func SeedOfferings(now time.Time, loc *time.Location, days int) ([]*offering.Offering, error) {
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	out := make([]*offering.Offering, 0, len(seedRoutes)*days+len(seedTaxis))
	for day := range days {
		base := today.AddDate(0, 0, day)
		for _, r := range seedRoutes {
			dep := base.Add(time.Duration(r.departHour)*time.Hour + time.Duration(r.departMin)*time.Minute)
			arr := dep.Add(r.duration)
			o, err := offering.NewOffering(r.kind, r.name, r.operator, r.origin, r.destination, &dep, &arr, r.classes, r.pricing)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
	}
	for _, r := range seedTaxis {
		o, err := offering.NewOffering(r.kind, r.name, r.operator, r.origin, r.destination, nil, nil, r.classes, r.pricing)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func SeedPromos(now time.Time) ([]*fare.Promo, error) {
	amountOff := int64(10000)
	percentOff := 10.0
	until := now.AddDate(0, 3, 0)

	first, err := fare.NewPromo("FIRSTRIDE", &amountOff, nil, nil, &until)
	if err != nil {
		return nil, err
	}
	festive, err := fare.NewPromo("FESTIVE10", nil, &percentOff, nil, &until)
	if err != nil {
		return nil, err
	}
	return []*fare.Promo{first, festive}, nil
}
