package shared

import (
	"context"
	"errors"

	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/infra"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

type PriceRequest struct {
	OfferingID uuid.UUID
	Class      string
	Passengers int
	PromoCode  string
}

type Priced struct {
	Offering *offering.Offering
	Promo    *fare.Promo
	Quote    fare.Quote
}

// Pricer resolves catalog data and runs the fare calculator. It reads only,
// so quotes and bookings share the same pricing path.
type Pricer struct {
	catalog    Catalog
	calculator fare.Calculator
	clock      clock.Clock
}

func NewPricer(catalog Catalog, calculator fare.Calculator, clk clock.Clock) *Pricer {
	return &Pricer{catalog: catalog, calculator: calculator, clock: clk}
}

func (p *Pricer) Price(ctx context.Context, req PriceRequest) (*Priced, error) {
	if req.Passengers <= 0 {
		return nil, errs.Mark(fare.ErrInvalidPassengerCount, errs.ErrInvalidPassengerCount)
	}

	o, err := p.catalog.Get(ctx, req.OfferingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrOfferingNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	promo, err := p.promo(ctx, req.PromoCode)
	if err != nil {
		return nil, err
	}

	quote, err := p.calculator.Compute(fare.Request{
		Offering:   o,
		Passengers: req.Passengers,
		Class:      req.Class,
		Promo:      promo,
	})
	if err != nil {
		switch {
		case errors.Is(err, offering.ErrInvalidClass):
			return nil, errs.Mark(err, errs.ErrInvalidClass)
		case errors.Is(err, fare.ErrInvalidPassengerCount):
			return nil, errs.Mark(err, errs.ErrInvalidPassengerCount)
		default:
			return nil, errs.Mark(err, errs.ErrInternal)
		}
	}

	return &Priced{Offering: o, Promo: promo, Quote: quote}, nil
}

func (p *Pricer) promo(ctx context.Context, code string) (*fare.Promo, error) {
	if code == "" {
		return nil, nil
	}
	normalized, err := fare.NormalizePromoCode(code)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidPromo)
	}

	promo, err := p.catalog.PromoByCode(ctx, normalized)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrPromoNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if err := promo.ValidateAt(p.clock.Now()); err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidPromo)
	}
	return promo, nil
}
