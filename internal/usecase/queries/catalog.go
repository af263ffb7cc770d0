package queries

//go:generate mockgen -source=catalog.go -destination=../../../tests/mock/queries/catalog.go -package=queriesmock

import (
	"context"
	"strings"
	"time"

	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const searchDateLayout = "2006-01-02"

type SearchInput struct {
	Origin      string
	Destination string
	// Date is a calendar day, YYYY-MM-DD, in the catalog time zone.
	Date string
	Kind string
}

type QuoteInput struct {
	OfferingID uuid.UUID
	Class      string
	Passengers int
	PromoCode  string
}

type CatalogQueries interface {
	Search(ctx context.Context, in SearchInput) ([]OfferingView, error)
	Quote(ctx context.Context, in QuoteInput) (*QuoteView, error)
}

type catalogQueriesImpl struct {
	catalog  shared.Catalog
	ledger   shared.InventoryLedger
	pricer   *shared.Pricer
	location *time.Location
}

func NewCatalogQueries(
	catalog shared.Catalog,
	ledger shared.InventoryLedger,
	pricer *shared.Pricer,
	cfg config.Config,
) CatalogQueries {
	return &catalogQueriesImpl{
		catalog:  catalog,
		ledger:   ledger,
		pricer:   pricer,
		location: cfg.Catalog.Location(),
	}
}

func (q *catalogQueriesImpl) Search(ctx context.Context, in SearchInput) ([]OfferingView, error) {
	criteria, err := q.criteria(in)
	if err != nil {
		return nil, err
	}

	found, err := q.catalog.Search(ctx, criteria)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	offering.SortForSearch(found)

	views := make([]OfferingView, 0, len(found))
	for _, o := range found {
		v, err := q.offeringView(ctx, o)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (q *catalogQueriesImpl) criteria(in SearchInput) (shared.SearchCriteria, error) {
	origin := strings.TrimSpace(in.Origin)
	destination := strings.TrimSpace(in.Destination)
	if origin == "" || destination == "" {
		return shared.SearchCriteria{}, errs.Mark(errs.New("origin and destination are required"), errs.ErrInvalidSearchCriteria)
	}

	date, err := time.ParseInLocation(searchDateLayout, strings.TrimSpace(in.Date), q.location)
	if err != nil {
		return shared.SearchCriteria{}, errs.Mark(errs.Wrap(err, "date must be YYYY-MM-DD"), errs.ErrInvalidSearchCriteria)
	}

	criteria := shared.SearchCriteria{Origin: origin, Destination: destination, Date: date}
	if strings.TrimSpace(in.Kind) != "" {
		kind, err := offering.ParseKind(in.Kind)
		if err != nil {
			return shared.SearchCriteria{}, errs.Mark(err, errs.ErrInvalidSearchCriteria)
		}
		criteria.Kind = &kind
	}
	return criteria, nil
}

func (q *catalogQueriesImpl) offeringView(ctx context.Context, o *offering.Offering) (OfferingView, error) {
	classes := o.Classes()
	cv := make([]ClassView, 0, len(classes))
	for _, cs := range classes {
		state, err := q.ledger.State(ctx, inventory.Key{OfferingID: o.ID(), Class: cs.Class})
		if err != nil {
			return OfferingView{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		cv = append(cv, ClassView{
			Class:     cs.Class.String(),
			FareCents: cs.Fare.Cents(),
			Capacity:  cs.Capacity,
			Available: state.Available(),
		})
	}

	v := OfferingView{
		ID:              o.ID(),
		Kind:            o.Kind().String(),
		Name:            o.Name(),
		Operator:        o.Operator(),
		Origin:          o.Origin(),
		Destination:     o.Destination(),
		DepartureTime:   o.DepartureTime(),
		ArrivalTime:     o.ArrivalTime(),
		LowestFareCents: o.LowestFare().Cents(),
		Classes:         cv,
	}
	if o.Kind().PerVehicle() {
		v.MaxPassengers = o.Pricing().MaxPassengers
	}
	return v, nil
}

func (q *catalogQueriesImpl) Quote(ctx context.Context, in QuoteInput) (*QuoteView, error) {
	priced, err := q.pricer.Price(ctx, shared.PriceRequest{
		OfferingID: in.OfferingID,
		Class:      in.Class,
		Passengers: in.Passengers,
		PromoCode:  in.PromoCode,
	})
	if err != nil {
		return nil, err
	}

	v := &QuoteView{
		OfferingID:    priced.Offering.ID(),
		Kind:          priced.Offering.Kind().String(),
		Class:         priced.Quote.Class.String(),
		Passengers:    in.Passengers,
		Seats:         priced.Quote.Seats,
		BaseCents:     priced.Quote.Base.Cents(),
		DiscountCents: priced.Quote.Discount.Cents(),
		TotalCents:    priced.Quote.Total.Cents(),
	}
	if priced.Promo != nil {
		code := priced.Promo.Code()
		v.PromoCode = &code
	}
	return v, nil
}
