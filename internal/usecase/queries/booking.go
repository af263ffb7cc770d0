package queries

//go:generate mockgen -source=booking.go -destination=../../../tests/mock/queries/booking.go -package=queriesmock

import (
	"context"
	"strings"

	"transit-booking/internal/infra"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type BookingQueries interface {
	GetByPNR(ctx context.Context, pnr string) (*BookingView, error)
	GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]BookingView, error)
}

type bookingQueriesImpl struct {
	bookings shared.BookingStore
}

func NewBookingQueries(bookings shared.BookingStore) BookingQueries {
	return &bookingQueriesImpl{bookings: bookings}
}

func (q *bookingQueriesImpl) GetByPNR(ctx context.Context, pnr string) (*BookingView, error) {
	pnr = strings.ToUpper(strings.TrimSpace(pnr))
	if pnr == "" {
		return nil, errs.ErrBookingNotFound
	}
	b, err := q.bookings.GetByPNR(ctx, pnr)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return NewBookingView(b), nil
}

func (q *bookingQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error) {
	b, err := q.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return NewBookingView(b), nil
}

// ListForUser is newest first.
func (q *bookingQueriesImpl) ListForUser(ctx context.Context, userID uuid.UUID) ([]BookingView, error) {
	list, err := q.bookings.ListForUser(ctx, userID)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	views := make([]BookingView, 0, len(list))
	for _, b := range list {
		views = append(views, *NewBookingView(b))
	}
	return views, nil
}

func mapStoreErr(err error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return errs.Mark(err, errs.ErrBookingNotFound)
	}
	return errs.Mark(err, errs.ErrDatabaseOperationFailed)
}
