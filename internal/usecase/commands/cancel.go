package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/infra"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

// CancelBooking moves a confirmed booking to Cancelled, returns its seats to
// the ledger and refunds per the refund policy.
func (o *bookingOrchestrator) CancelBooking(ctx context.Context, pnr string, userID uuid.UUID) (*queries.BookingView, error) {
	b, err := o.bookings.GetByPNR(ctx, strings.ToUpper(strings.TrimSpace(pnr)))
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrBookingNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !b.OwnedBy(userID) {
		return nil, errs.ErrForbidden
	}

	now := o.clock.Now()
	refundDue := o.refunds.RefundFor(b.TotalAmount(), b.Offering().DepartureTime, now)
	if err := b.Cancel(refundDue, now); err != nil {
		return nil, errs.Mark(err, errs.ErrBookingNotCancellable)
	}

	// past this point the cancellation is committed and must run to completion
	ctx = context.WithoutCancel(ctx)
	if err := o.bookings.MarkCancelled(ctx, b); err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			return nil, errs.Mark(err, errs.ErrBookingNotCancellable)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	log := o.logger.With(slog.String("booking_id", b.ID().String()), slog.String("pnr", b.PNR()))
	key := inventory.Key{OfferingID: b.Offering().ID, Class: b.Class()}
	if err := o.ledger.ReleaseCommitted(ctx, key, b.Seats()); err != nil {
		if errors.Is(err, inventory.ErrInvariantViolated) {
			log.Error("releasing committed seats violated ledger consistency", slog.String("error", err.Error()))
		} else {
			log.Error("failed to release committed seats", slog.String("error", err.Error()))
		}
	}

	if tx := o.refundAmount(ctx, b, b.PaymentMethod(), b.PaymentRef(), refundDue, log); tx != nil {
		o.saveTransactions(ctx, log, tx)
	}
	o.publish(ctx, booking.EventCancelled, b)
	log.Info("booking cancelled", slog.Int64("refund_cents", refundDue.Cents()))

	return queries.NewBookingView(b), nil
}
