package commands

//go:generate mockgen -source=booking.go -destination=../../../tests/mock/commands/booking.go -package=commandsmock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/domain/payment"
	"transit-booking/internal/infra"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/pkg/money"
	"transit-booking/internal/usecase/queries"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	createBookingEndpoint = "POST /api/bookings"
	maxPNRAttempts        = 5
)

type CreateBookingInput struct {
	OfferingID uuid.UUID
	Class      string
	// PassengerCount defaults to len(Passengers) when zero.
	PassengerCount int
	Passengers     []booking.PassengerInput
	PaymentMethod  string
	PaymentToken   string
	PromoCode      string
}

type CreateBookingResult struct {
	Booking    *queries.BookingView
	IsReplayed bool
}

// BookingFailedError is returned once a booking record exists in Failed state.
// It unwraps to the errs sentinel for its reason.
type BookingFailedError struct {
	BookingID uuid.UUID
	Reason    booking.FailureReason
	Detail    string
	cause     error
	// paymentPending marks a charge that could not be voided; its outcome is
	// still open at the processor.
	paymentPending bool
}

func (e *BookingFailedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("booking %s failed: %s: %s", e.BookingID, e.Reason, e.Detail)
	}
	return fmt.Sprintf("booking %s failed: %s", e.BookingID, e.Reason)
}

func (e *BookingFailedError) Unwrap() error { return e.cause }

// NewBookingFailedError wraps sentinel so errs.Is matches the failure class.
func NewBookingFailedError(bookingID uuid.UUID, reason booking.FailureReason, detail string, sentinel error) *BookingFailedError {
	return &BookingFailedError{BookingID: bookingID, Reason: reason, Detail: detail, cause: sentinel}
}

type BookingCommands interface {
	CreateBooking(ctx context.Context, in CreateBookingInput, userID, idempotencyKey uuid.UUID) (*CreateBookingResult, error)
	CancelBooking(ctx context.Context, pnr string, userID uuid.UUID) (*queries.BookingView, error)
}

// bookingOrchestrator drives Initiated -> HoldAcquired -> PaymentInProgress ->
// Confirmed|Failed. Once a hold exists every exit path commits or releases it.
type bookingOrchestrator struct {
	pricer         *shared.Pricer
	ledger         shared.InventoryLedger
	gateway        shared.PaymentGateway
	bookings       shared.BookingStore
	transactions   shared.TransactionStore
	idempotency    shared.IdempotencyStore
	notifier       shared.Notifier
	pnrs           booking.PNRGenerator
	refunds        booking.RefundPolicy
	clock          clock.Clock
	logger         *slog.Logger
	paymentTimeout time.Duration
	idempotencyTTL time.Duration
}

func NewBookingCommands(
	pricer *shared.Pricer,
	ledger shared.InventoryLedger,
	gateway shared.PaymentGateway,
	bookings shared.BookingStore,
	transactions shared.TransactionStore,
	idempotency shared.IdempotencyStore,
	notifier shared.Notifier,
	pnrs booking.PNRGenerator,
	refunds booking.RefundPolicy,
	cfg config.Config,
	clk clock.Clock,
	logger *slog.Logger,
) BookingCommands {
	return &bookingOrchestrator{
		pricer:         pricer,
		ledger:         ledger,
		gateway:        gateway,
		bookings:       bookings,
		transactions:   transactions,
		idempotency:    idempotency,
		notifier:       notifier,
		pnrs:           pnrs,
		refunds:        refunds,
		clock:          clk,
		logger:         logger,
		paymentTimeout: cfg.Payment.Timeout,
		idempotencyTTL: cfg.Idempotency.TTL,
	}
}

func (o *bookingOrchestrator) CreateBooking(
	ctx context.Context,
	in CreateBookingInput,
	userID, idempotencyKey uuid.UUID,
) (*CreateBookingResult, error) {
	// cheap checks first: nothing below touches inventory or payment
	count := in.PassengerCount
	if count < 0 {
		return nil, errs.Mark(errs.Newf("passenger count %d", count), errs.ErrInvalidPassengerCount)
	}
	if count == 0 {
		count = len(in.Passengers)
	}
	passengers, err := booking.ParsePassengers(in.Passengers, count)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidPassengerData)
	}

	method, err := payment.ParseMethod(in.PaymentMethod)
	if err != nil || !o.gateway.Supports(method) {
		return nil, errs.Mark(errs.Newf("payment method %q is not supported", in.PaymentMethod), errs.ErrInvalidPaymentMethod)
	}

	priced, err := o.pricer.Price(ctx, shared.PriceRequest{
		OfferingID: in.OfferingID,
		Class:      in.Class,
		Passengers: count,
		PromoCode:  in.PromoCode,
	})
	if err != nil {
		return nil, err
	}

	if idempotencyKey != uuid.Nil {
		replayed, err := o.claimIdempotencyKey(ctx, idempotencyKey, userID, requestHash(in))
		if err != nil {
			return nil, err
		}
		if replayed != nil {
			return &CreateBookingResult{Booking: replayed, IsReplayed: true}, nil
		}
	}

	b, err := o.book(ctx, priced, passengers, method, in.PaymentToken, userID)

	if idempotencyKey != uuid.Nil {
		o.settleIdempotencyKey(ctx, idempotencyKey, userID, b, err)
	}
	if err != nil {
		return nil, err
	}
	return &CreateBookingResult{Booking: queries.NewBookingView(b)}, nil
}

func (o *bookingOrchestrator) claimIdempotencyKey(
	ctx context.Context,
	key, userID uuid.UUID,
	hash string,
) (*queries.BookingView, error) {
	rec := shared.IdempotencyRecord{
		Key:         key,
		UserID:      userID,
		Endpoint:    createBookingEndpoint,
		Status:      shared.IdempotencyStatusProcessing,
		RequestHash: hash,
		ExpiresAt:   o.clock.Now().Add(o.idempotencyTTL),
	}
	inserted, err := o.idempotency.TryInsert(ctx, rec)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if inserted {
		return nil, nil
	}

	existing, err := o.idempotency.Get(ctx, key, userID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// released by a concurrent attempt between the two calls
			return nil, errs.ErrIdempotencyInProgress
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if existing.RequestHash != hash {
		return nil, errs.ErrIdempotencyKeyReused
	}

	switch existing.Status {
	case shared.IdempotencyStatusCompleted:
		if existing.ResultBookingID == nil {
			return nil, errs.Mark(errs.New("completed idempotency key has no booking"), errs.ErrInternal)
		}
		b, err := o.bookings.GetByID(ctx, *existing.ResultBookingID)
		if err != nil {
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return queries.NewBookingView(b), nil
	case shared.IdempotencyStatusProcessing:
		return nil, errs.ErrIdempotencyInProgress
	default:
		return nil, errs.Mark(errs.Newf("invalid idempotency key status %q", existing.Status), errs.ErrInternal)
	}
}

// settleIdempotencyKey completes the key for a confirmed booking and releases
// it otherwise, so a retry with the same key makes a fresh attempt.
func (o *bookingOrchestrator) settleIdempotencyKey(ctx context.Context, key, userID uuid.UUID, b *booking.Booking, bookErr error) {
	ctx = context.WithoutCancel(ctx)
	var failed *BookingFailedError
	if errors.As(bookErr, &failed) && failed.paymentPending {
		// a retry would send a second charge while the first may still settle
		o.logger.Warn("idempotency key kept until the pending charge is reconciled",
			slog.String("idempotency_key", key.String()),
			slog.String("booking_id", failed.BookingID.String()))
		return
	}
	if bookErr == nil && b != nil {
		if err := o.idempotency.UpdateStatusCompleted(ctx, key, userID, b.ID()); err != nil {
			o.logger.Error("failed to complete idempotency key",
				slog.String("idempotency_key", key.String()),
				slog.String("booking_id", b.ID().String()),
				slog.String("error", err.Error()))
		}
		return
	}
	if err := o.idempotency.Release(ctx, key, userID); err != nil {
		o.logger.Warn("failed to release idempotency key",
			slog.String("idempotency_key", key.String()),
			slog.String("error", err.Error()))
	}
}

func (o *bookingOrchestrator) book(
	ctx context.Context,
	priced *shared.Priced,
	passengers []booking.Passenger,
	method payment.Method,
	paymentToken string,
	userID uuid.UUID,
) (*booking.Booking, error) {
	off := priced.Offering
	promoCode := ""
	if priced.Promo != nil {
		promoCode = priced.Promo.Code()
	}
	b := booking.NewBooking(userID, offeringRef(off), priced.Quote.Class, passengers,
		priced.Quote.Seats, priced.Quote.Total, promoCode, method, o.clock.Now())
	log := o.logger.With(
		slog.String("booking_id", b.ID().String()),
		slog.String("offering_id", off.ID().String()),
		slog.String("class", priced.Quote.Class.String()),
	)

	key := inventory.Key{OfferingID: off.ID(), Class: priced.Quote.Class}
	hold, err := o.ledger.Reserve(ctx, key, priced.Quote.Seats)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrInsufficientCapacity):
			return o.fail(ctx, b, booking.ReasonSoldOut, errs.ErrSoldOut, "")
		case errors.Is(err, context.Canceled):
			return nil, errs.Mark(err, errs.ErrRequestCanceled)
		case errors.Is(err, inventory.ErrInvariantViolated), errors.Is(err, inventory.ErrUnknownInventory):
			log.Error("inventory reserve violated ledger consistency", slog.String("error", err.Error()))
			return nil, errs.Mark(err, errs.ErrInventoryInconsistent)
		default:
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
	}
	log = log.With(slog.String("hold_id", hold.ID.String()))

	// the hold is released on every path that does not commit it, panics included
	held := true
	defer func() {
		if held {
			o.releaseHold(ctx, hold, log)
		}
	}()

	if err := b.AcquireHold(hold.ID, o.clock.Now()); err != nil {
		return nil, errs.Mark(err, errs.ErrInternal)
	}

	// a client that went away before the charge was sent abandons the attempt
	if ctx.Err() != nil {
		o.releaseHold(ctx, hold, log)
		held = false
		return o.fail(ctx, b, booking.ReasonCancelled, errs.ErrRequestCanceled, "client cancelled before payment")
	}

	if err := b.StartPayment(o.clock.Now()); err != nil {
		return nil, errs.Mark(err, errs.ErrInternal)
	}
	charge, res := o.charge(ctx, b, method, paymentToken, off)

	if !res.OK() {
		o.releaseHold(ctx, hold, log)
		held = false
		if res.Status == payment.StatusTimedOut {
			if charge.Reference() == "" {
				return o.fail(ctx, b, booking.ReasonPaymentTimedOut, errs.ErrPaymentTimedOut, res.Reason, charge)
			}
			void := o.void(ctx, b, charge, log)
			failed, err := o.fail(ctx, b, booking.ReasonPaymentTimedOut, errs.ErrPaymentTimedOut, res.Reason, charge, void)
			var failedErr *BookingFailedError
			if void.Status() != payment.StatusSucceeded && errors.As(err, &failedErr) {
				failedErr.paymentPending = true
			}
			return failed, err
		}
		return o.fail(ctx, b, booking.ReasonPaymentDeclined, errs.ErrPaymentDeclined, res.Reason, charge)
	}
	b.RecordPaymentRef(res.Reference)

	// the charge was already sent: wait for it, then compensate
	if ctx.Err() != nil {
		o.releaseHold(ctx, hold, log)
		held = false
		refund := o.refund(ctx, b, charge, log)
		return o.fail(ctx, b, booking.ReasonCancelled, errs.ErrRequestCanceled, "client cancelled during payment", charge, refund)
	}

	if err := o.ledger.Commit(context.WithoutCancel(ctx), hold); err != nil {
		if errors.Is(err, inventory.ErrHoldExpired) {
			// an expired hold has already been returned to the pool
			held = false
			refund := o.refund(ctx, b, charge, log)
			return o.fail(ctx, b, booking.ReasonHoldExpired, errs.ErrHoldExpired, "hold expired before commit", charge, refund)
		}
		if errors.Is(err, inventory.ErrInvariantViolated) || errors.Is(err, inventory.ErrHoldNotFound) {
			log.Error("inventory commit violated ledger consistency", slog.String("error", err.Error()))
		} else {
			log.Error("inventory commit failed", slog.String("error", err.Error()))
		}
		refund := o.refund(ctx, b, charge, log)
		_, failErr := o.fail(ctx, b, booking.ReasonInternalError, errs.ErrInventoryInconsistent, "", charge, refund)
		return nil, failErr
	}
	held = false

	confirmed, err := o.confirm(ctx, b, res.Reference, off.Kind())
	if err != nil {
		log.Error("failed to persist confirmed booking", slog.String("error", err.Error()))
		if relErr := o.ledger.ReleaseCommitted(context.WithoutCancel(ctx), key, b.Seats()); relErr != nil {
			log.Error("failed to release committed seats", slog.String("error", relErr.Error()))
		}
		refund := o.refund(ctx, b, charge, log)
		_, failErr := o.fail(ctx, b, booking.ReasonInternalError, errs.ErrInternal, "", charge, refund)
		return nil, failErr
	}

	o.saveTransactions(ctx, log, charge)
	o.publish(ctx, booking.EventConfirmed, confirmed)
	log.Info("booking confirmed", slog.String("pnr", confirmed.PNR()))
	return confirmed, nil
}

// charge runs under its own deadline and ignores client cancellation, so a
// charge that has been sent always yields a terminal result.
func (o *bookingOrchestrator) charge(
	ctx context.Context,
	b *booking.Booking,
	method payment.Method,
	token string,
	off *offering.Offering,
) (*payment.Transaction, payment.Result) {
	tx := payment.NewTransaction(b.ID(), payment.KindCharge, method, b.TotalAmount(), o.clock.Now())

	var res payment.Result
	if b.TotalAmount().IsZero() {
		res = payment.Succeeded("no_charge_" + tx.ID().String())
	} else {
		payCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.paymentTimeout)
		var err error
		res, err = o.gateway.Charge(payCtx, payment.ChargeRequest{
			TransactionID: tx.ID(),
			BookingID:     b.ID(),
			UserID:        b.UserID(),
			Method:        method,
			Amount:        b.TotalAmount(),
			Description:   fmt.Sprintf("%s %s -> %s", off.Name(), off.Origin(), off.Destination()),
			Token:         token,
		})
		cancel()
		switch {
		case err != nil:
			res = payment.Declined(err.Error())
		case !res.Status.IsTerminal():
			res = payment.TimedOut().WithReference(res.Reference)
		}
	}

	if err := tx.Complete(res, o.clock.Now()); err != nil {
		o.logger.Error("failed to complete charge transaction", slog.String("error", err.Error()))
	}
	return tx, res
}

func (o *bookingOrchestrator) confirm(ctx context.Context, b *booking.Booking, paymentRef string, kind offering.Kind) (*booking.Booking, error) {
	ctx = context.WithoutCancel(ctx)
	var lastErr error
	for range maxPNRAttempts {
		pnr, err := o.pnrs.Generate(kind)
		if err != nil {
			return nil, err
		}
		candidate := b.Clone()
		if err := candidate.Confirm(pnr, paymentRef, o.clock.Now()); err != nil {
			return nil, err
		}
		err = o.bookings.Save(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if !infra.IsKind(err, infra.KindDuplicateKey) {
			return nil, err
		}
		lastErr = err
	}
	return nil, errs.Wrapf(lastErr, "no unique pnr after %d attempts", maxPNRAttempts)
}

// refund returns a compensated charge in full.
func (o *bookingOrchestrator) refund(ctx context.Context, b *booking.Booking, charge *payment.Transaction, log *slog.Logger) *payment.Transaction {
	return o.refundAmount(ctx, b, charge.Method(), charge.Reference(), charge.Amount(), log)
}

// refundAmount never fails the caller; a refund the processor rejects is
// recorded as a declined transaction and logged for reconciliation.
func (o *bookingOrchestrator) refundAmount(
	ctx context.Context,
	b *booking.Booking,
	method payment.Method,
	chargeRef string,
	amount money.Money,
	log *slog.Logger,
) *payment.Transaction {
	if amount.IsZero() {
		return nil
	}
	tx := payment.NewTransaction(b.ID(), payment.KindRefund, method, amount, o.clock.Now())

	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.paymentTimeout)
	res, err := o.gateway.Refund(refundCtx, payment.RefundRequest{
		TransactionID:   tx.ID(),
		BookingID:       b.ID(),
		UserID:          b.UserID(),
		Method:          method,
		Amount:          amount,
		ChargeReference: chargeRef,
	})
	cancel()
	switch {
	case err != nil:
		res = payment.Declined(err.Error())
	case !res.Status.IsTerminal():
		res = payment.TimedOut()
	}
	if !res.OK() {
		log.Error("refund not completed, manual reconciliation required",
			slog.String("transaction_id", tx.ID().String()),
			slog.Int64("amount_cents", amount.Cents()),
			slog.String("status", string(res.Status)),
			slog.String("reason", res.Reason))
	}

	if err := tx.Complete(res, o.clock.Now()); err != nil {
		log.Error("failed to complete refund transaction", slog.String("error", err.Error()))
	}
	return tx
}

// void compensates a charge left pending at the processor. Anything short of
// a confirmed cancel or refund is logged for reconciliation.
func (o *bookingOrchestrator) void(ctx context.Context, b *booking.Booking, charge *payment.Transaction, log *slog.Logger) *payment.Transaction {
	tx := payment.NewTransaction(b.ID(), payment.KindVoid, charge.Method(), charge.Amount(), o.clock.Now())

	voidCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.paymentTimeout)
	res, err := o.gateway.Void(voidCtx, payment.RefundRequest{
		TransactionID:   tx.ID(),
		BookingID:       b.ID(),
		UserID:          b.UserID(),
		Method:          charge.Method(),
		Amount:          charge.Amount(),
		ChargeReference: charge.Reference(),
	})
	cancel()
	switch {
	case err != nil:
		res = payment.Declined(err.Error())
	case !res.Status.IsTerminal():
		res = payment.TimedOut().WithReference(res.Reference)
	}
	if !res.OK() {
		log.Error("pending charge not voided, manual reconciliation required",
			slog.String("transaction_id", tx.ID().String()),
			slog.String("charge_reference", charge.Reference()),
			slog.Int64("amount_cents", charge.Amount().Cents()),
			slog.String("status", string(res.Status)),
			slog.String("reason", res.Reason))
	}

	if err := tx.Complete(res, o.clock.Now()); err != nil {
		log.Error("failed to complete void transaction", slog.String("error", err.Error()))
	}
	return tx
}

func (o *bookingOrchestrator) releaseHold(ctx context.Context, hold inventory.Hold, log *slog.Logger) {
	if err := o.ledger.Release(context.WithoutCancel(ctx), hold); err != nil {
		if errors.Is(err, inventory.ErrInvariantViolated) {
			log.Error("inventory release violated ledger consistency", slog.String("error", err.Error()))
			return
		}
		log.Error("failed to release hold", slog.String("error", err.Error()))
	}
}

// fail persists the booking as Failed for audit and reports the reason.
func (o *bookingOrchestrator) fail(
	ctx context.Context,
	b *booking.Booking,
	reason booking.FailureReason,
	sentinel error,
	detail string,
	txs ...*payment.Transaction,
) (*booking.Booking, error) {
	ctx = context.WithoutCancel(ctx)
	log := o.logger.With(slog.String("booking_id", b.ID().String()), slog.String("reason", reason.String()))

	if err := b.Fail(reason, o.clock.Now()); err != nil {
		log.Error("invalid failure transition", slog.String("stage", string(b.Stage())))
	}
	if err := o.bookings.Save(ctx, b); err != nil {
		log.Error("failed to persist failed booking", slog.String("error", err.Error()))
	} else {
		o.saveTransactions(ctx, log, txs...)
	}
	o.publish(ctx, booking.EventFailed, b)
	log.Info("booking failed", slog.String("detail", detail))

	return nil, NewBookingFailedError(b.ID(), reason, detail, sentinel)
}

func (o *bookingOrchestrator) saveTransactions(ctx context.Context, log *slog.Logger, txs ...*payment.Transaction) {
	ctx = context.WithoutCancel(ctx)
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		if err := o.transactions.Save(ctx, tx); err != nil {
			log.Error("failed to persist payment transaction",
				slog.String("transaction_id", tx.ID().String()),
				slog.String("kind", string(tx.Kind())),
				slog.String("error", err.Error()))
		}
	}
}

func (o *bookingOrchestrator) publish(ctx context.Context, t booking.EventType, b *booking.Booking) {
	if err := o.notifier.Publish(context.WithoutCancel(ctx), booking.NewEvent(t, b, o.clock.Now())); err != nil {
		o.logger.Warn("failed to publish booking event",
			slog.String("type", string(t)),
			slog.String("booking_id", b.ID().String()),
			slog.String("error", err.Error()))
	}
}

func offeringRef(o *offering.Offering) booking.OfferingRef {
	return booking.OfferingRef{
		ID:            o.ID(),
		Kind:          o.Kind(),
		Origin:        o.Origin(),
		Destination:   o.Destination(),
		DepartureTime: o.DepartureTime(),
	}
}

func requestHash(in CreateBookingInput) string {
	data, _ := json.Marshal(in)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
