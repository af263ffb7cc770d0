package booking

import (
	"time"

	"transit-booking/internal/domain/offering"
	"transit-booking/internal/domain/payment"
	"transit-booking/internal/pkg/money"

	"github.com/google/uuid"
)

// Snapshot of the offering taken at creation; refunds and PNRs depend on it
// even if the catalog entry later changes.
type OfferingRef struct {
	ID            uuid.UUID
	Kind          offering.Kind
	Origin        string
	Destination   string
	DepartureTime *time.Time
}

type Booking struct {
	id            uuid.UUID
	pnr           string
	userID        uuid.UUID
	offering      OfferingRef
	class         offering.Class
	passengers    []Passenger
	seats         int
	totalAmount   money.Money
	promoCode     string
	paymentMethod payment.Method
	paymentRef    string
	holdID        uuid.UUID
	status        Status
	stage         Stage
	failureReason FailureReason
	refundAmount  money.Money
	createdAt     time.Time
	updatedAt     time.Time
	cancelledAt   *time.Time
}

func NewBooking(
	userID uuid.UUID,
	ref OfferingRef,
	class offering.Class,
	passengers []Passenger,
	seats int,
	total money.Money,
	promoCode string,
	method payment.Method,
	now time.Time,
) *Booking {
	ps := make([]Passenger, len(passengers))
	copy(ps, passengers)
	return &Booking{
		id:            uuid.New(),
		userID:        userID,
		offering:      ref,
		class:         class,
		passengers:    ps,
		seats:         seats,
		totalAmount:   total,
		promoCode:     promoCode,
		paymentMethod: method,
		status:        StatusPending,
		stage:         StageInitiated,
		createdAt:     now,
		updatedAt:     now,
	}
}

type ReconstructParams struct {
	ID            uuid.UUID
	PNR           string
	UserID        uuid.UUID
	Offering      OfferingRef
	Class         offering.Class
	Passengers    []Passenger
	Seats         int
	TotalAmount   money.Money
	PromoCode     string
	PaymentMethod payment.Method
	PaymentRef    string
	HoldID        uuid.UUID
	Status        Status
	Stage         Stage
	FailureReason FailureReason
	RefundAmount  money.Money
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CancelledAt   *time.Time
}

func ReconstructBooking(p ReconstructParams) *Booking {
	return &Booking{
		id:            p.ID,
		pnr:           p.PNR,
		userID:        p.UserID,
		offering:      p.Offering,
		class:         p.Class,
		passengers:    p.Passengers,
		seats:         p.Seats,
		totalAmount:   p.TotalAmount,
		promoCode:     p.PromoCode,
		paymentMethod: p.PaymentMethod,
		paymentRef:    p.PaymentRef,
		holdID:        p.HoldID,
		status:        p.Status,
		stage:         p.Stage,
		failureReason: p.FailureReason,
		refundAmount:  p.RefundAmount,
		createdAt:     p.CreatedAt,
		updatedAt:     p.UpdatedAt,
		cancelledAt:   p.CancelledAt,
	}
}

func (b *Booking) AcquireHold(holdID uuid.UUID, now time.Time) error {
	if b.stage != StageInitiated {
		return ErrInvalidTransition
	}
	b.holdID = holdID
	b.stage = StageHoldAcquired
	b.updatedAt = now
	return nil
}

func (b *Booking) StartPayment(now time.Time) error {
	if b.stage != StageHoldAcquired {
		return ErrInvalidTransition
	}
	b.stage = StagePaymentInProgress
	b.updatedAt = now
	return nil
}

func (b *Booking) Confirm(pnr, paymentRef string, now time.Time) error {
	if b.stage != StagePaymentInProgress || pnr == "" {
		return ErrInvalidTransition
	}
	b.pnr = pnr
	b.paymentRef = paymentRef
	b.stage = StageConfirmed
	b.status = StatusConfirmed
	b.updatedAt = now
	return nil
}

// RecordPaymentRef keeps the processor reference of a charge that was later compensated.
func (b *Booking) RecordPaymentRef(ref string) {
	b.paymentRef = ref
}

func (b *Booking) Fail(reason FailureReason, now time.Time) error {
	if b.stage.IsTerminal() {
		return ErrInvalidTransition
	}
	b.stage = StageFailed
	b.status = StatusFailed
	b.failureReason = reason
	b.updatedAt = now
	return nil
}

func (b *Booking) Cancel(refund money.Money, now time.Time) error {
	if b.status != StatusConfirmed {
		return ErrNotCancellable
	}
	b.status = StatusCancelled
	b.refundAmount = refund
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

func (b *Booking) IsConfirmed() bool { return b.status == StatusConfirmed }

func (b *Booking) OwnedBy(userID uuid.UUID) bool { return b.userID == userID }

func (b *Booking) ID() uuid.UUID                 { return b.id }
func (b *Booking) PNR() string                   { return b.pnr }
func (b *Booking) UserID() uuid.UUID             { return b.userID }
func (b *Booking) Offering() OfferingRef         { return b.offering }
func (b *Booking) Class() offering.Class         { return b.class }
func (b *Booking) Seats() int                    { return b.seats }
func (b *Booking) TotalAmount() money.Money      { return b.totalAmount }
func (b *Booking) PromoCode() string             { return b.promoCode }
func (b *Booking) PaymentMethod() payment.Method { return b.paymentMethod }
func (b *Booking) PaymentRef() string            { return b.paymentRef }
func (b *Booking) HoldID() uuid.UUID             { return b.holdID }
func (b *Booking) Status() Status                { return b.status }
func (b *Booking) Stage() Stage                  { return b.stage }
func (b *Booking) FailureReason() FailureReason  { return b.failureReason }
func (b *Booking) RefundAmount() money.Money     { return b.refundAmount }
func (b *Booking) CreatedAt() time.Time          { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time          { return b.updatedAt }
func (b *Booking) CancelledAt() *time.Time       { return b.cancelledAt }

func (b *Booking) Passengers() []Passenger {
	out := make([]Passenger, len(b.passengers))
	copy(out, b.passengers)
	return out
}

// Clone returns an independent copy for stores that hand out read-only views.
func (b *Booking) Clone() *Booking {
	c := *b
	c.passengers = b.Passengers()
	if b.cancelledAt != nil {
		t := *b.cancelledAt
		c.cancelledAt = &t
	}
	if b.offering.DepartureTime != nil {
		t := *b.offering.DepartureTime
		c.offering.DepartureTime = &t
	}
	return &c
}
