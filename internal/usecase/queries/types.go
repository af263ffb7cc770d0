package queries

import (
	"time"

	"transit-booking/internal/domain/booking"

	"github.com/google/uuid"
)

// OfferingView is one search result with live seat availability per class.
type OfferingView struct {
	ID              uuid.UUID   `json:"id"`
	Kind            string      `json:"kind"`
	Name            string      `json:"name"`
	Operator        string      `json:"operator"`
	Origin          string      `json:"origin"`
	Destination     string      `json:"destination"`
	DepartureTime   *time.Time  `json:"departure_time,omitempty"`
	ArrivalTime     *time.Time  `json:"arrival_time,omitempty"`
	LowestFareCents int64       `json:"lowest_fare_cents"`
	MaxPassengers   int         `json:"max_passengers,omitempty"`
	Classes         []ClassView `json:"classes"`
}

type ClassView struct {
	Class     string `json:"class"`
	FareCents int64  `json:"fare_cents"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}

type QuoteView struct {
	OfferingID    uuid.UUID `json:"offering_id"`
	Kind          string    `json:"kind"`
	Class         string    `json:"class"`
	Passengers    int       `json:"passengers"`
	Seats         int       `json:"seats"`
	BaseCents     int64     `json:"base_cents"`
	DiscountCents int64     `json:"discount_cents"`
	TotalCents    int64     `json:"total_cents"`
	PromoCode     *string   `json:"promo_code,omitempty"`
}

type PassengerView struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type BookingView struct {
	ID            uuid.UUID       `json:"id"`
	PNR           string          `json:"pnr,omitempty"`
	UserID        uuid.UUID       `json:"user_id"`
	OfferingID    uuid.UUID       `json:"offering_id"`
	Kind          string          `json:"kind"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	DepartureTime *time.Time      `json:"departure_time,omitempty"`
	Class         string          `json:"class"`
	Passengers    []PassengerView `json:"passengers"`
	Seats         int             `json:"seats"`
	TotalCents    int64           `json:"total_cents"`
	PromoCode     string          `json:"promo_code,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	PaymentRef    string          `json:"payment_ref,omitempty"`
	Status        string          `json:"status"`
	Stage         string          `json:"stage"`
	FailureReason string          `json:"failure_reason,omitempty"`
	RefundCents   int64           `json:"refund_cents"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
}

type WalletView struct {
	UserID       uuid.UUID `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	Currency     string    `json:"currency"`
}

func NewBookingView(b *booking.Booking) *BookingView {
	ps := b.Passengers()
	passengers := make([]PassengerView, len(ps))
	for i, p := range ps {
		passengers[i] = PassengerView{Name: p.Name, Age: p.Age, Gender: string(p.Gender)}
	}
	ref := b.Offering()
	return &BookingView{
		ID:            b.ID(),
		PNR:           b.PNR(),
		UserID:        b.UserID(),
		OfferingID:    ref.ID,
		Kind:          ref.Kind.String(),
		Origin:        ref.Origin,
		Destination:   ref.Destination,
		DepartureTime: ref.DepartureTime,
		Class:         b.Class().String(),
		Passengers:    passengers,
		Seats:         b.Seats(),
		TotalCents:    b.TotalAmount().Cents(),
		PromoCode:     b.PromoCode(),
		PaymentMethod: b.PaymentMethod().String(),
		PaymentRef:    b.PaymentRef(),
		Status:        b.Status().String(),
		Stage:         string(b.Stage()),
		FailureReason: b.FailureReason().String(),
		RefundCents:   b.RefundAmount().Cents(),
		CreatedAt:     b.CreatedAt(),
		UpdatedAt:     b.UpdatedAt(),
		CancelledAt:   b.CancelledAt(),
	}
}
