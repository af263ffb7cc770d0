//go:build unit || e2e

package builder

import (
	"time"

	reqdto "transit-booking/internal/handler/dto/request"
	"transit-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID            uuid.UUID
	PNR           string
	UserID        uuid.UUID
	OfferingID    uuid.UUID
	Class         string
	Passengers    []reqdto.PassengerRequest
	PaymentMethod string
	PaymentToken  *string
	PromoCode     *string
	TotalCents    int64
	Status        string
	CreatedAt     time.Time
}

func NewBookingBuilder() *BookingBuilder {
	return &BookingBuilder{
		ID:         uuid.New(),
		PNR:        "TRAIN1234567890",
		UserID:     uuid.New(),
		OfferingID: uuid.New(),
		Class:      "sleeper",
		Passengers: []reqdto.PassengerRequest{
			{Name: "Asha Rao", Age: 34, Gender: "female"},
			{Name: "Vikram Rao", Age: 36, Gender: "male"},
		},
		PaymentMethod: "wallet",
		TotalCents:    160000,
		Status:        "confirmed",
		CreatedAt:     time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		OfferingID:    b.OfferingID,
		Class:         b.Class,
		Passengers:    b.Passengers,
		PaymentMethod: b.PaymentMethod,
		PaymentToken:  b.PaymentToken,
		PromoCode:     b.PromoCode,
	}
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	passengers := make([]queries.PassengerView, len(b.Passengers))
	for i, p := range b.Passengers {
		passengers[i] = queries.PassengerView{Name: p.Name, Age: p.Age, Gender: p.Gender}
	}
	dep := b.CreatedAt.Add(72 * time.Hour)
	return &queries.BookingView{
		ID:            b.ID,
		PNR:           b.PNR,
		UserID:        b.UserID,
		OfferingID:    b.OfferingID,
		Kind:          "train",
		Origin:        "New Delhi",
		Destination:   "Mumbai Central",
		DepartureTime: &dep,
		Class:         b.Class,
		Passengers:    passengers,
		Seats:         len(b.Passengers),
		TotalCents:    b.TotalCents,
		PaymentMethod: b.PaymentMethod,
		PaymentRef:    "wallet_" + b.ID.String()[:8],
		Status:        b.Status,
		Stage:         "Confirmed",
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.CreatedAt,
	}
}
