package request

import (
	"strings"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/usecase/commands"
	"transit-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type SearchRequest struct {
	Origin      string `json:"origin" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	Date        string `json:"date" binding:"required"`
	Kind        string `json:"kind,omitempty"`
}

func (r SearchRequest) ToInput() queries.SearchInput {
	return queries.SearchInput{
		Origin:      strings.TrimSpace(r.Origin),
		Destination: strings.TrimSpace(r.Destination),
		Date:        strings.TrimSpace(r.Date),
		Kind:        strings.ToLower(strings.TrimSpace(r.Kind)),
	}
}

type QuoteRequest struct {
	OfferingID uuid.UUID `json:"offeringId" binding:"required"`
	Class      string    `json:"class" binding:"required"`
	Passengers int       `json:"passengers"`
	PromoCode  *string   `json:"promoCode,omitempty"`
}

func (r QuoteRequest) ToInput() queries.QuoteInput {
	return queries.QuoteInput{
		OfferingID: r.OfferingID,
		Class:      strings.TrimSpace(r.Class),
		Passengers: r.Passengers,
		PromoCode:  trimmed(r.PromoCode),
	}
}

type PassengerRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type CreateBookingRequest struct {
	OfferingID     uuid.UUID          `json:"offeringId" binding:"required"`
	Class          string             `json:"class" binding:"required"`
	PassengerCount int                `json:"passengerCount,omitempty"`
	Passengers     []PassengerRequest `json:"passengers"`
	PaymentMethod  string             `json:"paymentMethod" binding:"required"`
	PaymentToken   *string            `json:"paymentToken,omitempty"`
	PromoCode      *string            `json:"promoCode,omitempty"`
}

// ToInput leaves passenger validation to the domain so the failure maps to InvalidPassengerData.
func (r CreateBookingRequest) ToInput() commands.CreateBookingInput {
	passengers := make([]booking.PassengerInput, len(r.Passengers))
	for i, p := range r.Passengers {
		passengers[i] = booking.PassengerInput{
			Name:   p.Name,
			Age:    p.Age,
			Gender: p.Gender,
		}
	}
	return commands.CreateBookingInput{
		OfferingID:     r.OfferingID,
		Class:          strings.TrimSpace(r.Class),
		PassengerCount: r.PassengerCount,
		Passengers:     passengers,
		PaymentMethod:  strings.ToLower(strings.TrimSpace(r.PaymentMethod)),
		PaymentToken:   trimmed(r.PaymentToken),
		PromoCode:      trimmed(r.PromoCode),
	}
}

type TopUpRequest struct {
	AmountCents int64 `json:"amountCents" binding:"required"`
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
