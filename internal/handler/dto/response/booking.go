package response

import (
	"time"

	"transit-booking/internal/pkg/money"
	"transit-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type ClassResponse struct {
	Class     string  `json:"class"`
	FareCents int64   `json:"fareCents"`
	Fare      float64 `json:"fare"`
	Capacity  int     `json:"capacity"`
	Available int     `json:"available"`
}

type OfferingResponse struct {
	ID              uuid.UUID       `json:"id"`
	Kind            string          `json:"kind"`
	Name            string          `json:"name"`
	Operator        string          `json:"operator"`
	Origin          string          `json:"origin"`
	Destination     string          `json:"destination"`
	DepartureTime   *time.Time      `json:"departureTime,omitempty"`
	ArrivalTime     *time.Time      `json:"arrivalTime,omitempty"`
	LowestFareCents int64           `json:"lowestFareCents"`
	MaxPassengers   int             `json:"maxPassengers,omitempty"`
	Classes         []ClassResponse `json:"classes"`
}

type SearchResponse struct {
	Offerings []OfferingResponse `json:"offerings"`
}

type QuoteResponse struct {
	OfferingID    uuid.UUID `json:"offeringId"`
	Kind          string    `json:"kind"`
	Class         string    `json:"class"`
	Passengers    int       `json:"passengers"`
	Seats         int       `json:"seats"`
	BaseCents     int64     `json:"baseCents"`
	DiscountCents int64     `json:"discountCents"`
	TotalCents    int64     `json:"totalCents"`
	TotalAmount   float64   `json:"totalAmount"`
	PromoCode     *string   `json:"promoCode,omitempty"`
}

type PassengerResponse struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type BookingResponse struct {
	ID            uuid.UUID           `json:"id"`
	PNR           string              `json:"pnr,omitempty"`
	UserID        uuid.UUID           `json:"userId"`
	OfferingID    uuid.UUID           `json:"offeringId"`
	Kind          string              `json:"kind"`
	Origin        string              `json:"origin"`
	Destination   string              `json:"destination"`
	DepartureTime *time.Time          `json:"departureTime,omitempty"`
	Class         string              `json:"class"`
	Passengers    []PassengerResponse `json:"passengers"`
	Seats         int                 `json:"seats"`
	TotalCents    int64               `json:"totalCents"`
	TotalAmount   float64             `json:"totalAmount"`
	PromoCode     string              `json:"promoCode,omitempty"`
	PaymentMethod string              `json:"paymentMethod"`
	PaymentRef    string              `json:"paymentRef,omitempty"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	FailureReason string              `json:"failureReason,omitempty"`
	RefundCents   int64               `json:"refundCents"`
	RefundAmount  float64             `json:"refundAmount"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	CancelledAt   *time.Time          `json:"cancelledAt,omitempty"`
}

// CreateBookingResponse is the confirmation page payload.
type CreateBookingResponse struct {
	BookingID   uuid.UUID `json:"bookingId"`
	PNR         string    `json:"pnr"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"totalAmount"`
	Replayed    bool      `json:"replayed,omitempty"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

type WalletResponse struct {
	UserID       uuid.UUID `json:"userId"`
	BalanceCents int64     `json:"balanceCents"`
	Balance      float64   `json:"balance"`
	Currency     string    `json:"currency"`
}

func FromOfferingViews(views []queries.OfferingView) (*SearchResponse, error) {
	offerings := make([]OfferingResponse, 0, len(views))
	if err := copier.Copy(&offerings, &views); err != nil {
		return nil, err
	}
	for i := range offerings {
		for j := range offerings[i].Classes {
			cls := &offerings[i].Classes[j]
			cls.Fare = money.FromCents(cls.FareCents).Major()
		}
	}
	return &SearchResponse{Offerings: offerings}, nil
}

func FromQuoteView(v *queries.QuoteView) (*QuoteResponse, error) {
	var resp QuoteResponse
	if err := copier.Copy(&resp, v); err != nil {
		return nil, err
	}
	resp.TotalAmount = money.FromCents(v.TotalCents).Major()
	return &resp, nil
}

func FromBookingView(v *queries.BookingView) (*BookingResponse, error) {
	var resp BookingResponse
	if err := copier.Copy(&resp, v); err != nil {
		return nil, err
	}
	resp.TotalAmount = money.FromCents(v.TotalCents).Major()
	resp.RefundAmount = money.FromCents(v.RefundCents).Major()
	return &resp, nil
}

func FromBookingViews(views []queries.BookingView) (*BookingListResponse, error) {
	bookings := make([]BookingResponse, 0, len(views))
	for i := range views {
		resp, err := FromBookingView(&views[i])
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *resp)
	}
	return &BookingListResponse{Bookings: bookings}, nil
}

func FromCreateResult(v *queries.BookingView, replayed bool) *CreateBookingResponse {
	return &CreateBookingResponse{
		BookingID:   v.ID,
		PNR:         v.PNR,
		Status:      v.Status,
		TotalAmount: money.FromCents(v.TotalCents).Major(),
		Replayed:    replayed,
	}
}

func FromWalletView(v *queries.WalletView) *WalletResponse {
	return &WalletResponse{
		UserID:       v.UserID,
		BalanceCents: v.BalanceCents,
		Balance:      money.FromCents(v.BalanceCents).Major(),
		Currency:     v.Currency,
	}
}
