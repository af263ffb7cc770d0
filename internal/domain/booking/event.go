package booking

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventConfirmed EventType = "booking.confirmed"
	EventFailed    EventType = "booking.failed"
	EventCancelled EventType = "booking.cancelled"
)

type Event struct {
	Type        EventType `json:"type"`
	BookingID   uuid.UUID `json:"bookingId"`
	PNR         string    `json:"pnr,omitempty"`
	UserID      uuid.UUID `json:"userId"`
	OfferingID  uuid.UUID `json:"offeringId"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	AmountCents int64     `json:"amountCents"`
	RefundCents int64     `json:"refundCents,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewEvent(t EventType, b *Booking, now time.Time) Event {
	return Event{
		Type:        t,
		BookingID:   b.ID(),
		PNR:         b.PNR(),
		UserID:      b.UserID(),
		OfferingID:  b.Offering().ID,
		Status:      b.Status(),
		Reason:      b.FailureReason().String(),
		AmountCents: b.TotalAmount().Cents(),
		RefundCents: b.RefundAmount().Cents(),
		OccurredAt:  now,
	}
}
