//go:build unit || e2e

package notifier_test

import (
	"time"

	"transit-booking/internal/domain/booking"

	"github.com/google/uuid"
)

func sampleEvent() booking.Event {
	return booking.Event{
		Type:        booking.EventConfirmed,
		BookingID:   uuid.New(),
		PNR:         "TRAIN1234567890",
		UserID:      uuid.New(),
		OfferingID:  uuid.New(),
		Status:      booking.StatusConfirmed,
		AmountCents: 160000,
		OccurredAt:  time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC),
	}
}
