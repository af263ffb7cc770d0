package shared

import (
	"time"

	"transit-booking/internal/domain/offering"

	"github.com/google/uuid"
)

type SearchCriteria struct {
	Origin      string
	Destination string
	// Date is midnight of the requested day in the search time zone.
	Date time.Time
	Kind *offering.Kind
}

const (
	IdempotencyStatusProcessing = "processing"
	IdempotencyStatusCompleted  = "completed"
)

type IdempotencyRecord struct {
	Key             uuid.UUID
	UserID          uuid.UUID
	Endpoint        string
	Status          string
	RequestHash     string
	ResultBookingID *uuid.UUID
	ExpiresAt       time.Time
}
