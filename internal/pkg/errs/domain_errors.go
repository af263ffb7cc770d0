package errs

import "errors"

// Usecase-level sentinels shared by the command and query sides.
var (
	// Catalog errors
	ErrOfferingNotFound = errors.New("offering not found")
	ErrPromoNotFound    = errors.New("promo not found")

	// Booking errors
	ErrBookingNotFound       = errors.New("booking not found")
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled")
	ErrForbidden             = errors.New("forbidden")
	ErrUnauthorized          = errors.New("unauthorized")

	// Idempotency errors
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyInProgress  = errors.New("idempotency in progress")
	ErrIdempotencyKeyReused   = errors.New("idempotency key reused with a different request")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
	ErrInternal                = errors.New("internal error")
)

// Booking pipeline errors surfaced to clients with a machine-readable reason.
var (
	// Input errors
	ErrInvalidPassengerData  = errors.New("invalid passenger data")
	ErrInvalidClass          = errors.New("invalid booking class")
	ErrInvalidPassengerCount = errors.New("invalid passenger count")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrInvalidPromo          = errors.New("invalid promo")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidSearchCriteria = errors.New("invalid search criteria")

	// Capacity and payment outcomes
	ErrSoldOut         = errors.New("sold out")
	ErrPaymentDeclined = errors.New("payment declined")
	ErrPaymentTimedOut = errors.New("payment timed out")
	ErrHoldExpired     = errors.New("hold expired")
	ErrRequestCanceled = errors.New("booking request canceled by client")

	// Ledger consistency: a bug, never a user error
	ErrInventoryInconsistent = errors.New("inventory consistency violation")
)
