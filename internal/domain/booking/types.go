package booking

import "errors"

var (
	ErrInvalidPassengerData = errors.New("invalid passenger data")
	ErrInvalidTransition    = errors.New("invalid booking state transition")
	ErrNotCancellable       = errors.New("booking cannot be cancelled")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Stage tracks orchestration progress inside a single create attempt.
type Stage string

const (
	StageInitiated         Stage = "initiated"
	StageHoldAcquired      Stage = "hold_acquired"
	StagePaymentInProgress Stage = "payment_in_progress"
	StageConfirmed         Stage = "confirmed"
	StageFailed            Stage = "failed"
)

func (s Stage) IsTerminal() bool {
	return s == StageConfirmed || s == StageFailed
}

type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonInvalidPassengerData  FailureReason = "InvalidPassengerData"
	ReasonInvalidClass          FailureReason = "InvalidClass"
	ReasonInvalidPassengerCount FailureReason = "InvalidPassengerCount"
	ReasonSoldOut               FailureReason = "SoldOut"
	ReasonPaymentDeclined       FailureReason = "PaymentDeclined"
	ReasonPaymentTimedOut       FailureReason = "PaymentTimedOut"
	ReasonHoldExpired           FailureReason = "HoldExpired"
	ReasonCancelled             FailureReason = "Cancelled"
	ReasonInternalError         FailureReason = "InternalError"
)

func (r FailureReason) String() string { return string(r) }

// Retryable reports whether the client may retry with the same idempotency key.
func (r FailureReason) Retryable() bool {
	switch r {
	case ReasonPaymentTimedOut, ReasonHoldExpired, ReasonCancelled, ReasonInternalError:
		return true
	default:
		return false
	}
}
