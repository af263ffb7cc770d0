package payment

import (
	"errors"
	"strings"
	"time"

	"transit-booking/internal/pkg/money"

	"github.com/google/uuid"
)

var (
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrTransactionSettled = errors.New("payment transaction already settled")
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrNonTerminalResult  = errors.New("payment result is not terminal")
)

type Method string

const (
	MethodWallet Method = "wallet"
	MethodCard   Method = "card"
	MethodUPI    Method = "upi"
)

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodWallet, MethodCard, MethodUPI:
		return m, nil
	default:
		return "", ErrInvalidMethod
	}
}

func (m Method) String() string { return string(m) }

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusSucceeded Status = "succeeded"
	StatusDeclined  Status = "declined"
	StatusTimedOut  Status = "timed_out"
)

func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusDeclined || s == StatusTimedOut
}

type Kind string

const (
	KindCharge Kind = "charge"
	KindRefund Kind = "refund"
	// KindVoid compensates a charge whose outcome was unknown when the booking failed.
	KindVoid Kind = "void"
)

// Result is the uniform three-way outcome every processor reports.
type Result struct {
	Status    Status
	Reference string
	Reason    string
}

func Succeeded(ref string) Result   { return Result{Status: StatusSucceeded, Reference: ref} }
func Declined(reason string) Result { return Result{Status: StatusDeclined, Reason: reason} }
func TimedOut() Result              { return Result{Status: StatusTimedOut, Reason: "payment processor timed out"} }

func (r Result) OK() bool { return r.Status == StatusSucceeded }

// WithReference keeps the processor reference of a charge that is still
// pending, so it can be voided or reconciled later.
func (r Result) WithReference(ref string) Result {
	r.Reference = ref
	return r
}

type ChargeRequest struct {
	TransactionID uuid.UUID
	BookingID     uuid.UUID
	UserID        uuid.UUID
	Method        Method
	Amount        money.Money
	Description   string
	// Token is the method-specific instrument: a card payment method id or a UPI VPA.
	Token string
}

type RefundRequest struct {
	TransactionID uuid.UUID
	BookingID     uuid.UUID
	UserID        uuid.UUID
	Method        Method
	Amount        money.Money
	// ChargeReference is the processor reference of the original charge.
	ChargeReference string
}

type Transaction struct {
	id        uuid.UUID
	bookingID uuid.UUID
	kind      Kind
	method    Method
	amount    money.Money
	status    Status
	reference string
	reason    string
	createdAt time.Time
	updatedAt time.Time
}

func NewTransaction(bookingID uuid.UUID, kind Kind, method Method, amount money.Money, now time.Time) *Transaction {
	return &Transaction{
		id:        uuid.New(),
		bookingID: bookingID,
		kind:      kind,
		method:    method,
		amount:    amount,
		status:    StatusInitiated,
		createdAt: now,
		updatedAt: now,
	}
}

func ReconstructTransaction(
	id, bookingID uuid.UUID,
	kind Kind,
	method Method,
	amount money.Money,
	status Status,
	reference, reason string,
	createdAt, updatedAt time.Time,
) *Transaction {
	return &Transaction{
		id:        id,
		bookingID: bookingID,
		kind:      kind,
		method:    method,
		amount:    amount,
		status:    status,
		reference: reference,
		reason:    reason,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (t *Transaction) Complete(r Result, now time.Time) error {
	if t.status.IsTerminal() {
		return ErrTransactionSettled
	}
	if !r.Status.IsTerminal() {
		return ErrNonTerminalResult
	}
	t.status = r.Status
	t.reference = r.Reference
	t.reason = r.Reason
	t.updatedAt = now
	return nil
}

func (t *Transaction) ID() uuid.UUID        { return t.id }
func (t *Transaction) BookingID() uuid.UUID { return t.bookingID }
func (t *Transaction) Kind() Kind           { return t.kind }
func (t *Transaction) Method() Method       { return t.method }
func (t *Transaction) Amount() money.Money  { return t.amount }
func (t *Transaction) Status() Status       { return t.status }
func (t *Transaction) Reference() string    { return t.reference }
func (t *Transaction) Reason() string       { return t.reason }
func (t *Transaction) CreatedAt() time.Time { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time { return t.updatedAt }
