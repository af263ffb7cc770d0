package shared

import (
	"context"
	"time"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/domain/payment"
	"transit-booking/internal/pkg/money"

	"github.com/google/uuid"
)

// Catalog is read-only from the booking pipeline's point of view.
type Catalog interface {
	Search(ctx context.Context, criteria SearchCriteria) ([]*offering.Offering, error)
	Get(ctx context.Context, id uuid.UUID) (*offering.Offering, error)
	PromoByCode(ctx context.Context, code string) (*fare.Promo, error)
}

// CapacityLookup lets ledgers initialise counters lazily from the catalog.
type CapacityLookup interface {
	Capacity(ctx context.Context, key inventory.Key) (int, error)
}

// InventoryLedger serialises per (offering, class) key, never globally.
type InventoryLedger interface {
	Reserve(ctx context.Context, key inventory.Key, seats int) (inventory.Hold, error)
	Commit(ctx context.Context, hold inventory.Hold) error
	// Release is idempotent; releasing an unknown or expired hold is a no-op.
	Release(ctx context.Context, hold inventory.Hold) error
	ReleaseCommitted(ctx context.Context, key inventory.Key, seats int) error
	State(ctx context.Context, key inventory.Key) (inventory.State, error)
	SweepExpired(ctx context.Context) (int, error)
}

// PaymentGateway returns a three-way result; the error is reserved for
// requests that never reached a processor.
type PaymentGateway interface {
	Charge(ctx context.Context, req payment.ChargeRequest) (payment.Result, error)
	Refund(ctx context.Context, req payment.RefundRequest) (payment.Result, error)
	// Void cancels or refunds a charge that timed out while still pending.
	Void(ctx context.Context, req payment.RefundRequest) (payment.Result, error)
	Supports(method payment.Method) bool
}

type BookingStore interface {
	Save(ctx context.Context, b *booking.Booking) error
	// MarkCancelled only succeeds for a booking currently stored as confirmed.
	MarkCancelled(ctx context.Context, b *booking.Booking) error
	GetByPNR(ctx context.Context, pnr string) (*booking.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*booking.Booking, error)
	ListForOffering(ctx context.Context, offeringID uuid.UUID) ([]*booking.Booking, error)
}

type TransactionStore interface {
	Save(ctx context.Context, tx *payment.Transaction) error
	ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]*payment.Transaction, error)
}

type IdempotencyStore interface {
	// TryInsert records a processing key and reports whether it did. It is a
	// no-op for a live record and reclaims the key once the record has expired.
	TryInsert(ctx context.Context, rec IdempotencyRecord) (bool, error)
	Get(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
	UpdateStatusCompleted(ctx context.Context, key, userID, bookingID uuid.UUID) error
	// Release drops a processing record so the client may retry with the same key.
	Release(ctx context.Context, key, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type WalletStore interface {
	Balance(ctx context.Context, userID uuid.UUID) (money.Money, error)
	// Debit checks the balance and debits in one atomic step.
	Debit(ctx context.Context, userID uuid.UUID, amount money.Money) (money.Money, error)
	Credit(ctx context.Context, userID uuid.UUID, amount money.Money) (money.Money, error)
}

type Notifier interface {
	Publish(ctx context.Context, event booking.Event) error
}
