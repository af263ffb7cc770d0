package memstore

import (
	"context"
	"sync"

	"transit-booking/internal/domain/payment"
	"transit-booking/internal/infra"

	"github.com/google/uuid"
)

type TransactionStore struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*payment.Transaction
	byBooking map[uuid.UUID][]uuid.UUID
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		byID:      make(map[uuid.UUID]*payment.Transaction),
		byBooking: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Save accepts only terminal transactions; they are immutable afterwards.
func (s *TransactionStore) Save(_ context.Context, tx *payment.Transaction) error {
	if !tx.Status().IsTerminal() {
		return infra.NewRepoErr(infra.KindConflict, "transaction is not terminal")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[tx.ID()]; exists {
		return infra.NewRepoErr(infra.KindDuplicateKey, "transaction already stored")
	}
	cp := *tx
	s.byID[tx.ID()] = &cp
	s.byBooking[tx.BookingID()] = append(s.byBooking[tx.BookingID()], tx.ID())
	return nil
}

func (s *TransactionStore) ListForBooking(_ context.Context, bookingID uuid.UUID) ([]*payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byBooking[bookingID]
	out := make([]*payment.Transaction, 0, len(ids))
	for _, id := range ids {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}
