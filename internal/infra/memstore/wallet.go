package memstore

import (
	"context"
	"sync"

	"transit-booking/internal/domain/payment"
	"transit-booking/internal/pkg/money"

	"github.com/google/uuid"
)

type wallet struct {
	mu      sync.Mutex
	balance money.Money
}

// WalletStore locks per wallet; the map lock only guards wallet creation.
type WalletStore struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*wallet
	initial money.Money
}

func NewWalletStore(initial money.Money) *WalletStore {
	return &WalletStore{
		wallets: make(map[uuid.UUID]*wallet),
		initial: initial,
	}
}

func (s *WalletStore) get(userID uuid.UUID) *wallet {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		w = &wallet{balance: s.initial}
		s.wallets[userID] = w
	}
	return w
}

func (s *WalletStore) Balance(_ context.Context, userID uuid.UUID) (money.Money, error) {
	w := s.get(userID)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance, nil
}

func (s *WalletStore) Debit(_ context.Context, userID uuid.UUID, amount money.Money) (money.Money, error) {
	w := s.get(userID)
	w.mu.Lock()
	defer w.mu.Unlock()

	if amount.GreaterThan(w.balance) {
		return w.balance, payment.ErrInsufficientFunds
	}
	w.balance = w.balance.Sub(amount)
	return w.balance, nil
}

func (s *WalletStore) Credit(_ context.Context, userID uuid.UUID, amount money.Money) (money.Money, error) {
	w := s.get(userID)
	w.mu.Lock()
	defer w.mu.Unlock()

	w.balance = w.balance.Add(amount)
	return w.balance, nil
}
