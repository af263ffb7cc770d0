package memstore

import (
	"context"
	"sort"
	"sync"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/infra"

	"github.com/google/uuid"
)

type BookingStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*booking.Booking
	byPNR      map[string]uuid.UUID
	byUser     map[uuid.UUID][]uuid.UUID
	byOffering map[uuid.UUID][]uuid.UUID
}

func NewBookingStore() *BookingStore {
	return &BookingStore{
		byID:       make(map[uuid.UUID]*booking.Booking),
		byPNR:      make(map[string]uuid.UUID),
		byUser:     make(map[uuid.UUID][]uuid.UUID),
		byOffering: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Save is append-only: a booking id or PNR can be written once.
func (s *BookingStore) Save(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[b.ID()]; exists {
		return infra.NewRepoErr(infra.KindDuplicateKey, "booking already stored")
	}
	if pnr := b.PNR(); pnr != "" {
		if _, exists := s.byPNR[pnr]; exists {
			return infra.NewRepoErr(infra.KindDuplicateKey, "pnr already issued")
		}
		s.byPNR[pnr] = b.ID()
	}

	s.byID[b.ID()] = b.Clone()
	s.byUser[b.UserID()] = append(s.byUser[b.UserID()], b.ID())
	s.byOffering[b.Offering().ID] = append(s.byOffering[b.Offering().ID], b.ID())
	return nil
}

func (s *BookingStore) MarkCancelled(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[b.ID()]
	if !ok {
		return infra.NewRepoErr(infra.KindNotFound, "booking not found")
	}
	if stored.Status() != booking.StatusConfirmed || b.Status() != booking.StatusCancelled {
		return infra.NewRepoErr(infra.KindConflict, "booking is not confirmed")
	}
	s.byID[b.ID()] = b.Clone()
	return nil
}

func (s *BookingStore) GetByPNR(ctx context.Context, pnr string) (*booking.Booking, error) {
	s.mu.RLock()
	id, ok := s.byPNR[pnr]
	s.mu.RUnlock()
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "booking not found")
	}
	return s.GetByID(ctx, id)
}

func (s *BookingStore) GetByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[id]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "booking not found")
	}
	return b.Clone(), nil
}

// ListForUser returns newest first.
func (s *BookingStore) ListForUser(_ context.Context, userID uuid.UUID) ([]*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.collect(s.byUser[userID])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out, nil
}

func (s *BookingStore) ListForOffering(_ context.Context, offeringID uuid.UUID) ([]*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(s.byOffering[offeringID]), nil
}

func (s *BookingStore) collect(ids []uuid.UUID) []*booking.Booking {
	out := make([]*booking.Booking, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id].Clone())
	}
	return out
}
