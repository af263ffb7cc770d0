package memstore

import (
	"context"
	"sync"
	"time"

	"transit-booking/internal/infra"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type idemKey struct {
	key    uuid.UUID
	userID uuid.UUID
}

type IdempotencyStore struct {
	mu      sync.Mutex
	records map[idemKey]shared.IdempotencyRecord
	clock   clock.Clock
}

func NewIdempotencyStore(clk clock.Clock) *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[idemKey]shared.IdempotencyRecord),
		clock:   clk,
	}
}

func (s *IdempotencyStore) TryInsert(_ context.Context, rec shared.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := idemKey{key: rec.Key, userID: rec.UserID}
	if existing, ok := s.records[k]; ok && s.clock.Now().Before(existing.ExpiresAt) {
		return false, nil
	}
	rec.Status = shared.IdempotencyStatusProcessing
	rec.ResultBookingID = nil
	s.records[k] = rec
	return true, nil
}

func (s *IdempotencyStore) Get(_ context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[idemKey{key: key, userID: userID}]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "idempotency key not found")
	}
	return &rec, nil
}

func (s *IdempotencyStore) UpdateStatusCompleted(_ context.Context, key, userID, bookingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := idemKey{key: key, userID: userID}
	rec, ok := s.records[k]
	if !ok {
		return infra.NewRepoErr(infra.KindNotFound, "idempotency key not found")
	}
	rec.Status = shared.IdempotencyStatusCompleted
	rec.ResultBookingID = &bookingID
	s.records[k] = rec
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := idemKey{key: key, userID: userID}
	if rec, ok := s.records[k]; ok && rec.Status == shared.IdempotencyStatusProcessing {
		delete(s.records, k)
	}
	return nil
}

func (s *IdempotencyStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, rec := range s.records {
		if !now.Before(rec.ExpiresAt) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}
