package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/usecase/shared"

	"github.com/go-co-op/gocron/v2"
)

const (
	holdSweepJob        = "hold-sweep"
	idempotencyPurgeJob = "idempotency-purge"
	jobTimeout          = 30 * time.Second
)

// Scheduler runs the background maintenance jobs. The hold sweep guarantees
// abandoned holds return to the pool even if no booking touches that key again.
type Scheduler struct {
	s           gocron.Scheduler
	ledger      shared.InventoryLedger
	idempotency shared.IdempotencyStore
	clock       clock.Clock
	logger      *slog.Logger
}

func New(
	ledger shared.InventoryLedger,
	idempotency shared.IdempotencyStore,
	clk clock.Clock,
	sweepInterval, purgeInterval time.Duration,
	logger *slog.Logger,
) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	sch := &Scheduler{s: s, ledger: ledger, idempotency: idempotency, clock: clk, logger: logger}

	if _, err := s.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(sch.runHoldSweep),
		gocron.WithName(holdSweepJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("register %s: %w", holdSweepJob, err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(purgeInterval),
		gocron.NewTask(sch.runIdempotencyPurge),
		gocron.WithName(idempotencyPurgeJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("register %s: %w", idempotencyPurgeJob, err)
	}
	return sch, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("スケジューラーを開始します", slog.Int("jobs", len(s.s.Jobs())))
	s.s.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.s.Shutdown()
}

// SweepHolds releases every hold past its expiry.
func (s *Scheduler) SweepHolds(ctx context.Context) (int, error) {
	n, err := s.ledger.SweepExpired(ctx)
	if err != nil {
		return n, fmt.Errorf("sweep expired holds: %w", err)
	}
	return n, nil
}

// PurgeIdempotencyKeys deletes keys whose replay window has passed.
func (s *Scheduler) PurgeIdempotencyKeys(ctx context.Context) (int64, error) {
	n, err := s.idempotency.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return n, fmt.Errorf("purge idempotency keys: %w", err)
	}
	return n, nil
}

func (s *Scheduler) runHoldSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.SweepHolds(ctx)
	if err != nil {
		s.logger.Error("hold sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("expired holds released", slog.Int("count", n))
	}
}

func (s *Scheduler) runIdempotencyPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.PurgeIdempotencyKeys(ctx)
	if err != nil {
		s.logger.Error("idempotency purge failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("expired idempotency keys purged", slog.Int64("count", n))
	}
}
