package bootstrap

import (
	"context"
	"log/slog"

	"transit-booking/internal/infra/scheduler"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/usecase/shared"

	"go.uber.org/fx"
)

var SchedulerModule = fx.Module("scheduler",
	fx.Provide(
		NewScheduler,
	),
	fx.Invoke(func(*scheduler.Scheduler) {}),
)

func NewScheduler(
	lc fx.Lifecycle,
	cfg config.Config,
	ledger shared.InventoryLedger,
	idempotency shared.IdempotencyStore,
	clk clock.Clock,
	logger *slog.Logger,
) (*scheduler.Scheduler, error) {
	s, err := scheduler.New(ledger, idempotency, clk, cfg.Ledger.SweepInterval, cfg.Idempotency.PurgeInterval, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			return s.Shutdown()
		},
	})
	return s, nil
}
