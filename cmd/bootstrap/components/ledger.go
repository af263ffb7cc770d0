package components

import (
	"log/slog"

	"transit-booking/internal/infra/ledger"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var LedgerModule = fx.Module("ledger",
	fx.Provide(
		NewInventoryLedger,
	),
)

func NewInventoryLedger(
	cfg config.Config,
	pool *pgxpool.Pool,
	rdb redis.UniversalClient,
	capacity shared.CapacityLookup,
	clk clock.Clock,
	logger *slog.Logger,
) shared.InventoryLedger {
	log := logger.With("component", "inventory_ledger", "driver", cfg.Ledger.Driver)

	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		return ledger.NewPostgresLedger(pool, clk, cfg.Ledger.HoldTTL, log)
	case config.DriverRedis:
		return ledger.NewRedisLedger(rdb, cfg.Redis.Prefix, capacity, clk, cfg.Ledger.HoldTTL, log)
	default:
		return ledger.NewMemoryLedger(capacity, clk, cfg.Ledger.HoldTTL, log)
	}
}
