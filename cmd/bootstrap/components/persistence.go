package components

import (
	"context"
	"log/slog"

	"transit-booking/internal/infra/memstore"
	"transit-booking/internal/infra/repository"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/money"
	"transit-booking/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewStores,
	),
)

type Stores struct {
	fx.Out

	Catalog      shared.Catalog
	Capacity     shared.CapacityLookup
	Bookings     shared.BookingStore
	Transactions shared.TransactionStore
	Idempotency  shared.IdempotencyStore
	Wallets      shared.WalletStore
}

func NewStores(lc fx.Lifecycle, cfg config.Config, pool *pgxpool.Pool, clk clock.Clock, logger *slog.Logger) Stores {
	initialBalance := money.FromCents(cfg.Payment.WalletInitialBalanceCents)

	if cfg.Store.Driver == config.DriverPostgres {
		catalog := repository.NewCatalogRepository(pool)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return seedPostgresCatalog(ctx, catalog, clk, cfg.Catalog, logger)
			},
		})
		return Stores{
			Catalog:      catalog,
			Capacity:     catalog,
			Bookings:     repository.NewBookingRepository(pool),
			Transactions: repository.NewTransactionRepository(pool),
			Idempotency:  repository.NewIdempotencyRepository(pool, clk),
			Wallets:      repository.NewWalletRepository(pool, initialBalance),
		}
	}

	catalog := memstore.NewCatalog()
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return seedMemoryCatalog(catalog, clk, cfg.Catalog, logger)
		},
	})
	return Stores{
		Catalog:      catalog,
		Capacity:     catalog,
		Bookings:     memstore.NewBookingStore(),
		Transactions: memstore.NewTransactionStore(),
		Idempotency:  memstore.NewIdempotencyStore(clk),
		Wallets:      memstore.NewWalletStore(initialBalance),
	}
}

func seedMemoryCatalog(catalog *memstore.Catalog, clk clock.Clock, cfg config.CatalogConfig, logger *slog.Logger) error {
	now := clk.Now()
	offerings, err := memstore.SeedOfferings(now, cfg.Location(), cfg.SeedDays)
	if err != nil {
		return err
	}
	promos, err := memstore.SeedPromos(now)
	if err != nil {
		return err
	}
	for _, o := range offerings {
		catalog.Put(o)
	}
	for _, p := range promos {
		catalog.PutPromo(p)
	}
	logger.Info("catalog seeded", "store", config.DriverMemory, "offerings", len(offerings), "promos", len(promos))
	return nil
}

// seedPostgresCatalog only seeds an empty database.
func seedPostgresCatalog(ctx context.Context, catalog *repository.CatalogRepository, clk clock.Clock, cfg config.CatalogConfig, logger *slog.Logger) error {
	empty, err := catalog.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	now := clk.Now()
	offerings, err := memstore.SeedOfferings(now, cfg.Location(), cfg.SeedDays)
	if err != nil {
		return err
	}
	promos, err := memstore.SeedPromos(now)
	if err != nil {
		return err
	}
	for _, o := range offerings {
		if err := catalog.Put(ctx, o); err != nil {
			return err
		}
	}
	for _, p := range promos {
		if err := catalog.PutPromo(ctx, p); err != nil {
			return err
		}
	}
	logger.Info("catalog seeded", "store", config.DriverPostgres, "offerings", len(offerings), "promos", len(promos))
	return nil
}
