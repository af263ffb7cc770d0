package components

import (
	"transit-booking/internal/domain/booking"
	"transit-booking/internal/domain/fare"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/usecase/commands"
	"transit-booking/internal/usecase/queries"
	"transit-booking/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fx.Annotate(
		fare.NewRuleCalculator,
		fx.As(new(fare.Calculator)),
	),
	fx.Annotate(
		booking.NewRandomPNRGenerator,
		fx.As(new(booking.PNRGenerator)),
	),
	fx.Annotate(
		booking.NewTieredRefundPolicy,
		fx.As(new(booking.RefundPolicy)),
	),
	shared.NewPricer,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewBookingCommands,
		commands.NewWalletCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewCatalogQueries,
		queries.NewBookingQueries,
		queries.NewWalletQueries,
	),
)
