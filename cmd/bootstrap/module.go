package bootstrap

import (
	"transit-booking/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DBModule,
	RedisModule,
	NotifierModule,
	JWTModule,
	components.PersistenceModule,
	components.LedgerModule,
	components.PaymentModule,
	components.UseCaseModule,
	components.HandlerModule,
	SchedulerModule,
)
