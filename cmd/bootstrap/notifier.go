package bootstrap

import (
	"context"
	"log/slog"

	"transit-booking/internal/infra/notifier"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/usecase/shared"

	"go.uber.org/fx"
)

var NotifierModule = fx.Module("notifier",
	fx.Provide(
		NewNotifier,
	),
)

// NewNotifier publishes to AMQP when AMQP_URL is set. An unreachable broker
// degrades to log-only events; notifications never gate a booking.
func NewNotifier(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) shared.Notifier {
	if cfg.AMQP.URL == "" {
		return notifier.NewLogNotifier(logger)
	}

	n, err := notifier.NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, falling back to log notifier", "error", err)
		return notifier.NewLogNotifier(logger)
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return n.Close()
		},
	})
	return n
}
