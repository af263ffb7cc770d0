package notifier

import (
	"context"
	"log/slog"

	"transit-booking/internal/domain/booking"
)

// LogNotifier is used when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, event booking.Event) error {
	n.logger.InfoContext(ctx, "booking event",
		slog.String("type", string(event.Type)),
		slog.String("booking_id", event.BookingID.String()),
		slog.String("pnr", event.PNR),
		slog.String("status", string(event.Status)),
		slog.String("reason", event.Reason),
	)
	return nil
}
