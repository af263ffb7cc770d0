package components

import (
	"log/slog"

	"transit-booking/internal/infra/payment"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/money"
	"transit-booking/internal/usecase/shared"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/fx"
)

var PaymentModule = fx.Module("payment",
	fx.Provide(
		NewProcessors,
		fx.Annotate(
			payment.NewGateway,
			fx.As(new(shared.PaymentGateway)),
		),
	),
)

// NewProcessors uses Stripe for cards when STRIPE_SECRET_KEY is set and the
// simulated card processor otherwise.
func NewProcessors(cfg config.Config, wallets shared.WalletStore, logger *slog.Logger) []payment.Processor {
	pc := cfg.Payment

	var card payment.Processor
	if pc.StripeSecretKey != "" {
		card = payment.NewStripeCardProcessor(stripe.NewClient(pc.StripeSecretKey), pc.Currency)
		logger.Info("card payments via Stripe")
	} else {
		card = payment.NewSimulatedCardProcessor(pc.CardLatency, money.FromCents(pc.CardLimitCents))
	}

	return []payment.Processor{
		payment.NewWalletProcessor(wallets),
		card,
		payment.NewUPIProcessor(pc.UPILatency, pc.UPIPollInterval, money.FromCents(pc.UPILimitCents)),
	}
}
