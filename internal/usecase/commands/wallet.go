package commands

//go:generate mockgen -source=wallet.go -destination=../../../tests/mock/commands/wallet.go -package=commandsmock

import (
	"context"

	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/pkg/money"
	"transit-booking/internal/usecase/queries"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type WalletCommands interface {
	TopUp(ctx context.Context, userID uuid.UUID, amountCents int64) (*queries.WalletView, error)
}

type walletCommandsImpl struct {
	wallets  shared.WalletStore
	maxTopUp money.Money
	currency string
}

func NewWalletCommands(wallets shared.WalletStore, cfg config.Config) WalletCommands {
	return &walletCommandsImpl{
		wallets:  wallets,
		maxTopUp: money.FromCents(cfg.Payment.WalletMaxTopUpCents),
		currency: cfg.Payment.Currency,
	}
}

func (w *walletCommandsImpl) TopUp(ctx context.Context, userID uuid.UUID, amountCents int64) (*queries.WalletView, error) {
	amount, err := money.New(amountCents)
	if err != nil || amount.IsZero() || amount.GreaterThan(w.maxTopUp) {
		return nil, errs.Mark(errs.Newf("top-up must be between 1 and %d", w.maxTopUp.Cents()), errs.ErrInvalidAmount)
	}

	balance, err := w.wallets.Credit(ctx, userID, amount)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return &queries.WalletView{UserID: userID, BalanceCents: balance.Cents(), Currency: w.currency}, nil
}
