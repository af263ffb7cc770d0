package queries

//go:generate mockgen -source=wallet.go -destination=../../../tests/mock/queries/wallet.go -package=queriesmock

import (
	"context"

	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type WalletQueries interface {
	Balance(ctx context.Context, userID uuid.UUID) (*WalletView, error)
}

type walletQueriesImpl struct {
	wallets  shared.WalletStore
	currency string
}

func NewWalletQueries(wallets shared.WalletStore, cfg config.Config) WalletQueries {
	return &walletQueriesImpl{wallets: wallets, currency: cfg.Payment.Currency}
}

func (q *walletQueriesImpl) Balance(ctx context.Context, userID uuid.UUID) (*WalletView, error) {
	balance, err := q.wallets.Balance(ctx, userID)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return &WalletView{UserID: userID, BalanceCents: balance.Cents(), Currency: q.currency}, nil
}
