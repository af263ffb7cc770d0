package payment

import (
	"context"
	"errors"
	"fmt"

	"transit-booking/internal/domain/payment"
	"transit-booking/internal/usecase/shared"
)

// WalletProcessor debits the rider's stored-value wallet. The store performs
// check-and-debit atomically, so concurrent charges cannot overdraw.
type WalletProcessor struct {
	wallets shared.WalletStore
}

func NewWalletProcessor(wallets shared.WalletStore) *WalletProcessor {
	return &WalletProcessor{wallets: wallets}
}

func (p *WalletProcessor) Method() payment.Method { return payment.MethodWallet }

func (p *WalletProcessor) Charge(ctx context.Context, req payment.ChargeRequest) (payment.Result, error) {
	if err := ctx.Err(); err != nil {
		return payment.Result{}, err
	}
	if _, err := p.wallets.Debit(ctx, req.UserID, req.Amount); err != nil {
		if errors.Is(err, payment.ErrInsufficientFunds) {
			return payment.Declined("insufficient wallet balance"), nil
		}
		return payment.Result{}, fmt.Errorf("wallet debit: %w", err)
	}
	return payment.Succeeded("wallet_" + req.TransactionID.String()), nil
}

func (p *WalletProcessor) Refund(ctx context.Context, req payment.RefundRequest) (payment.Result, error) {
	if _, err := p.wallets.Credit(ctx, req.UserID, req.Amount); err != nil {
		return payment.Result{}, fmt.Errorf("wallet credit: %w", err)
	}
	return payment.Succeeded("wallet_refund_" + req.TransactionID.String()), nil
}
