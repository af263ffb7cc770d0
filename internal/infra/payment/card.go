package payment

import (
	"context"
	"strings"
	"time"

	"transit-booking/internal/domain/payment"
	"transit-booking/internal/pkg/money"
)

// Test instruments understood by the simulated card rail.
const (
	CardTokenDecline = "tok_chargeDeclined"
	CardTokenTimeout = "tok_processorTimeout"
)

// SimulatedCardProcessor stands in for a card acquirer when no Stripe key is
// configured: fixed latency, a per-transaction limit and a few test tokens.
type SimulatedCardProcessor struct {
	latency time.Duration
	limit   money.Money
}

func NewSimulatedCardProcessor(latency time.Duration, limit money.Money) *SimulatedCardProcessor {
	return &SimulatedCardProcessor{latency: latency, limit: limit}
}

func (p *SimulatedCardProcessor) Method() payment.Method { return payment.MethodCard }

func (p *SimulatedCardProcessor) Charge(ctx context.Context, req payment.ChargeRequest) (payment.Result, error) {
	if err := wait(ctx, p.latency); err != nil {
		return payment.Result{}, err
	}

	switch {
	case req.Token == CardTokenTimeout:
		<-ctx.Done()
		return payment.Result{}, ctx.Err()
	case req.Token == CardTokenDecline:
		return payment.Declined("card declined by issuer"), nil
	case !p.limit.IsZero() && req.Amount.GreaterThan(p.limit):
		return payment.Declined("card limit exceeded"), nil
	}
	return payment.Succeeded("card_" + strings.ReplaceAll(req.TransactionID.String(), "-", "")), nil
}

func (p *SimulatedCardProcessor) Refund(ctx context.Context, req payment.RefundRequest) (payment.Result, error) {
	if err := wait(ctx, p.latency); err != nil {
		return payment.Result{}, err
	}
	return payment.Succeeded("card_refund_" + strings.ReplaceAll(req.TransactionID.String(), "-", "")), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
