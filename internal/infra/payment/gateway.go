package payment

import (
	"context"
	"errors"
	"log/slog"

	"transit-booking/internal/domain/payment"
)

var ErrUnsupportedMethod = errors.New("payment method not supported by gateway")

// Processor talks to one payment rail. Errors mean the outcome is unknown or
// the processor could not be reached; declines are reported in the Result.
type Processor interface {
	Method() payment.Method
	Charge(ctx context.Context, req payment.ChargeRequest) (payment.Result, error)
	Refund(ctx context.Context, req payment.RefundRequest) (payment.Result, error)
}

// Voider is implemented by processors that can cancel a charge which has not
// settled yet.
type Voider interface {
	Void(ctx context.Context, req payment.RefundRequest) (payment.Result, error)
}

// Gateway routes by method and folds every processor outcome into
// Succeeded, Declined or TimedOut. It never retries.
type Gateway struct {
	processors map[payment.Method]Processor
	logger     *slog.Logger
}

func NewGateway(logger *slog.Logger, processors []Processor) *Gateway {
	m := make(map[payment.Method]Processor, len(processors))
	for _, p := range processors {
		m[p.Method()] = p
	}
	return &Gateway{processors: m, logger: logger}
}

func (g *Gateway) Supports(method payment.Method) bool {
	_, ok := g.processors[method]
	return ok
}

func (g *Gateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.Result, error) {
	p, ok := g.processors[req.Method]
	if !ok {
		return payment.Result{}, ErrUnsupportedMethod
	}

	res, err := p.Charge(ctx, req)
	res = g.normalize(ctx, res, err, "charge",
		slog.String("transaction_id", req.TransactionID.String()),
		slog.String("booking_id", req.BookingID.String()),
		slog.String("method", req.Method.String()),
		slog.Int64("amount_cents", req.Amount.Cents()),
	)
	return res, nil
}

func (g *Gateway) Refund(ctx context.Context, req payment.RefundRequest) (payment.Result, error) {
	p, ok := g.processors[req.Method]
	if !ok {
		return payment.Result{}, ErrUnsupportedMethod
	}

	res, err := p.Refund(ctx, req)
	res = g.normalize(ctx, res, err, "refund",
		slog.String("transaction_id", req.TransactionID.String()),
		slog.String("booking_id", req.BookingID.String()),
		slog.String("method", req.Method.String()),
		slog.Int64("amount_cents", req.Amount.Cents()),
	)
	return res, nil
}

// Void compensates a charge whose outcome is unknown. Processors without a
// cancel operation refund the charge reference in full.
func (g *Gateway) Void(ctx context.Context, req payment.RefundRequest) (payment.Result, error) {
	p, ok := g.processors[req.Method]
	if !ok {
		return payment.Result{}, ErrUnsupportedMethod
	}

	var (
		res payment.Result
		err error
	)
	if v, ok := p.(Voider); ok {
		res, err = v.Void(ctx, req)
	} else {
		res, err = p.Refund(ctx, req)
	}
	res = g.normalize(ctx, res, err, "void",
		slog.String("transaction_id", req.TransactionID.String()),
		slog.String("booking_id", req.BookingID.String()),
		slog.String("method", req.Method.String()),
		slog.String("charge_reference", req.ChargeReference),
	)
	return res, nil
}

func (g *Gateway) normalize(ctx context.Context, res payment.Result, err error, op string, attrs ...any) payment.Result {
	switch {
	case err == nil && res.Status.IsTerminal():
		if !res.OK() {
			g.logger.Info("payment "+op+" not successful", append(attrs, slog.String("status", string(res.Status)), slog.String("reason", res.Reason))...)
		}
		return res
	case err == nil:
		// a processor that returns without a final status is treated as still pending
		g.logger.Warn("payment "+op+" returned non-terminal status", append(attrs,
			slog.String("status", string(res.Status)),
			slog.String("reference", res.Reference))...)
		return payment.TimedOut().WithReference(res.Reference)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		g.logger.Warn("payment "+op+" timed out", append(attrs, slog.String("error", err.Error()))...)
		return payment.TimedOut().WithReference(res.Reference)
	default:
		g.logger.Warn("payment "+op+" failed at processor", append(attrs, slog.String("error", err.Error()))...)
		return payment.Declined("processor error: " + err.Error())
	}
}
