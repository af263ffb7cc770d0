package payment

import (
	"context"
	"regexp"
	"strings"
	"time"

	"transit-booking/internal/domain/payment"
	"transit-booking/internal/pkg/money"

	"github.com/google/uuid"
)

var vpaPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)

// UPIProcessor raises a collect request against the rider's VPA and polls
// until the PSP approves it. Approval arrives after the configured latency.
type UPIProcessor struct {
	latency      time.Duration
	pollInterval time.Duration
	limit        money.Money
}

func NewUPIProcessor(latency, pollInterval time.Duration, limit money.Money) *UPIProcessor {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &UPIProcessor{latency: latency, pollInterval: pollInterval, limit: limit}
}

func (p *UPIProcessor) Method() payment.Method { return payment.MethodUPI }

func (p *UPIProcessor) Charge(ctx context.Context, req payment.ChargeRequest) (payment.Result, error) {
	if req.Token != "" && !vpaPattern.MatchString(req.Token) {
		return payment.Declined("invalid UPI id"), nil
	}
	if !p.limit.IsZero() && req.Amount.GreaterThan(p.limit) {
		return payment.Declined("UPI transaction limit exceeded"), nil
	}

	collectID := "upi_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	approvedAt := time.Now().Add(p.latency)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		if !time.Now().Before(approvedAt) {
			return payment.Succeeded(collectID), nil
		}
		select {
		case <-ctx.Done():
			return payment.Result{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *UPIProcessor) Refund(ctx context.Context, req payment.RefundRequest) (payment.Result, error) {
	if err := ctx.Err(); err != nil {
		return payment.Result{}, err
	}
	return payment.Succeeded("upi_refund_" + strings.ReplaceAll(req.TransactionID.String(), "-", "")[:20]), nil
}
