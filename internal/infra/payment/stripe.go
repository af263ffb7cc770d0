package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"transit-booking/internal/domain/payment"

	"github.com/stripe/stripe-go/v82"
)

// StripeCardProcessor charges cards through confirmed PaymentIntents. The
// client-side checkout tokenises the card; Token carries the payment method id.
type StripeCardProcessor struct {
	sc       *stripe.Client
	currency string
}

func NewStripeCardProcessor(sc *stripe.Client, currency string) *StripeCardProcessor {
	return &StripeCardProcessor{sc: sc, currency: strings.ToLower(currency)}
}

func (p *StripeCardProcessor) Method() payment.Method { return payment.MethodCard }

func (p *StripeCardProcessor) Charge(ctx context.Context, req payment.ChargeRequest) (payment.Result, error) {
	if req.Token == "" {
		return payment.Declined("card payment method missing"), nil
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(req.Amount.Cents()),
		Currency:      stripe.String(p.currency),
		PaymentMethod: stripe.String(req.Token),
		Description:   stripe.String(req.Description),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.SetIdempotencyKey(req.TransactionID.String())
	params.AddMetadata("booking_id", req.BookingID.String())
	params.AddMetadata("user_id", req.UserID.String())

	pi, err := p.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return declineOrError(err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return payment.Succeeded(pi.ID), nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		reason := "card declined"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return payment.Declined(reason), nil
	case stripe.PaymentIntentStatusRequiresAction:
		return payment.Declined("card requires customer authentication"), nil
	default:
		return payment.Result{Status: payment.StatusInitiated, Reference: pi.ID}, nil
	}
}

func (p *StripeCardProcessor) Refund(ctx context.Context, req payment.RefundRequest) (payment.Result, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(req.ChargeReference),
		Amount:        stripe.Int64(req.Amount.Cents()),
	}
	params.SetIdempotencyKey(req.TransactionID.String())
	params.AddMetadata("booking_id", req.BookingID.String())

	r, err := p.sc.V1Refunds.Create(ctx, params)
	if err != nil {
		return declineOrError(err)
	}
	if r.Status == stripe.RefundStatusFailed || r.Status == stripe.RefundStatusCanceled {
		return payment.Declined(fmt.Sprintf("refund %s", r.Status)), nil
	}
	return payment.Succeeded(r.ID), nil
}

// Void cancels an intent that has not settled. An intent that settled while
// the cancel was on its way is refunded instead.
func (p *StripeCardProcessor) Void(ctx context.Context, req payment.RefundRequest) (payment.Result, error) {
	if req.ChargeReference == "" {
		return payment.Declined("charge reference missing"), nil
	}

	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.SetIdempotencyKey(req.TransactionID.String())

	pi, err := p.sc.V1PaymentIntents.Cancel(ctx, req.ChargeReference, params)
	if err == nil && pi.Status == stripe.PaymentIntentStatusCanceled {
		return payment.Succeeded(pi.ID), nil
	}
	if err != nil {
		// Stripe rejects cancelling an intent in a final state as an invalid request
		var se *stripe.Error
		if !errors.As(err, &se) || se.Type != stripe.ErrorTypeInvalidRequest {
			return payment.Result{}, err
		}
	}

	current, err := p.sc.V1PaymentIntents.Retrieve(ctx, req.ChargeReference, &stripe.PaymentIntentRetrieveParams{})
	if err != nil {
		return payment.Result{}, err
	}
	switch current.Status {
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		return payment.Succeeded(current.ID), nil
	case stripe.PaymentIntentStatusSucceeded:
		return p.Refund(ctx, req)
	default:
		return payment.Result{Status: payment.StatusInitiated, Reference: current.ID}, nil
	}
}

func declineOrError(err error) (payment.Result, error) {
	var se *stripe.Error
	if errors.As(err, &se) && (se.Type == stripe.ErrorTypeCard || se.Type == stripe.ErrorTypeInvalidRequest) {
		return payment.Declined(se.Msg), nil
	}
	return payment.Result{}, err
}
