package api

import (
	"errors"
	"net/http"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/handler/httperr"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target  error
	status  int
	reason  string
	message string
}

// Checked in order; the first match wins.
var bookingErrorMappings = []errorMapping{
	{errs.ErrInvalidPassengerData, http.StatusBadRequest, string(booking.ReasonInvalidPassengerData), "Invalid passenger data"},
	{errs.ErrInvalidClass, http.StatusBadRequest, string(booking.ReasonInvalidClass), "Invalid class for this offering"},
	{errs.ErrInvalidPassengerCount, http.StatusBadRequest, string(booking.ReasonInvalidPassengerCount), "Invalid passenger count"},
	{errs.ErrInvalidPaymentMethod, http.StatusBadRequest, "InvalidPaymentMethod", "Unsupported payment method"},
	{errs.ErrInvalidPromo, http.StatusBadRequest, "InvalidPromo", "Invalid or expired promo code"},
	{errs.ErrInvalidSearchCriteria, http.StatusBadRequest, "InvalidSearchCriteria", "Invalid search criteria"},
	{errs.ErrInvalidAmount, http.StatusBadRequest, "InvalidAmount", "Invalid amount"},
	{errs.ErrIdempotencyKeyRequired, http.StatusBadRequest, "IdempotencyKeyRequired", "Idempotency-Key header required"},
	{errs.ErrOfferingNotFound, http.StatusNotFound, "OfferingNotFound", "Offering not found"},
	{errs.ErrPromoNotFound, http.StatusNotFound, "PromoNotFound", "Promo code not found"},
	{errs.ErrBookingNotFound, http.StatusNotFound, "BookingNotFound", "Booking not found"},
	{errs.ErrForbidden, http.StatusForbidden, "Forbidden", "Access denied"},
	{errs.ErrBookingNotCancellable, http.StatusConflict, "NotCancellable", "Booking cannot be cancelled"},
	{errs.ErrIdempotencyKeyReused, http.StatusConflict, "IdempotencyKeyReused", "Idempotency key was used with a different request"},
	{errs.ErrIdempotencyInProgress, http.StatusConflict, "IdempotencyInProgress", "Request with this idempotency key is being processed"},
	{errs.ErrSoldOut, http.StatusPaymentRequired, string(booking.ReasonSoldOut), "No longer available"},
	{errs.ErrPaymentDeclined, http.StatusPaymentRequired, string(booking.ReasonPaymentDeclined), "Payment declined"},
	{errs.ErrPaymentTimedOut, http.StatusPaymentRequired, string(booking.ReasonPaymentTimedOut), "Payment timed out, retry with the same Idempotency-Key"},
	{errs.ErrHoldExpired, http.StatusPaymentRequired, string(booking.ReasonHoldExpired), "Seat hold expired before confirmation"},
	{errs.ErrRequestCanceled, http.StatusRequestTimeout, string(booking.ReasonCancelled), "Request cancelled"},
}

// abortWithUsecaseError writes the status and reason for a usecase error.
// Anything unmapped, including inventory consistency violations, is a 500.
func abortWithUsecaseError(c *gin.Context, err error) {
	var detail any
	var failed *commands.BookingFailedError
	if errors.As(err, &failed) {
		detail = gin.H{"bookingId": failed.BookingID, "retryable": failed.Reason.Retryable()}
	}

	for _, m := range bookingErrorMappings {
		if errs.Is(err, m.target) {
			httperr.AbortWithReason(c, m.status, err, m.reason, m.message, detail)
			return
		}
	}
	reason := ""
	if failed != nil {
		reason = string(failed.Reason)
	}
	httperr.AbortWithReason(c, http.StatusInternalServerError, err, reason, "Internal server error", detail)
}
