//go:build unit

package commands_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"transit-booking/internal/domain/booking"
	domainpayment "transit-booking/internal/domain/payment"
	"transit-booking/internal/pkg/errs"
	"transit-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelBooking(t *testing.T) {
	t.Run("出発48時間以上前は手数料のみ差し引く", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		created, err := f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 2), userID, uuid.Nil)
		require.NoError(t, err)

		got, err := f.cmds.CancelBooking(context.Background(), created.Booking.PNR, userID)
		require.NoError(t, err)

		assert.Equal(t, booking.StatusCancelled.String(), got.Status)
		assert.Equal(t, int64(154000), got.RefundCents)
		assert.NotNil(t, got.CancelledAt)

		st := f.state(t, f.train, "sleeper")
		assert.Equal(t, 0, st.Committed, "seats return to the pool")
		assert.Equal(t, int64(initialWallet*100-160000+154000), f.balance(t, userID))

		txs := f.transactionsFor(t, got.ID)
		require.Len(t, txs, 2)
		assert.Equal(t, domainpayment.KindRefund, txs[1].Kind())
		assert.Equal(t, int64(154000), txs[1].Amount().Cents())

		assert.Equal(t, []booking.EventType{booking.EventConfirmed, booking.EventCancelled}, f.notifier.types())
	})

	t.Run("出発直前はキャンセルできるが返金なし", func(t *testing.T) {
		f := newFixture(t)
		soon := f.put(builder.NewOfferingBuilder().WithDeparture(f.clock.Now().Add(2 * time.Hour)).MustBuild())
		userID := uuid.New()
		created, err := f.cmds.CreateBooking(context.Background(), walletInput(soon, "sleeper", 1), userID, uuid.Nil)
		require.NoError(t, err)

		got, err := f.cmds.CancelBooking(context.Background(), created.Booking.PNR, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.RefundCents)
		assert.Len(t, f.transactionsFor(t, got.ID), 1, "a zero refund records no transaction")
		assert.Equal(t, 0, f.state(t, soon, "sleeper").Committed)
	})

	t.Run("PNRは大文字小文字を区別しない", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		created, err := f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 1), userID, uuid.Nil)
		require.NoError(t, err)

		_, err = f.cmds.CancelBooking(context.Background(), " "+strings.ToLower(created.Booking.PNR)+" ", userID)
		require.NoError(t, err)
	})

	t.Run("二重キャンセルは拒否する", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		created, err := f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 1), userID, uuid.Nil)
		require.NoError(t, err)
		_, err = f.cmds.CancelBooking(context.Background(), created.Booking.PNR, userID)
		require.NoError(t, err)

		_, err = f.cmds.CancelBooking(context.Background(), created.Booking.PNR, userID)
		assert.True(t, errs.Is(err, errs.ErrBookingNotCancellable))
		assert.Equal(t, 0, f.state(t, f.train, "sleeper").Committed, "seats are returned once")
	})

	t.Run("他人の予約はキャンセルできない", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 1), uuid.New(), uuid.Nil)
		require.NoError(t, err)

		_, err = f.cmds.CancelBooking(context.Background(), created.Booking.PNR, uuid.New())
		assert.True(t, errs.Is(err, errs.ErrForbidden))
		assert.Equal(t, 1, f.state(t, f.train, "sleeper").Committed)
	})

	t.Run("存在しないPNR", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.cmds.CancelBooking(context.Background(), "TRAIN9999999999", uuid.New())
		assert.True(t, errs.Is(err, errs.ErrBookingNotFound))
	})
}
