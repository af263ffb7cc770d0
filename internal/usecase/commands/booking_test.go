//go:build unit

package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/domain/offering"
	domainpayment "transit-booking/internal/domain/payment"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/usecase/commands"
	"transit-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFailure(t *testing.T, err error, reason booking.FailureReason, sentinel error) *commands.BookingFailedError {
	t.Helper()
	var failed *commands.BookingFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, reason, failed.Reason)
	assert.True(t, errs.Is(err, sentinel), "expected %v, got %v", sentinel, err)
	return failed
}

func TestCreateBooking_Success(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	res, err := f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 2), userID, uuid.New())
	require.NoError(t, err)
	require.False(t, res.IsReplayed)

	got := res.Booking
	assert.Equal(t, booking.StatusConfirmed.String(), got.Status)
	assert.Equal(t, string(booking.StageConfirmed), got.Stage)
	assert.Regexp(t, `^TRAIN[0-9]{10}$`, got.PNR)
	assert.Equal(t, 2, got.Seats)
	assert.Equal(t, int64(160000), got.TotalCents)
	assert.NotEmpty(t, got.PaymentRef)
	assert.Len(t, got.Passengers, 2)

	st := f.state(t, f.train, "sleeper")
	assert.Equal(t, 0, st.Held)
	assert.Equal(t, 2, st.Committed)
	assert.Equal(t, int64(initialWallet*100-160000), f.balance(t, userID))

	txs := f.transactionsFor(t, got.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, domainpayment.KindCharge, txs[0].Kind())
	assert.Equal(t, domainpayment.StatusSucceeded, txs[0].Status())

	assert.Equal(t, []booking.EventType{booking.EventConfirmed}, f.notifier.types())
}

func TestCreateBooking_EachPassengerTakesASeat(t *testing.T) {
	f := newFixture(t)
	metro := f.put(builder.NewMetroBuilder().MustBuild())
	taxi := f.put(builder.NewTaxiBuilder().MustBuild())

	t.Run("metro fare is per passenger", func(t *testing.T) {
		res, err := f.cmds.CreateBooking(context.Background(), walletInput(metro, "", 3), uuid.New(), uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, int64(12000), res.Booking.TotalCents)
		assert.Equal(t, 3, res.Booking.Seats)
		assert.Regexp(t, `^METRO[0-9]{10}$`, res.Booking.PNR)
	})

	t.Run("taxi is one vehicle regardless of riders", func(t *testing.T) {
		res, err := f.cmds.CreateBooking(context.Background(), walletInput(taxi, "", 3), uuid.New(), uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, int64(24200), res.Booking.TotalCents)
		assert.Equal(t, 1, res.Booking.Seats)
		assert.Equal(t, 1, f.state(t, taxi, offering.ClassVehicle).Committed)
	})

	t.Run("taxi over max passengers", func(t *testing.T) {
		_, err := f.cmds.CreateBooking(context.Background(), walletInput(taxi, "", 5), uuid.New(), uuid.Nil)
		assert.True(t, errs.Is(err, errs.ErrInvalidPassengerCount))
	})
}

func TestCreateBooking_InputErrorsAreNotPersisted(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	tests := []struct {
		name string
		in   commands.CreateBookingInput
		want error
	}{
		{
			name: "passenger count mismatch",
			in: func() commands.CreateBookingInput {
				in := walletInput(f.train, "sleeper", 2)
				in.PassengerCount = 3
				return in
			}(),
			want: errs.ErrInvalidPassengerData,
		},
		{
			name: "negative passenger count",
			in: func() commands.CreateBookingInput {
				in := walletInput(f.train, "sleeper", 1)
				in.PassengerCount = -1
				return in
			}(),
			want: errs.ErrInvalidPassengerCount,
		},
		{
			name: "passenger without name",
			in: func() commands.CreateBookingInput {
				in := walletInput(f.train, "sleeper", 1)
				in.Passengers[0].Name = "  "
				return in
			}(),
			want: errs.ErrInvalidPassengerData,
		},
		{
			name: "no passengers",
			in:   walletInput(f.train, "sleeper", 0),
			want: errs.ErrInvalidPassengerData,
		},
		{
			name: "unknown payment method",
			in: func() commands.CreateBookingInput {
				in := walletInput(f.train, "sleeper", 1)
				in.PaymentMethod = "cash"
				return in
			}(),
			want: errs.ErrInvalidPaymentMethod,
		},
		{
			name: "class not offered",
			in:   walletInput(f.train, "first", 1),
			want: errs.ErrInvalidClass,
		},
		{
			name: "unknown offering",
			in: func() commands.CreateBookingInput {
				in := walletInput(f.train, "sleeper", 1)
				in.OfferingID = uuid.New()
				return in
			}(),
			want: errs.ErrOfferingNotFound,
		},
		{
			name: "unknown promo",
			in: func() commands.CreateBookingInput {
				in := walletInput(f.train, "sleeper", 1)
				in.PromoCode = "NOSUCH"
				return in
			}(),
			want: errs.ErrPromoNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.cmds.CreateBooking(context.Background(), tt.in, userID, uuid.New())
			require.Error(t, err)
			assert.True(t, errs.Is(err, tt.want), "got %v", err)

			var failed *commands.BookingFailedError
			assert.NotErrorAs(t, err, &failed)
		})
	}

	list, err := f.bookings.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, f.state(t, f.train, "sleeper").Held)
	assert.Equal(t, int64(initialWallet*100), f.balance(t, userID))
}

func TestCreateBooking_SoldOut(t *testing.T) {
	f := newFixture(t)
	o := f.put(builder.NewOfferingBuilder().WithCapacity("ac3", 2).MustBuild())

	_, err := f.cmds.CreateBooking(context.Background(), walletInput(o, "ac3", 3), uuid.New(), uuid.Nil)
	failed := requireFailure(t, err, booking.ReasonSoldOut, errs.ErrSoldOut)
	assert.False(t, failed.Reason.Retryable())

	stored, err := f.bookings.GetByID(context.Background(), failed.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusFailed, stored.Status())
	assert.Empty(t, stored.PNR())
	assert.Empty(t, f.transactionsFor(t, failed.BookingID), "no charge is attempted")
	assert.Equal(t, []booking.EventType{booking.EventFailed}, f.notifier.types())
}

func TestCreateBooking_LastSeatRace(t *testing.T) {
	f := newFixture(t)
	o := f.put(builder.NewOfferingBuilder().WithCapacity("ac3", 1).MustBuild())

	const riders = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		soldOut  int
		startGun = make(chan struct{})
	)
	for range riders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-startGun
			_, err := f.cmds.CreateBooking(context.Background(), walletInput(o, "ac3", 1), uuid.New(), uuid.New())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errs.Is(err, errs.ErrSoldOut):
				soldOut++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(startGun)
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, riders-1, soldOut)
	st := f.state(t, o, "ac3")
	assert.Equal(t, 1, st.Committed)
	assert.Equal(t, 0, st.Held)
}

func TestCreateBooking_PaymentDeclinedReleasesHold(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	_, err := f.cmds.CreateBooking(context.Background(), cardInput(f.train, "sleeper", 2, "tok_chargeDeclined"), userID, uuid.New())
	failed := requireFailure(t, err, booking.ReasonPaymentDeclined, errs.ErrPaymentDeclined)
	assert.NotEmpty(t, failed.Detail)

	st := f.state(t, f.train, "sleeper")
	assert.Equal(t, 0, st.Held)
	assert.Equal(t, 0, st.Committed)

	txs := f.transactionsFor(t, failed.BookingID)
	require.Len(t, txs, 1)
	assert.Equal(t, domainpayment.StatusDeclined, txs[0].Status())
}

func TestCreateBooking_InsufficientWalletIsADecline(t *testing.T) {
	f := newFixture(t)
	o := f.put(builder.NewOfferingBuilder().With(func(b *builder.OfferingBuilder) {
		b.Classes[1].Fare = b.Classes[1].Fare.Times(10)
	}).MustBuild())

	_, err := f.cmds.CreateBooking(context.Background(), walletInput(o, "ac3", 1), uuid.New(), uuid.Nil)
	requireFailure(t, err, booking.ReasonPaymentDeclined, errs.ErrPaymentDeclined)
	assert.Equal(t, 0, f.state(t, o, "ac3").Held)
}

func TestCreateBooking_PaymentTimeoutReleasesHold(t *testing.T) {
	f := newFixture(t, withPaymentTimeout(30*time.Millisecond))
	o := f.put(builder.NewOfferingBuilder().WithCapacity("ac3", 1).MustBuild())

	_, err := f.cmds.CreateBooking(context.Background(), cardInput(o, "ac3", 1, "tok_processorTimeout"), uuid.New(), uuid.Nil)
	failed := requireFailure(t, err, booking.ReasonPaymentTimedOut, errs.ErrPaymentTimedOut)
	assert.True(t, failed.Reason.Retryable())

	assert.Equal(t, 0, f.state(t, o, "ac3").Held)
	txs := f.transactionsFor(t, failed.BookingID)
	require.Len(t, txs, 1)
	assert.Equal(t, domainpayment.StatusTimedOut, txs[0].Status())

	// the only seat is bookable again
	res, err := f.cmds.CreateBooking(context.Background(), walletInput(o, "ac3", 1), uuid.New(), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed.String(), res.Booking.Status)

	st := f.state(t, o, "ac3")
	assert.Equal(t, 0, st.Held)
	assert.Equal(t, 1, st.Committed)
}

func TestCreateBooking_PendingChargeIsVoided(t *testing.T) {
	pending := func(charges *int) func(context.Context, domainpayment.ChargeRequest) (domainpayment.Result, error) {
		return func(context.Context, domainpayment.ChargeRequest) (domainpayment.Result, error) {
			*charges++
			return domainpayment.Result{Status: domainpayment.StatusInitiated, Reference: "pi_processing_123"}, nil
		}
	}

	t.Run("取り消せた保留中の決済は同じキーで再試行できる", func(t *testing.T) {
		charges := 0
		var voided []string
		p := &funcProcessor{
			charge: pending(&charges),
			void: func(_ context.Context, req domainpayment.RefundRequest) (domainpayment.Result, error) {
				voided = append(voided, req.ChargeReference)
				return domainpayment.Succeeded(req.ChargeReference), nil
			},
		}
		f := newFixture(t, withCardProcessor(p))
		userID, key := uuid.New(), uuid.New()
		in := cardInput(f.train, "sleeper", 1, "pm_card")

		_, err := f.cmds.CreateBooking(context.Background(), in, userID, key)
		failed := requireFailure(t, err, booking.ReasonPaymentTimedOut, errs.ErrPaymentTimedOut)
		assert.Equal(t, []string{"pi_processing_123"}, voided)
		assert.Equal(t, 0, f.state(t, f.train, "sleeper").Held)

		txs := f.transactionsFor(t, failed.BookingID)
		require.Len(t, txs, 2)
		assert.Equal(t, domainpayment.KindCharge, txs[0].Kind())
		assert.Equal(t, domainpayment.StatusTimedOut, txs[0].Status())
		assert.Equal(t, "pi_processing_123", txs[0].Reference())
		assert.Equal(t, domainpayment.KindVoid, txs[1].Kind())
		assert.Equal(t, domainpayment.StatusSucceeded, txs[1].Status())
		assert.Equal(t, txs[0].Amount(), txs[1].Amount())

		_, err = f.cmds.CreateBooking(context.Background(), in, userID, key)
		requireFailure(t, err, booking.ReasonPaymentTimedOut, errs.ErrPaymentTimedOut)
		assert.Equal(t, 2, charges, "a voided attempt is retried fresh")
	})

	t.Run("取り消せない保留中の決済はキーを保持する", func(t *testing.T) {
		charges := 0
		p := &funcProcessor{
			charge: pending(&charges),
			void: func(_ context.Context, req domainpayment.RefundRequest) (domainpayment.Result, error) {
				return domainpayment.Result{Status: domainpayment.StatusInitiated, Reference: req.ChargeReference}, nil
			},
		}
		f := newFixture(t, withCardProcessor(p))
		userID, key := uuid.New(), uuid.New()
		in := cardInput(f.train, "sleeper", 1, "pm_card")

		_, err := f.cmds.CreateBooking(context.Background(), in, userID, key)
		failed := requireFailure(t, err, booking.ReasonPaymentTimedOut, errs.ErrPaymentTimedOut)
		assert.Equal(t, 0, f.state(t, f.train, "sleeper").Held)

		txs := f.transactionsFor(t, failed.BookingID)
		require.Len(t, txs, 2)
		assert.Equal(t, "pi_processing_123", txs[0].Reference())
		assert.Equal(t, domainpayment.KindVoid, txs[1].Kind())
		assert.NotEqual(t, domainpayment.StatusSucceeded, txs[1].Status())

		_, err = f.cmds.CreateBooking(context.Background(), in, userID, key)
		assert.True(t, errs.Is(err, errs.ErrIdempotencyInProgress))
		assert.Equal(t, 1, charges, "no second charge while the first is unresolved")
	})
}

func TestCreateBooking_HoldExpiredDuringPaymentIsRefunded(t *testing.T) {
	var f *fixture
	slow := &funcProcessor{charge: func(_ context.Context, req domainpayment.ChargeRequest) (domainpayment.Result, error) {
		f.clock.Add(f.cfg.Ledger.HoldTTL + time.Second)
		return domainpayment.Succeeded("ch_" + req.TransactionID.String()), nil
	}}
	f = newFixture(t, withCardProcessor(slow))

	_, err := f.cmds.CreateBooking(context.Background(), cardInput(f.train, "sleeper", 2, "pm_card"), uuid.New(), uuid.Nil)
	failed := requireFailure(t, err, booking.ReasonHoldExpired, errs.ErrHoldExpired)

	st := f.state(t, f.train, "sleeper")
	assert.Equal(t, 0, st.Held)
	assert.Equal(t, 0, st.Committed)

	txs := f.transactionsFor(t, failed.BookingID)
	require.Len(t, txs, 2)
	assert.Equal(t, domainpayment.KindCharge, txs[0].Kind())
	assert.Equal(t, domainpayment.KindRefund, txs[1].Kind())
	assert.Equal(t, txs[0].Amount(), txs[1].Amount(), "a compensated charge is refunded in full")
	assert.Equal(t, domainpayment.StatusSucceeded, txs[1].Status())
}

func TestCreateBooking_CancelledClientNeverCharges(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.cmds.CreateBooking(ctx, walletInput(f.train, "sleeper", 1), userID, uuid.Nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrRequestCanceled))

	assert.Equal(t, 0, f.state(t, f.train, "sleeper").Held)
	assert.Equal(t, int64(initialWallet*100), f.balance(t, userID))
}

func TestCreateBooking_FullDiscountSkipsCharge(t *testing.T) {
	f := newFixture(t)
	f.catalog.PutPromo(builder.NewAmountPromo("FREERIDE", 10_000_000))
	userID := uuid.New()

	in := walletInput(f.train, "sleeper", 1)
	in.PromoCode = " freeride "
	res, err := f.cmds.CreateBooking(context.Background(), in, userID, uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.Booking.TotalCents)
	assert.Equal(t, "FREERIDE", res.Booking.PromoCode)
	assert.Equal(t, int64(initialWallet*100), f.balance(t, userID))
	assert.Equal(t, 1, f.state(t, f.train, "sleeper").Committed)
}

func TestCreateBooking_RegeneratesCollidingPNR(t *testing.T) {
	f := newFixture(t)
	f.pnrs.seq = []string{"TRAIN0000000001", "TRAIN0000000001", "TRAIN0000000002"}

	first, err := f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 1), uuid.New(), uuid.Nil)
	require.NoError(t, err)
	second, err := f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 1), uuid.New(), uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, "TRAIN0000000001", first.Booking.PNR)
	assert.Equal(t, "TRAIN0000000002", second.Booking.PNR)
}

func TestCreateBooking_Idempotency(t *testing.T) {
	t.Run("同じキーと同じ内容は同じ予約を返す", func(t *testing.T) {
		f := newFixture(t)
		userID, key := uuid.New(), uuid.New()
		in := walletInput(f.train, "sleeper", 2)

		first, err := f.cmds.CreateBooking(context.Background(), in, userID, key)
		require.NoError(t, err)
		again, err := f.cmds.CreateBooking(context.Background(), in, userID, key)
		require.NoError(t, err)

		assert.True(t, again.IsReplayed)
		assert.Equal(t, first.Booking.ID, again.Booking.ID)
		assert.Equal(t, first.Booking.PNR, again.Booking.PNR)
		assert.Equal(t, 2, f.state(t, f.train, "sleeper").Committed, "seats are taken once")
		assert.Equal(t, int64(initialWallet*100-160000), f.balance(t, userID), "the wallet is charged once")
	})

	t.Run("同じキーで内容が違えば拒否する", func(t *testing.T) {
		f := newFixture(t)
		userID, key := uuid.New(), uuid.New()

		_, err := f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 1), userID, key)
		require.NoError(t, err)
		_, err = f.cmds.CreateBooking(context.Background(), walletInput(f.train, "sleeper", 2), userID, key)
		assert.True(t, errs.Is(err, errs.ErrIdempotencyKeyReused))
	})

	t.Run("キーはユーザーごとに独立している", func(t *testing.T) {
		f := newFixture(t)
		key := uuid.New()
		in := walletInput(f.train, "sleeper", 1)

		a, err := f.cmds.CreateBooking(context.Background(), in, uuid.New(), key)
		require.NoError(t, err)
		b, err := f.cmds.CreateBooking(context.Background(), in, uuid.New(), key)
		require.NoError(t, err)
		assert.False(t, b.IsReplayed)
		assert.NotEqual(t, a.Booking.ID, b.Booking.ID)
	})

	t.Run("失敗した試行は同じキーで再試行できる", func(t *testing.T) {
		f := newFixture(t)
		o := f.put(builder.NewOfferingBuilder().With(func(b *builder.OfferingBuilder) {
			b.Classes[1].Fare = b.Classes[1].Fare.Scale(1.5)
		}).MustBuild())
		userID, key := uuid.New(), uuid.New()
		in := walletInput(o, "ac3", 1)

		_, err := f.cmds.CreateBooking(context.Background(), in, userID, key)
		requireFailure(t, err, booking.ReasonPaymentDeclined, errs.ErrPaymentDeclined)

		_, err = f.wallets.Credit(context.Background(), userID, o.LowestFare())
		require.NoError(t, err)

		res, err := f.cmds.CreateBooking(context.Background(), in, userID, key)
		require.NoError(t, err)
		assert.False(t, res.IsReplayed)
		assert.Equal(t, booking.StatusConfirmed.String(), res.Booking.Status)
	})

	t.Run("処理中のキーは衝突として扱う", func(t *testing.T) {
		var (
			f       *fixture
			entered = make(chan struct{})
			unblock = make(chan struct{})
		)
		blocking := &funcProcessor{charge: func(_ context.Context, req domainpayment.ChargeRequest) (domainpayment.Result, error) {
			close(entered)
			<-unblock
			return domainpayment.Succeeded("ch_" + req.TransactionID.String()), nil
		}}
		f = newFixture(t, withCardProcessor(blocking))
		userID, key := uuid.New(), uuid.New()
		in := cardInput(f.train, "sleeper", 1, "pm_card")

		done := make(chan error, 1)
		go func() {
			_, err := f.cmds.CreateBooking(context.Background(), in, userID, key)
			done <- err
		}()
		<-entered

		_, err := f.cmds.CreateBooking(context.Background(), in, userID, key)
		assert.True(t, errs.Is(err, errs.ErrIdempotencyInProgress))

		close(unblock)
		require.NoError(t, <-done)
	})
}
