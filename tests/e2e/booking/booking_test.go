//go:build e2e

package booking_test

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/handler/dto/request"
	"transit-booking/internal/handler/dto/response"
	"transit-booking/internal/infra/payment"
	"transit-booking/tests/common/builder"
	"transit-booking/tests/common/dbtest"
	"transit-booking/tests/common/httptest"
	"transit-booking/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	searchURL   = "/api/bookings/search"
	quoteURL    = "/api/bookings/quote"
	bookingsURL = "/api/bookings"
	pnrURL      = "/api/bookings/%s"
	cancelURL   = "/api/bookings/%s/cancel"
	walletURL   = "/api/users/%s/wallet"
	userListURL = "/api/users/%s/bookings"
)

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Reason string         `json:"reason"`
	Detail map[string]any `json:"detail"`
}

type BookingSuite struct {
	e2e.SharedSuite
}

func TestBookingSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(BookingSuite))
}

// putTrain stores a train on its own route five days out so tests never see
// each other's offerings or the seeded catalog.
func (s *BookingSuite) putTrain(mutate func(*builder.OfferingBuilder)) (*offering.Offering, string) {
	loc := s.Config.Catalog.Location()
	y, m, d := time.Now().In(loc).AddDate(0, 0, 5).Date()
	dep := time.Date(y, m, d, 10, 0, 0, 0, loc)

	b := builder.NewOfferingBuilder().WithDeparture(dep).With(func(b *builder.OfferingBuilder) {
		suffix := uuid.NewString()[:8]
		b.Origin = "Pune " + suffix
		b.Destination = "Nagpur " + suffix
	})
	if mutate != nil {
		b = b.With(mutate)
	}
	o := b.MustBuild()
	dbtest.PutOffering(s.T(), s.DB, o)
	return o, dep.Format("2006-01-02")
}

func (s *BookingSuite) createBooking(t *testing.T, userID uuid.UUID, key uuid.UUID, body request.CreateBookingRequest) (int, []byte) {
	t.Helper()
	w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL, body,
		map[string]string{"Idempotency-Key": key.String()}, s.JWT.GenerateToken(t, userID))
	return w.Code, w.Body.Bytes()
}

func (s *BookingSuite) sleeperAvailability(t *testing.T, o *offering.Offering, date string) int {
	t.Helper()
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, searchURL,
		request.SearchRequest{Origin: o.Origin(), Destination: o.Destination(), Date: date}, "")
	var resp response.SearchResponse
	httptest.AssertSuccessResponse(t, w, http.StatusOK, &resp)
	require.Len(t, resp.Offerings, 1)
	for _, c := range resp.Offerings[0].Classes {
		if c.Class == "sleeper" {
			return c.Available
		}
	}
	t.Fatalf("sleeper class missing")
	return 0
}

func (s *BookingSuite) walletBalance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(walletURL, userID), nil, s.JWT.GenerateToken(t, userID))
	var resp response.WalletResponse
	httptest.AssertSuccessResponse(t, w, http.StatusOK, &resp)
	return resp.BalanceCents
}

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var eb errorBody
	require.NoError(t, httptest.DecodeResponseBody(t, bytes.NewBuffer(body), &eb))
	return eb
}

// =============================================================================
// TestBookingLifecycle - search, quote, book, replay, cancel
// =============================================================================

func (s *BookingSuite) TestBookingLifecycle() {
	t := s.T()
	o, date := s.putTrain(nil)
	dbtest.PutPromo(t, s.DB, builder.NewPercentPromo("E2EPCT10", 10, nil, nil))
	userID := uuid.New()
	initial := s.Config.Payment.WalletInitialBalanceCents
	promo := "e2epct10"

	s.Run("検索で空席が見える", func() {
		s.Equal(10, s.sleeperAvailability(s.T(), o, date))
	})

	s.Run("見積もりに割引が反映される", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, quoteURL,
			request.QuoteRequest{OfferingID: o.ID(), Class: "sleeper", Passengers: 2, PromoCode: &promo}, "")
		var q response.QuoteResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &q)
		s.Equal(int64(160000), q.BaseCents)
		s.Equal(int64(16000), q.DiscountCents)
		s.Equal(int64(144000), q.TotalCents)
	})

	key := uuid.New()
	body := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.OfferingID = o.ID()
		b.PromoCode = &promo
	}).BuildCreateRequestDTO()
	var pnr string

	s.Run("予約確定", func() {
		code, raw := s.createBooking(s.T(), userID, key, body)
		require.Equal(s.T(), http.StatusCreated, code, string(raw))

		var created response.CreateBookingResponse
		require.NoError(s.T(), httptest.DecodeResponseBody(s.T(), bytes.NewBuffer(raw), &created))
		s.Regexp(`^TRAIN\d{10}$`, created.PNR)
		s.Equal("confirmed", created.Status)
		s.Equal(1440.0, created.TotalAmount)
		pnr = created.PNR

		s.Equal(initial-144000, s.walletBalance(s.T(), userID))
		s.Equal(8, s.sleeperAvailability(s.T(), o, date))

		counters := dbtest.InventoryCounters(s.T(), s.DB, inventory.Key{OfferingID: o.ID(), Class: "sleeper"})
		s.Equal(inventory.State{Capacity: 10, Held: 0, Committed: 2}, counters)
	})

	s.Run("同じキーの再送は同じ予約を返す", func() {
		code, raw := s.createBooking(s.T(), userID, key, body)
		require.Equal(s.T(), http.StatusOK, code, string(raw))

		var replay response.CreateBookingResponse
		require.NoError(s.T(), httptest.DecodeResponseBody(s.T(), bytes.NewBuffer(raw), &replay))
		s.True(replay.Replayed)
		s.Equal(pnr, replay.PNR)
		s.Equal(initial-144000, s.walletBalance(s.T(), userID), "二重課金しない")
		s.Equal(8, s.sleeperAvailability(s.T(), o, date))
	})

	s.Run("同じキーで別内容は409", func() {
		other := body
		other.Passengers = other.Passengers[:1]
		code, raw := s.createBooking(s.T(), userID, key, other)
		s.Equal(http.StatusConflict, code)
		s.Equal("IdempotencyKeyReused", decodeError(s.T(), raw).Reason)
	})

	s.Run("PNRは認証なしで参照できる", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, fmt.Sprintf(pnrURL, pnr), nil, "")
		var b response.BookingResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &b)
		s.Equal("confirmed", b.Status)
		s.Equal(2, b.Seats)
		s.Equal("E2EPCT10", b.PromoCode)
	})

	s.Run("他人は取消できない", func() {
		stranger := uuid.New()
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, fmt.Sprintf(cancelURL, pnr), nil, s.JWT.GenerateToken(s.T(), stranger))
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("取消で返金と座席返却", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, fmt.Sprintf(cancelURL, pnr), nil, s.JWT.GenerateToken(s.T(), userID))
		var b response.BookingResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &b)
		s.Equal("cancelled", b.Status)
		s.Equal(int64(138000), b.RefundCents)

		s.Equal(initial-144000+138000, s.walletBalance(s.T(), userID))
		s.Equal(10, s.sleeperAvailability(s.T(), o, date))
	})

	s.Run("二重取消は409", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, fmt.Sprintf(cancelURL, pnr), nil, s.JWT.GenerateToken(s.T(), userID))
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("NotCancellable", decodeError(s.T(), w.Body.Bytes()).Reason)
	})

	s.Run("利用者の予約一覧", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, fmt.Sprintf(userListURL, userID), nil, s.JWT.GenerateToken(s.T(), userID))
		var list response.BookingListResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &list)
		require.Len(s.T(), list.Bookings, 1)
		s.Equal(pnr, list.Bookings[0].PNR)
		s.Equal("cancelled", list.Bookings[0].Status)
	})
}

// =============================================================================
// TestBookingFailures - sold out, declined card, auth
// =============================================================================

func (s *BookingSuite) TestBookingFailures() {
	s.Run("満席は402でSoldOut", func() {
		t := s.T()
		o, date := s.putTrain(func(b *builder.OfferingBuilder) { b.WithCapacity("sleeper", 1) })
		body := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
			b.OfferingID = o.ID()
			b.Passengers = b.Passengers[:1]
		}).BuildCreateRequestDTO()

		code, raw := s.createBooking(t, uuid.New(), uuid.New(), body)
		require.Equal(t, http.StatusCreated, code, string(raw))

		loser := uuid.New()
		code, raw = s.createBooking(t, loser, uuid.New(), body)
		require.Equal(t, http.StatusPaymentRequired, code, string(raw))
		eb := decodeError(t, raw)
		s.Equal("SoldOut", eb.Reason)
		s.Equal(false, eb.Detail["retryable"])
		s.NotEmpty(eb.Detail["bookingId"])
		s.Equal(0, s.sleeperAvailability(t, o, date))

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(userListURL, loser), nil, s.JWT.GenerateToken(t, loser))
		var list response.BookingListResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &list)
		require.Len(t, list.Bookings, 1)
		s.Equal("failed", list.Bookings[0].Status)
		s.Equal("SoldOut", list.Bookings[0].FailureReason)
		s.Empty(list.Bookings[0].PNR)
	})

	s.Run("カード拒否は座席を戻す", func() {
		t := s.T()
		o, date := s.putTrain(nil)
		token := payment.CardTokenDecline
		body := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
			b.OfferingID = o.ID()
			b.PaymentMethod = "card"
			b.PaymentToken = &token
		}).BuildCreateRequestDTO()

		code, raw := s.createBooking(t, uuid.New(), uuid.New(), body)
		require.Equal(t, http.StatusPaymentRequired, code, string(raw))
		s.Equal("PaymentDeclined", decodeError(t, raw).Reason)
		s.Equal(10, s.sleeperAvailability(t, o, date))
	})

	s.Run("認証なしは401", func() {
		body := builder.NewBookingBuilder().BuildCreateRequestDTO()
		w := httptest.PerformRequestWithHeaders(s.T(), s.Router, http.MethodPost, bookingsURL, body,
			map[string]string{"Idempotency-Key": uuid.NewString()}, "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("他人のウォレットは403", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, fmt.Sprintf(walletURL, uuid.New()), nil, s.JWT.GenerateToken(s.T(), uuid.New()))
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("存在しないPNRは404", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, fmt.Sprintf(pnrURL, "TRAIN0000000000"), nil, "")
		s.Equal(http.StatusNotFound, w.Code)
	})
}

// =============================================================================
// TestConcurrentBookingsNeverOversell
// =============================================================================

func (s *BookingSuite) TestConcurrentBookingsNeverOversell() {
	t := s.T()
	const riders = 10
	o, date := s.putTrain(func(b *builder.OfferingBuilder) { b.WithCapacity("sleeper", 3) })
	body := builder.NewBookingBuilder().With(func(b *builder.BookingBuilder) {
		b.OfferingID = o.ID()
		b.Passengers = b.Passengers[:1]
	}).BuildCreateRequestDTO()

	codes := make([]int, riders)
	var wg sync.WaitGroup
	for i := range riders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i], _ = s.createBooking(t, uuid.New(), uuid.New(), body)
		}()
	}
	wg.Wait()

	created, soldOut := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusPaymentRequired:
			soldOut++
		}
	}
	assert.Equal(t, 3, created)
	assert.Equal(t, riders-3, soldOut)
	assert.Equal(t, 0, s.sleeperAvailability(t, o, date))

	counters := dbtest.InventoryCounters(t, s.DB, inventory.Key{OfferingID: o.ID(), Class: "sleeper"})
	assert.Equal(t, inventory.State{Capacity: 3, Held: 0, Committed: 3}, counters)
}
