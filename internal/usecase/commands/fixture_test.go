//go:build unit

package commands_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	domainpayment "transit-booking/internal/domain/payment"
	"transit-booking/internal/infra/ledger"
	"transit-booking/internal/infra/memstore"
	"transit-booking/internal/infra/payment"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/pkg/config"
	"transit-booking/internal/pkg/money"
	"transit-booking/internal/usecase/commands"
	"transit-booking/internal/usecase/shared"
	"transit-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const initialWallet = 2500 // major units

type recordingNotifier struct {
	mu     sync.Mutex
	events []booking.Event
}

func (n *recordingNotifier) Publish(_ context.Context, e booking.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) types() []booking.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]booking.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

// sequencePNRs replays fixed PNRs, then falls back to random ones.
type sequencePNRs struct {
	mu   sync.Mutex
	seq  []string
	rand *booking.RandomPNRGenerator
}

func (g *sequencePNRs) Generate(kind offering.Kind) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.seq) > 0 {
		next := g.seq[0]
		g.seq = g.seq[1:]
		return next, nil
	}
	return g.rand.Generate(kind)
}

// funcProcessor lets a test decide the outcome of a card charge and of
// voiding it.
type funcProcessor struct {
	charge func(ctx context.Context, req domainpayment.ChargeRequest) (domainpayment.Result, error)
	void   func(ctx context.Context, req domainpayment.RefundRequest) (domainpayment.Result, error)
}

func (p *funcProcessor) Method() domainpayment.Method { return domainpayment.MethodCard }

func (p *funcProcessor) Charge(ctx context.Context, req domainpayment.ChargeRequest) (domainpayment.Result, error) {
	return p.charge(ctx, req)
}

func (p *funcProcessor) Refund(_ context.Context, req domainpayment.RefundRequest) (domainpayment.Result, error) {
	return domainpayment.Succeeded("refund_" + req.TransactionID.String()), nil
}

func (p *funcProcessor) Void(ctx context.Context, req domainpayment.RefundRequest) (domainpayment.Result, error) {
	if p.void == nil {
		return p.Refund(ctx, req)
	}
	return p.void(ctx, req)
}

type fixture struct {
	cmds         commands.BookingCommands
	catalog      *memstore.Catalog
	ledger       *ledger.MemoryLedger
	bookings     *memstore.BookingStore
	transactions *memstore.TransactionStore
	idempotency  *memstore.IdempotencyStore
	wallets      *memstore.WalletStore
	notifier     *recordingNotifier
	pnrs         *sequencePNRs
	clock        *clock.MockClock
	cfg          config.Config
	train        *offering.Offering
}

type fixtureOption func(*fixtureOptions)

type fixtureOptions struct {
	card           payment.Processor
	paymentTimeout time.Duration
}

func withCardProcessor(p payment.Processor) fixtureOption {
	return func(o *fixtureOptions) { o.card = p }
}

func withPaymentTimeout(d time.Duration) fixtureOption {
	return func(o *fixtureOptions) { o.paymentTimeout = d }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	options := fixtureOptions{paymentTimeout: 2 * time.Second}
	for _, opt := range opts {
		opt(&options)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewMockClock(time.Now())
	cfg := config.NewTestConfig()
	cfg.Payment.Timeout = options.paymentTimeout

	f := &fixture{
		catalog:      memstore.NewCatalog(),
		bookings:     memstore.NewBookingStore(),
		transactions: memstore.NewTransactionStore(),
		idempotency:  memstore.NewIdempotencyStore(clk),
		wallets:      memstore.NewWalletStore(money.FromMajor(initialWallet)),
		notifier:     &recordingNotifier{},
		pnrs:         &sequencePNRs{rand: booking.NewRandomPNRGenerator()},
		clock:        clk,
		cfg:          cfg,
	}
	f.ledger = ledger.NewMemoryLedger(f.catalog, clk, cfg.Ledger.HoldTTL, logger)

	card := options.card
	if card == nil {
		card = payment.NewSimulatedCardProcessor(0, money.FromMajor(100000))
	}
	gateway := payment.NewGateway(logger, []payment.Processor{
		payment.NewWalletProcessor(f.wallets),
		card,
		payment.NewUPIProcessor(0, time.Millisecond, money.FromMajor(100000)),
	})

	f.train = builder.NewOfferingBuilder().WithDeparture(clk.Now().Add(72 * time.Hour)).MustBuild()
	f.catalog.Put(f.train)

	pricer := shared.NewPricer(f.catalog, fare.NewRuleCalculator(), clk)
	f.cmds = commands.NewBookingCommands(
		pricer, f.ledger, gateway, f.bookings, f.transactions, f.idempotency, f.notifier,
		f.pnrs, booking.NewTieredRefundPolicy(), cfg, clk, logger,
	)
	return f
}

func (f *fixture) put(o *offering.Offering) *offering.Offering {
	f.catalog.Put(o)
	return o
}

func (f *fixture) state(t *testing.T, o *offering.Offering, class offering.Class) inventory.State {
	t.Helper()
	st, err := f.ledger.State(context.Background(), inventory.Key{OfferingID: o.ID(), Class: class})
	require.NoError(t, err)
	return st
}

func (f *fixture) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	b, err := f.wallets.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b.Cents()
}

func (f *fixture) transactionsFor(t *testing.T, bookingID uuid.UUID) []*domainpayment.Transaction {
	t.Helper()
	txs, err := f.transactions.ListForBooking(context.Background(), bookingID)
	require.NoError(t, err)
	return txs
}

func passengers(n int) []booking.PassengerInput {
	out := make([]booking.PassengerInput, n)
	names := []string{"Asha Rao", "Vikram Singh", "Meera Iyer", "Kabir Das", "Nisha Patel", "Arjun Menon"}
	for i := range out {
		out[i] = booking.PassengerInput{Name: names[i%len(names)], Age: 25 + i, Gender: "other"}
	}
	return out
}

func walletInput(o *offering.Offering, class string, n int) commands.CreateBookingInput {
	return commands.CreateBookingInput{
		OfferingID:    o.ID(),
		Class:         class,
		Passengers:    passengers(n),
		PaymentMethod: "wallet",
	}
}

func cardInput(o *offering.Offering, class string, n int, token string) commands.CreateBookingInput {
	in := walletInput(o, class, n)
	in.PaymentMethod = "card"
	in.PaymentToken = token
	return in
}
