package repository

import (
	"context"

	"transit-booking/internal/domain/booking"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/domain/payment"
	"transit-booking/internal/infra"
	"transit-booking/internal/infra/db"
	"transit-booking/internal/pkg/money"
	"transit-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	bookingColumns = `id, pnr, user_id, offering_id, offering_kind, origin, destination, departure_time,
       class, seats, total_cents, promo_code, payment_method, payment_ref, hold_id,
       status, stage, failure_reason, refund_cents, created_at, updated_at, cancelled_at`

	insertBookingSQL = `
INSERT INTO bookings (id, pnr, user_id, offering_id, offering_kind, origin, destination, departure_time,
                      class, seats, total_cents, promo_code, payment_method, payment_ref, hold_id,
                      status, stage, failure_reason, refund_cents, created_at, updated_at, cancelled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	insertPassengerSQL = `
INSERT INTO booking_passengers (booking_id, position, name, age, gender)
VALUES ($1, $2, $3, $4, $5)`

	markCancelledSQL = `
UPDATE bookings
   SET status = $2, refund_cents = $3, cancelled_at = $4, updated_at = $5
 WHERE id = $1 AND status = 'confirmed'`

	bookingExistsSQL = `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`

	getBookingByPNRSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE pnr = $1`
	getBookingByIDSQL  = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	listBookingsForUserSQL = `
SELECT ` + bookingColumns + `
  FROM bookings
 WHERE user_id = $1
 ORDER BY created_at DESC, id`

	listBookingsForOfferingSQL = `
SELECT ` + bookingColumns + `
  FROM bookings
 WHERE offering_id = $1
 ORDER BY created_at DESC, id`

	passengersSQL = `
SELECT booking_id, name, age, gender
  FROM booking_passengers
 WHERE booking_id = ANY($1)
 ORDER BY booking_id, position`
)

// BookingRepository persists bookings append-only; the only update it performs
// is the confirmed-to-cancelled transition.
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	_, err := db.RunInTx(ctx, r.pool, pgx.TxOptions{}, func(tx db.DBTX) (struct{}, error) {
		var pnr pgtype.Text
		if b.PNR() != "" {
			pnr = pgconv.StringToPgtype(b.PNR())
		}
		ref := b.Offering()
		if _, err := tx.Exec(ctx, insertBookingSQL,
			b.ID(), pnr, b.UserID(), ref.ID, ref.Kind.String(), ref.Origin, ref.Destination,
			pgconv.TimePtrToPgtype(ref.DepartureTime),
			b.Class().String(), b.Seats(), b.TotalAmount().Cents(), b.PromoCode(),
			b.PaymentMethod().String(), b.PaymentRef(), pgconv.UUIDToPgtype(b.HoldID()),
			b.Status().String(), string(b.Stage()), b.FailureReason().String(), b.RefundAmount().Cents(),
			b.CreatedAt(), b.UpdatedAt(), pgconv.TimePtrToPgtype(b.CancelledAt()),
		); err != nil {
			return struct{}{}, wrapErr("failed to insert booking", err)
		}

		for i, p := range b.Passengers() {
			if _, err := tx.Exec(ctx, insertPassengerSQL, b.ID(), i, p.Name, p.Age, string(p.Gender)); err != nil {
				return struct{}{}, wrapErr("failed to insert passenger", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (r *BookingRepository) MarkCancelled(ctx context.Context, b *booking.Booking) error {
	if b.Status() != booking.StatusCancelled {
		return infra.NewRepoErr(infra.KindConflict, "booking is not cancelled")
	}
	tag, err := r.pool.Exec(ctx, markCancelledSQL,
		b.ID(), b.Status().String(), b.RefundAmount().Cents(),
		pgconv.TimePtrToPgtype(b.CancelledAt()), b.UpdatedAt(),
	)
	if err != nil {
		return wrapErr("failed to cancel booking", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, bookingExistsSQL, b.ID()).Scan(&exists); err != nil {
		return wrapErr("failed to check booking", err)
	}
	if !exists {
		return infra.NewRepoErr(infra.KindNotFound, "booking not found")
	}
	return infra.NewRepoErr(infra.KindConflict, "booking is not confirmed")
}

func (r *BookingRepository) GetByPNR(ctx context.Context, pnr string) (*booking.Booking, error) {
	return r.getOne(ctx, getBookingByPNRSQL, pnr)
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.getOne(ctx, getBookingByIDSQL, id)
}

func (r *BookingRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*booking.Booking, error) {
	return r.list(ctx, listBookingsForUserSQL, userID)
}

func (r *BookingRepository) ListForOffering(ctx context.Context, offeringID uuid.UUID) ([]*booking.Booking, error) {
	return r.list(ctx, listBookingsForOfferingSQL, offeringID)
}

func (r *BookingRepository) getOne(ctx context.Context, query string, arg any) (*booking.Booking, error) {
	row, err := scanBooking(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NewRepoErr(infra.KindNotFound, "booking not found")
		}
		return nil, wrapErr("failed to get booking", err)
	}
	out, err := r.withPassengers(ctx, []bookingRow{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *BookingRepository) list(ctx context.Context, query string, arg any) ([]*booking.Booking, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, wrapErr("failed to list bookings", err)
	}
	defer rows.Close()

	var found []bookingRow
	for rows.Next() {
		row, err := scanBooking(rows)
		if err != nil {
			return nil, wrapErr("failed to scan booking", err)
		}
		found = append(found, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate bookings", err)
	}
	return r.withPassengers(ctx, found)
}

func (r *BookingRepository) withPassengers(ctx context.Context, found []bookingRow) ([]*booking.Booking, error) {
	if len(found) == 0 {
		return []*booking.Booking{}, nil
	}
	ids := make([]uuid.UUID, len(found))
	for i, b := range found {
		ids[i] = b.id
	}

	rows, err := r.pool.Query(ctx, passengersSQL, ids)
	if err != nil {
		return nil, wrapErr("failed to load passengers", err)
	}
	defer rows.Close()

	passengers := make(map[uuid.UUID][]booking.Passenger, len(found))
	for rows.Next() {
		var (
			bookingID uuid.UUID
			p         booking.Passenger
			gender    string
		)
		if err := rows.Scan(&bookingID, &p.Name, &p.Age, &gender); err != nil {
			return nil, wrapErr("failed to scan passenger", err)
		}
		p.Gender = booking.Gender(gender)
		passengers[bookingID] = append(passengers[bookingID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate passengers", err)
	}

	out := make([]*booking.Booking, 0, len(found))
	for _, row := range found {
		out = append(out, row.toDomain(passengers[row.id]))
	}
	return out, nil
}

type bookingRow struct {
	id            uuid.UUID
	pnr           pgtype.Text
	userID        uuid.UUID
	offeringID    uuid.UUID
	offeringKind  string
	origin        string
	destination   string
	departureTime pgtype.Timestamptz
	class         string
	seats         int
	totalCents    int64
	promoCode     string
	paymentMethod string
	paymentRef    string
	holdID        pgtype.UUID
	status        string
	stage         string
	failureReason string
	refundCents   int64
	createdAt     pgtype.Timestamptz
	updatedAt     pgtype.Timestamptz
	cancelledAt   pgtype.Timestamptz
}

func scanBooking(row pgx.Row) (bookingRow, error) {
	var b bookingRow
	err := row.Scan(
		&b.id, &b.pnr, &b.userID, &b.offeringID, &b.offeringKind, &b.origin, &b.destination, &b.departureTime,
		&b.class, &b.seats, &b.totalCents, &b.promoCode, &b.paymentMethod, &b.paymentRef, &b.holdID,
		&b.status, &b.stage, &b.failureReason, &b.refundCents, &b.createdAt, &b.updatedAt, &b.cancelledAt,
	)
	return b, err
}

func (b bookingRow) toDomain(passengers []booking.Passenger) *booking.Booking {
	var holdID uuid.UUID
	if id := pgconv.UUIDPtrFromPgtype(b.holdID); id != nil {
		holdID = *id
	}
	return booking.ReconstructBooking(booking.ReconstructParams{
		ID:     b.id,
		PNR:    b.pnr.String,
		UserID: b.userID,
		Offering: booking.OfferingRef{
			ID:            b.offeringID,
			Kind:          offering.Kind(b.offeringKind),
			Origin:        b.origin,
			Destination:   b.destination,
			DepartureTime: pgconv.TimePtrFromPgtype(b.departureTime),
		},
		Class:         offering.Class(b.class),
		Passengers:    passengers,
		Seats:         b.seats,
		TotalAmount:   money.FromCents(b.totalCents),
		PromoCode:     b.promoCode,
		PaymentMethod: payment.Method(b.paymentMethod),
		PaymentRef:    b.paymentRef,
		HoldID:        holdID,
		Status:        booking.Status(b.status),
		Stage:         booking.Stage(b.stage),
		FailureReason: booking.FailureReason(b.failureReason),
		RefundAmount:  money.FromCents(b.refundCents),
		CreatedAt:     pgconv.TimeFromPgtype(b.createdAt),
		UpdatedAt:     pgconv.TimeFromPgtype(b.updatedAt),
		CancelledAt:   pgconv.TimePtrFromPgtype(b.cancelledAt),
	})
}
