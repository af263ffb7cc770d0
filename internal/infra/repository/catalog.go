package repository

import (
	"context"
	"strings"

	"transit-booking/internal/domain/fare"
	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/domain/offering"
	"transit-booking/internal/infra"
	"transit-booking/internal/infra/db"
	"transit-booking/internal/pkg/money"
	"transit-booking/internal/pkg/pgconv"
	"transit-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	offeringColumns = `id, kind, name, operator, origin, destination, departure_time, arrival_time,
       base_fare_cents, per_km_rate_cents, distance_km, zone_fare_cents, max_passengers`

	searchOfferingsSQL = `
SELECT ` + offeringColumns + `
  FROM offerings
 WHERE lower(origin) = lower($1)
   AND lower(destination) = lower($2)
   AND ($3::text IS NULL OR kind = $3)
   AND (departure_time IS NULL OR (departure_time >= $4 AND departure_time < $5))`

	getOfferingSQL = `SELECT ` + offeringColumns + ` FROM offerings WHERE id = $1`

	classesSQL = `
SELECT offering_id, class, fare_cents, capacity
  FROM offering_classes
 WHERE offering_id = ANY($1)
 ORDER BY offering_id, fare_cents DESC`

	capacitySQL = `SELECT capacity FROM offering_classes WHERE offering_id = $1 AND class = $2`

	getPromoSQL = `SELECT code, amount_off_cents, percent_off, valid_from, valid_to FROM promos WHERE code = $1`

	insertOfferingSQL = `
INSERT INTO offerings (id, kind, name, operator, origin, destination, departure_time, arrival_time,
                       base_fare_cents, per_km_rate_cents, distance_km, zone_fare_cents, max_passengers)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING`

	insertClassSQL = `
INSERT INTO offering_classes (offering_id, class, fare_cents, capacity)
VALUES ($1, $2, $3, $4)
ON CONFLICT (offering_id, class) DO NOTHING`

	insertInventorySQL = `
INSERT INTO inventory (offering_id, class, capacity)
VALUES ($1, $2, $3)
ON CONFLICT (offering_id, class) DO NOTHING`

	upsertPromoSQL = `
INSERT INTO promos (code, amount_off_cents, percent_off, valid_from, valid_to)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (code) DO UPDATE
   SET amount_off_cents = EXCLUDED.amount_off_cents,
       percent_off = EXCLUDED.percent_off,
       valid_from = EXCLUDED.valid_from,
       valid_to = EXCLUDED.valid_to`

	countOfferingsSQL = `SELECT COUNT(*) FROM offerings`
)

// CatalogRepository stores offerings with their class table and creates the
// matching inventory counter rows in the same transaction.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

type offeringRow struct {
	id             uuid.UUID
	kind           string
	name           string
	operator       string
	origin         string
	destination    string
	departureTime  pgtype.Timestamptz
	arrivalTime    pgtype.Timestamptz
	baseFareCents  int64
	perKmRateCents int64
	distanceKm     float64
	zoneFareCents  int64
	maxPassengers  int
}

func scanOffering(row pgx.Row) (offeringRow, error) {
	var r offeringRow
	err := row.Scan(
		&r.id, &r.kind, &r.name, &r.operator, &r.origin, &r.destination,
		&r.departureTime, &r.arrivalTime,
		&r.baseFareCents, &r.perKmRateCents, &r.distanceKm, &r.zoneFareCents, &r.maxPassengers,
	)
	return r, err
}

func (r offeringRow) toDomain(classes []offering.ClassSpec) (*offering.Offering, error) {
	kind, err := offering.ParseKind(r.kind)
	if err != nil {
		return nil, err
	}
	return offering.ReconstructOffering(
		r.id, kind, r.name, r.operator, r.origin, r.destination,
		pgconv.TimePtrFromPgtype(r.departureTime), pgconv.TimePtrFromPgtype(r.arrivalTime),
		classes,
		offering.Pricing{
			BaseFare:      money.FromCents(r.baseFareCents),
			PerKmRate:     money.FromCents(r.perKmRateCents),
			DistanceKm:    r.distanceKm,
			ZoneFare:      money.FromCents(r.zoneFareCents),
			MaxPassengers: r.maxPassengers,
		},
	)
}

func (r *CatalogRepository) Search(ctx context.Context, criteria shared.SearchCriteria) ([]*offering.Offering, error) {
	var kind pgtype.Text
	if criteria.Kind != nil {
		kind = pgconv.StringToPgtype(criteria.Kind.String())
	}
	dayEnd := criteria.Date.AddDate(0, 0, 1)

	rows, err := r.pool.Query(ctx, searchOfferingsSQL,
		strings.TrimSpace(criteria.Origin), strings.TrimSpace(criteria.Destination),
		kind, criteria.Date, dayEnd,
	)
	if err != nil {
		return nil, wrapErr("failed to search offerings", err)
	}
	defer rows.Close()

	var found []offeringRow
	for rows.Next() {
		row, err := scanOffering(rows)
		if err != nil {
			return nil, wrapErr("failed to scan offering", err)
		}
		found = append(found, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate offerings", err)
	}

	return r.withClasses(ctx, found)
}

func (r *CatalogRepository) Get(ctx context.Context, id uuid.UUID) (*offering.Offering, error) {
	row, err := scanOffering(r.pool.QueryRow(ctx, getOfferingSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NewRepoErr(infra.KindNotFound, "offering not found")
		}
		return nil, wrapErr("failed to get offering", err)
	}

	out, err := r.withClasses(ctx, []offeringRow{row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *CatalogRepository) withClasses(ctx context.Context, found []offeringRow) ([]*offering.Offering, error) {
	if len(found) == 0 {
		return []*offering.Offering{}, nil
	}
	ids := make([]uuid.UUID, len(found))
	for i, o := range found {
		ids[i] = o.id
	}

	rows, err := r.pool.Query(ctx, classesSQL, ids)
	if err != nil {
		return nil, wrapErr("failed to load offering classes", err)
	}
	defer rows.Close()

	classes := make(map[uuid.UUID][]offering.ClassSpec, len(found))
	for rows.Next() {
		var (
			offeringID uuid.UUID
			class      string
			fareCents  int64
			capacity   int
		)
		if err := rows.Scan(&offeringID, &class, &fareCents, &capacity); err != nil {
			return nil, wrapErr("failed to scan offering class", err)
		}
		classes[offeringID] = append(classes[offeringID], offering.ClassSpec{
			Class:    offering.Class(class),
			Fare:     money.FromCents(fareCents),
			Capacity: capacity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate offering classes", err)
	}

	out := make([]*offering.Offering, 0, len(found))
	for _, row := range found {
		o, err := row.toDomain(classes[row.id])
		if err != nil {
			return nil, infra.WrapRepoErr("stored offering is invalid", err)
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *CatalogRepository) PromoByCode(ctx context.Context, code string) (*fare.Promo, error) {
	var (
		storedCode string
		amountOff  pgtype.Int8
		percentOff pgtype.Float8
		validFrom  pgtype.Timestamptz
		validTo    pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, getPromoSQL, strings.ToUpper(strings.TrimSpace(code))).
		Scan(&storedCode, &amountOff, &percentOff, &validFrom, &validTo)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NewRepoErr(infra.KindNotFound, "promo not found")
		}
		return nil, wrapErr("failed to get promo", err)
	}

	pct, err := pgconv.Float64PtrFromPgtype(percentOff)
	if err != nil {
		return nil, infra.WrapRepoErr("stored promo is invalid", err)
	}
	p, err := fare.NewPromo(storedCode, pgconv.Int64PtrFromPgtype(amountOff), pct,
		pgconv.TimePtrFromPgtype(validFrom), pgconv.TimePtrFromPgtype(validTo))
	if err != nil {
		return nil, infra.WrapRepoErr("stored promo is invalid", err)
	}
	return p, nil
}

func (r *CatalogRepository) Capacity(ctx context.Context, key inventory.Key) (int, error) {
	var capacity int
	err := r.pool.QueryRow(ctx, capacitySQL, key.OfferingID, key.Class.String()).Scan(&capacity)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return 0, infra.NewRepoErr(infra.KindNotFound, "class not offered")
		}
		return 0, wrapErr("failed to get capacity", err)
	}
	return capacity, nil
}

// Put stores an offering, its classes and a zeroed inventory row per class.
func (r *CatalogRepository) Put(ctx context.Context, o *offering.Offering) error {
	_, err := db.RunInTx(ctx, r.pool, pgx.TxOptions{}, func(tx db.DBTX) (struct{}, error) {
		p := o.Pricing()
		if _, err := tx.Exec(ctx, insertOfferingSQL,
			o.ID(), o.Kind().String(), o.Name(), o.Operator(), o.Origin(), o.Destination(),
			pgconv.TimePtrToPgtype(o.DepartureTime()), pgconv.TimePtrToPgtype(o.ArrivalTime()),
			p.BaseFare.Cents(), p.PerKmRate.Cents(), p.DistanceKm, p.ZoneFare.Cents(), p.MaxPassengers,
		); err != nil {
			return struct{}{}, wrapErr("failed to insert offering", err)
		}
		for _, cs := range o.Classes() {
			if _, err := tx.Exec(ctx, insertClassSQL, o.ID(), cs.Class.String(), cs.Fare.Cents(), cs.Capacity); err != nil {
				return struct{}{}, wrapErr("failed to insert offering class", err)
			}
			if _, err := tx.Exec(ctx, insertInventorySQL, o.ID(), cs.Class.String(), cs.Capacity); err != nil {
				return struct{}{}, wrapErr("failed to insert inventory", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (r *CatalogRepository) PutPromo(ctx context.Context, p *fare.Promo) error {
	d := p.Discount()
	_, err := r.pool.Exec(ctx, upsertPromoSQL,
		p.Code(),
		pgconv.Int64PtrToPgtype(d.AmountOffCents()),
		pgconv.Float64PtrToPgtype(d.PercentOff()),
		pgconv.TimePtrToPgtype(p.ValidFrom()),
		pgconv.TimePtrToPgtype(p.ValidTo()),
	)
	if err != nil {
		return wrapErr("failed to upsert promo", err)
	}
	return nil
}

// IsEmpty reports whether no offering has been stored yet.
func (r *CatalogRepository) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countOfferingsSQL).Scan(&n); err != nil {
		return false, wrapErr("failed to count offerings", err)
	}
	return n == 0, nil
}
