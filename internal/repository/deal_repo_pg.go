package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyops/emptylegs/internal/domain"
)

// UpsertOutcome tells the reconciler what a provider upsert actually did, so
// re-running against an identical snapshot reports zero net changes.
type UpsertOutcome int

const (
	UpsertUnchanged UpsertOutcome = iota
	UpsertCreated
	UpsertUpdated
)

type DealRepository interface {
	ListLive(ctx context.Context) ([]domain.Deal, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Deal, error)
	GetByID(ctx context.Context, id int64) (*domain.Deal, error)
	UpsertProvider(ctx context.Context, deal *domain.Deal) (UpsertOutcome, error)
	DeleteProviderMissingFrom(ctx context.Context, externalIDs []string) (int64, error)
	ExpireDeparted(ctx context.Context, now time.Time) (int64, error)
}

type PGDealRepository struct {
	db *pgxpool.Pool
}

func NewDealRepository(db *pgxpool.Pool) DealRepository {
	return &PGDealRepository{db: db}
}

const dealColumns = `id, external_id, slug, from_location, to_location, departure_time, aircraft, total_seats, available_seats, original_price_cents, discount_price_cents, source, status, created_at, updated_at`

func scanDeal(row pgx.Row) (*domain.Deal, error) {
	var d domain.Deal
	if err := row.Scan(&d.ID, &d.ExternalID, &d.Slug, &d.FromLocation, &d.ToLocation, &d.DepartureTime, &d.Aircraft, &d.TotalSeats, &d.AvailableSeats, &d.OriginalPriceCents, &d.DiscountPriceCents, &d.Source, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PGDealRepository) ListLive(ctx context.Context) ([]domain.Deal, error) {
	rows, err := r.db.Query(ctx, `SELECT `+dealColumns+` FROM deals WHERE status IN ('PUBLISHED', 'OPEN') ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := make([]domain.Deal, 0)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

func (r *PGDealRepository) GetBySlug(ctx context.Context, slug string) (*domain.Deal, error) {
	d, err := scanDeal(r.db.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE slug=$1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return d, err
}

func (r *PGDealRepository) GetByID(ctx context.Context, id int64) (*domain.Deal, error) {
	d, err := scanDeal(r.db.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return d, err
}

// UpsertProvider inserts or updates a PROVIDER deal keyed on external_id.
// The DO UPDATE is filtered on IS DISTINCT FROM so an identical snapshot row
// touches nothing and reports UpsertUnchanged; xmax distinguishes a fresh
// insert from an update on the rows that do come back.
func (r *PGDealRepository) UpsertProvider(ctx context.Context, deal *domain.Deal) (UpsertOutcome, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO deals (external_id, slug, from_location, to_location, departure_time, aircraft, total_seats, available_seats, original_price_cents, discount_price_cents, source, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'PROVIDER', 'PUBLISHED')
		ON CONFLICT (external_id) DO UPDATE SET
			from_location = EXCLUDED.from_location,
			to_location = EXCLUDED.to_location,
			departure_time = EXCLUDED.departure_time,
			aircraft = EXCLUDED.aircraft,
			total_seats = EXCLUDED.total_seats,
			available_seats = EXCLUDED.available_seats,
			original_price_cents = EXCLUDED.original_price_cents,
			discount_price_cents = EXCLUDED.discount_price_cents,
			updated_at = now()
		WHERE (deals.from_location, deals.to_location, deals.departure_time, deals.aircraft, deals.total_seats, deals.available_seats, deals.original_price_cents, deals.discount_price_cents)
			IS DISTINCT FROM
			(EXCLUDED.from_location, EXCLUDED.to_location, EXCLUDED.departure_time, EXCLUDED.aircraft, EXCLUDED.total_seats, EXCLUDED.available_seats, EXCLUDED.original_price_cents, EXCLUDED.discount_price_cents)
		RETURNING id, (xmax = 0) AS inserted`,
		deal.ExternalID, deal.Slug, deal.FromLocation, deal.ToLocation, deal.DepartureTime, deal.Aircraft, deal.TotalSeats, deal.AvailableSeats, deal.OriginalPriceCents, deal.DiscountPriceCents)

	var inserted bool
	err := row.Scan(&deal.ID, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return UpsertUnchanged, nil
	}
	if err != nil {
		return UpsertUnchanged, err
	}
	if inserted {
		return UpsertCreated, nil
	}
	return UpsertUpdated, nil
}

// DeleteProviderMissingFrom hard-removes PROVIDER deals whose external id is
// absent from the given snapshot set. The provider is the sole source of
// truth for its own inventory, so a missing item is no longer sellable.
func (r *PGDealRepository) DeleteProviderMissingFrom(ctx context.Context, externalIDs []string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM deals WHERE source='PROVIDER' AND NOT (external_id = ANY($1))`, externalIDs)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// ExpireDeparted retires internally and operator sourced deals whose
// departure has passed. Provider deals are excluded: their removal belongs
// to the reconciler's delete step.
func (r *PGDealRepository) ExpireDeparted(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE deals SET status='EXPIRED', updated_at=now()
		WHERE departure_time < $1
		  AND status IN ('PUBLISHED', 'OPEN')
		  AND source IN ('INTERNAL', 'OPERATOR')`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

var _ DealRepository = (*PGDealRepository)(nil)
