package artwork

import (
	"context"
	"errors"
	"fmt"

	"altelier/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const artworkColumns = `id::text, slug, title, COALESCE(artist, ''), COALESCE(description, ''), price_cents, currency, available, sold_order_id::text, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Artwork, error) {
	q := fmt.Sprintf("SELECT %s FROM artworks ORDER BY created_at DESC", artworkColumns)
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list artworks: %w", err)
	}
	defer rows.Close()
	return scanArtworks(rows)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Artwork, error) {
	q := fmt.Sprintf("SELECT %s FROM artworks WHERE id = $1", artworkColumns)
	a, err := scanArtwork(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select artwork %s: %w", id, err)
	}
	return a, nil
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Artwork, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf("SELECT %s FROM artworks WHERE id = ANY($1)", artworkColumns)
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("select artworks: %w", err)
	}
	defer rows.Close()
	return scanArtworks(rows)
}

func (r *postgresRepo) Upsert(ctx context.Context, a domain.Artwork) (*domain.Artwork, error) {
	const q = `
INSERT INTO artworks (id, slug, title, artist, description, price_cents, currency, available)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
ON CONFLICT (slug) DO UPDATE SET
    title = EXCLUDED.title,
    artist = EXCLUDED.artist,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency
RETURNING id::text, available, created_at
`
	res := a
	err := r.pool.QueryRow(ctx, q,
		a.ID, a.Slug, a.Title, a.Artist, a.Description, a.PriceCents, a.Currency, a.Available,
	).Scan(&res.ID, &res.Available, &res.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("slug", a.Slug).Msg("artwork repo: upsert failed")
		return nil, fmt.Errorf("upsert artwork %s: %w", a.Slug, err)
	}
	return &res, nil
}

func (r *postgresRepo) MarkSold(ctx context.Context, artworkID, orderID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE artworks
SET available = FALSE, sold_order_id = $2
WHERE id = $1 AND available = TRUE
`, artworkID, orderID)
	if err != nil {
		return fmt.Errorf("mark artwork %s sold: %w", artworkID, err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	// Lost the compare-and-swap, or the artwork does not exist. A repeat
	// for the same winning order is idempotent.
	var soldTo *string
	err = r.pool.QueryRow(ctx, `SELECT sold_order_id::text FROM artworks WHERE id = $1`, artworkID).Scan(&soldTo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("check artwork %s: %w", artworkID, err)
	}
	if soldTo != nil && *soldTo == orderID {
		return nil
	}
	return domain.ErrArtworkAlreadySold
}

func (r *postgresRepo) RecordFulfillmentException(ctx context.Context, exc domain.FulfillmentException) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO fulfillment_exceptions (order_id, artwork_id, detail)
VALUES ($1, $2, $3)
`, exc.OrderID, exc.ArtworkID, exc.Detail)
	if err != nil {
		return fmt.Errorf("record fulfillment exception: %w", err)
	}
	return nil
}

func scanArtwork(row pgx.Row) (*domain.Artwork, error) {
	var a domain.Artwork
	if err := row.Scan(
		&a.ID, &a.Slug, &a.Title, &a.Artist, &a.Description,
		&a.PriceCents, &a.Currency, &a.Available, &a.SoldOrderID, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanArtworks(rows pgx.Rows) ([]domain.Artwork, error) {
	var result []domain.Artwork
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
