package order

import (
	"context"
	"errors"
	"fmt"

	"altelier/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
id::text, order_number, status, payment_method, currency,
subtotal_cents, shipping_fee_cents, total_cents,
contact_name, contact_email, contact_phone,
ship_first_name, ship_last_name, ship_country, ship_street_name, ship_postal_code, ship_city,
payment_intent_id, payment_reference, failure_reason, transfer_declared_at,
created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, o *domain.Order, idempotencyKey string) (*domain.Order, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertOrder = `
INSERT INTO orders (
	id, order_number, idempotency_key, status, payment_method, currency,
	subtotal_cents, shipping_fee_cents, total_cents,
	contact_name, contact_email, contact_phone,
	ship_first_name, ship_last_name, ship_country, ship_street_name, ship_postal_code, ship_city
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING created_at, updated_at
`
	err = tx.QueryRow(ctx, insertOrder,
		o.ID, o.Number, idempotencyKey, string(o.Status), string(o.PaymentMethod), o.Currency,
		o.SubtotalCents, o.ShippingFeeCents, o.TotalCents,
		o.Contact.Name, o.Contact.Email, o.Contact.Phone,
		o.ShippingAddress.FirstName, o.ShippingAddress.LastName, o.ShippingAddress.Country,
		o.ShippingAddress.StreetName, o.ShippingAddress.PostalCode, o.ShippingAddress.City,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Idempotency-key conflict: the order already exists. Return
			// it instead of creating a duplicate.
			existing, getErr := r.getBy(ctx, "idempotency_key = $1", idempotencyKey)
			if getErr != nil {
				return nil, false, getErr
			}
			r.logger.Info().Str("order_id", existing.ID).Msg("order repo: reused order for idempotency key")
			return existing, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key" {
			return nil, false, domain.ErrDuplicateOrderNumber
		}
		return nil, false, fmt.Errorf("insert order: %w", err)
	}

	const insertLine = `
INSERT INTO order_lines (id, order_id, artwork_id, artwork_title, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at
`
	for i := range o.Lines {
		line := &o.Lines[i]
		line.OrderID = o.ID
		if err := tx.QueryRow(ctx, insertLine,
			line.ID, o.ID, line.ArtworkID, line.ArtworkTitle,
			line.Quantity, line.UnitPriceCents, line.TotalCents,
		).Scan(&line.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("insert order line %s: %w", line.ArtworkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit order: %w", err)
	}
	return o, true, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getBy(ctx, "order_number = $1", number)
}

func (r *postgresRepo) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	return r.getBy(ctx, "payment_intent_id = $1", intentID)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, upd StatusUpdate) (*domain.Order, error) {
	q := fmt.Sprintf(`
UPDATE orders
SET status = $3,
    payment_reference = COALESCE($4, payment_reference),
    failure_reason = COALESCE($5, failure_reason),
    transfer_declared_at = CASE WHEN $3 = 'AWAITING_VERIFICATION' THEN now() ELSE transfer_declared_at END,
    updated_at = now()
WHERE id = $1 AND status = $2
RETURNING %s`, orderColumns)

	row := r.pool.QueryRow(ctx, q, upd.OrderID, string(upd.From), string(upd.To), upd.PaymentReference, upd.FailureReason)
	o, err := scanOrder(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cas update order %s: %w", upd.OrderID, err)
		}
		// Zero rows: the order is gone or the CAS lost. Distinguish so the
		// caller can treat a duplicate success as a no-op.
		current, getErr := r.getBy(ctx, "id = $1", upd.OrderID)
		if getErr != nil {
			return nil, getErr
		}
		r.logger.Warn().
			Str("order_id", upd.OrderID).
			Str("expected", upd.From.String()).
			Str("actual", current.Status.String()).
			Msg("order repo: stale status transition")
		return current, domain.ErrStaleTransition
	}

	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) AttachPaymentIntent(ctx context.Context, orderID, intentID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET payment_intent_id = $2, updated_at = now()
WHERE id = $1
`, orderID, intentID)
	if err != nil {
		return fmt.Errorf("attach payment intent: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) getBy(ctx context.Context, where string, arg any) (*domain.Order, error) {
	q := fmt.Sprintf("SELECT %s FROM orders WHERE %s", orderColumns, where)
	o, err := scanOrder(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) loadLines(ctx context.Context, o *domain.Order) error {
	const q = `
SELECT id::text, order_id::text, artwork_id::text, artwork_title, quantity, unit_price_cents, total_cents, created_at
FROM order_lines
WHERE order_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, o.ID)
	if err != nil {
		return fmt.Errorf("select order lines: %w", err)
	}
	defer rows.Close()

	o.Lines = o.Lines[:0]
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ArtworkID, &line.ArtworkTitle,
			&line.Quantity, &line.UnitPriceCents, &line.TotalCents, &line.CreatedAt,
		); err != nil {
			return err
		}
		o.Lines = append(o.Lines, line)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status, method string
	if err := row.Scan(
		&o.ID, &o.Number, &status, &method, &o.Currency,
		&o.SubtotalCents, &o.ShippingFeeCents, &o.TotalCents,
		&o.Contact.Name, &o.Contact.Email, &o.Contact.Phone,
		&o.ShippingAddress.FirstName, &o.ShippingAddress.LastName, &o.ShippingAddress.Country,
		&o.ShippingAddress.StreetName, &o.ShippingAddress.PostalCode, &o.ShippingAddress.City,
		&o.PaymentIntentID, &o.PaymentReference, &o.FailureReason, &o.TransferDeclaredAt,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentMethod = domain.PaymentMethod(method)
	return &o, nil
}
