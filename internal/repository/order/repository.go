package order

import (
	"context"

	"altelier/internal/domain"
)

// StatusUpdate is the compare-and-swap input for the sole status write
// path. PaymentReference and FailureReason are only written when non-nil.
type StatusUpdate struct {
	OrderID          string
	From             domain.OrderStatus
	To               domain.OrderStatus
	PaymentReference *string
	FailureReason    *string
}

type Repository interface {
	// Create persists an order and its lines in one transaction. When the
	// idempotency key already exists, the previously created order is
	// returned and created is false.
	Create(ctx context.Context, o *domain.Order, idempotencyKey string) (out *domain.Order, created bool, err error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error)
	// UpdateStatus succeeds only if the current status equals upd.From;
	// otherwise it fails with domain.ErrStaleTransition.
	UpdateStatus(ctx context.Context, upd StatusUpdate) (*domain.Order, error)
	// AttachPaymentIntent records the active payment attempt.
	AttachPaymentIntent(ctx context.Context, orderID, intentID string) error
}
