package transfer

import (
	"context"
	"errors"

	"altelier/internal/domain"
	"altelier/internal/metrics"

	"github.com/rs/zerolog"
)

type ledger interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, paymentRef, failureReason *string) (*domain.Order, error)
}

type reserver interface {
	Reserve(ctx context.Context, order *domain.Order) error
}

// Service records manual bank-transfer declarations and their later
// resolution. Declaring carries deliberately weak guarantees: no funds are
// verified, and artworks are never reserved until an administrator marks
// the order paid.
type Service struct {
	orders       ledger
	reservations reserver
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func New(orders ledger, reservations reserver, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{orders: orders, reservations: reservations, metrics: m, logger: logger}
}

// Declare records the customer's "I have paid" declaration, moving the
// order to AWAITING_VERIFICATION with a timestamp for reconciliation.
// A repeated declaration is an idempotent no-op.
func (s *Service) Declare(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != domain.MethodBankTransfer {
		return nil, domain.ErrWrongPaymentMethod
	}

	updated, err := s.orders.TransitionStatus(ctx, orderID, domain.StatusPending, domain.StatusAwaitingVerification, nil, nil)
	if err != nil {
		if errors.Is(err, domain.ErrStaleTransition) && updated != nil && updated.Status == domain.StatusAwaitingVerification {
			return updated, nil
		}
		return nil, err
	}
	s.metrics.IncTransferDeclarations()
	s.logger.Info().
		Str("order_id", orderID).
		Str("order_number", updated.Number).
		Msg("bank transfer declared, awaiting manual verification")
	return updated, nil
}

// MarkPaid is the administrative resolution of a verified transfer. It is
// the only path that reserves artworks for a bank-transfer order.
func (s *Service) MarkPaid(ctx context.Context, orderID, paymentRef string) (*domain.Order, error) {
	var ref *string
	if paymentRef != "" {
		ref = &paymentRef
	}
	updated, err := s.orders.TransitionStatus(ctx, orderID, domain.StatusAwaitingVerification, domain.StatusPaid, ref, nil)
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentOutcome("transfer_verified")
	if resErr := s.reservations.Reserve(ctx, updated); resErr != nil {
		s.logger.Error().Err(resErr).Str("order_id", orderID).Msg("reservation after transfer verification reported conflicts")
	}
	return updated, nil
}

// Cancel closes an unverified transfer order.
func (s *Service) Cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	updated, err := s.orders.TransitionStatus(ctx, orderID, domain.StatusAwaitingVerification, domain.StatusCancelled, nil, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID).Msg("bank transfer order cancelled")
	return updated, nil
}
