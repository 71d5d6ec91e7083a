package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"altelier/internal/domain"
	"altelier/internal/metrics"

	"github.com/rs/zerolog"
)

// Intent is the processor-side payment attempt handed back to the client.
// OrderID is the order the intent was created for, read back from the
// processor metadata.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
	OrderID      string
}

// IntentClient talks to the external card processor. It never moves money
// by itself; confirmation arrives asynchronously.
type IntentClient interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, orderID string) (Intent, error)
	GetIntent(ctx context.Context, intentID string) (Intent, error)
}

type ledger interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error)
	TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, paymentRef, failureReason *string) (*domain.Order, error)
	AttachPaymentIntent(ctx context.Context, orderID, intentID string) error
}

type reserver interface {
	Reserve(ctx context.Context, order *domain.Order) error
}

// Service wraps the external card processor and reports outcomes back to
// the order ledger.
type Service struct {
	orders       ledger
	reservations reserver
	intents      IntentClient
	timeout      time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func New(orders ledger, reservations reserver, intents IntentClient, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		orders:       orders,
		reservations: reservations,
		intents:      intents,
		timeout:      timeout,
		metrics:      m,
		logger:       logger,
	}
}

// Initiate requests a payment intent scoped to the order total. The order
// must be a PENDING card order; a PAYMENT_FAILED order is first moved back
// to PENDING so the customer retries against the same order.
func (s *Service) Initiate(ctx context.Context, orderID string) (string, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.PaymentMethod != domain.MethodCard {
		return "", domain.ErrWrongPaymentMethod
	}

	if order.Status == domain.StatusPaymentFailed {
		order, err = s.orders.TransitionStatus(ctx, orderID, domain.StatusPaymentFailed, domain.StatusPending, nil, nil)
		if err != nil && !errors.Is(err, domain.ErrStaleTransition) {
			return "", err
		}
		// A concurrent retry may have reset the order already; the
		// returned order carries the current state either way.
	}
	if order.Status != domain.StatusPending {
		return "", fmt.Errorf("%w: order is %s", domain.ErrStaleTransition, order.Status)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	intent, err := s.intents.CreateIntent(callCtx, order.TotalCents, order.Currency, order.ID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			s.logger.Error().Err(err).Str("order_id", orderID).Msg("payment gateway timed out")
			return "", domain.ErrGatewayTimeout
		}
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	if err := s.orders.AttachPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		return "", err
	}
	s.logger.Info().
		Str("order_id", order.ID).
		Str("payment_intent_id", intent.ID).
		Int64("amount_cents", order.TotalCents).
		Msg("payment intent created")
	return intent.ClientSecret, nil
}

// Confirm records a successful payment reported by the processor. The
// reported amount must equal the order total exactly; a duplicate
// confirmation of an already-paid order is an idempotent no-op. On success
// the paid artworks are reserved.
func (s *Service) Confirm(ctx context.Context, orderID, externalPaymentID string, amountCents int64, currency string) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if amountCents != order.TotalCents || !strings.EqualFold(currency, order.Currency) {
		s.metrics.IncPaymentOutcome("amount_mismatch")
		s.logger.Error().
			Str("order_id", orderID).
			Int64("reported_cents", amountCents).
			Int64("order_cents", order.TotalCents).
			Str("reported_currency", currency).
			Msg("payment amount mismatch, order left untouched")
		return nil, domain.ErrAmountMismatch
	}

	ref := externalPaymentID
	updated, err := s.orders.TransitionStatus(ctx, orderID, domain.StatusPending, domain.StatusPaid, &ref, nil)
	if err != nil {
		if errors.Is(err, domain.ErrStaleTransition) && updated != nil &&
			updated.Status == domain.StatusPaid &&
			updated.PaymentReference != nil && *updated.PaymentReference == externalPaymentID {
			// Duplicate delivery of the same success. Harmless.
			s.metrics.IncPaymentOutcome("duplicate")
			s.logger.Info().
				Str("order_id", orderID).
				Str("payment_reference", externalPaymentID).
				Msg("duplicate payment confirmation ignored")
			return updated, nil
		}
		return nil, err
	}

	s.metrics.IncPaymentOutcome("succeeded")
	if err := s.reservations.Reserve(ctx, updated); err != nil {
		// The order is paid; a reservation conflict is a fulfillment
		// problem handled manually, never a payment failure.
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("reservation after payment reported conflicts")
	}
	return updated, nil
}

// ConfirmFromIntent confirms an order from the client-side callback, which
// only names the intent: amount and outcome are re-read from the processor,
// never trusted from the browser. The intent must be the order's own active
// attempt; a succeeded intent belonging to another order is rejected so one
// charge can never credit two orders.
func (s *Service) ConfirmFromIntent(ctx context.Context, orderID, intentID string) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID != intentID {
		s.logger.Warn().
			Str("order_id", orderID).
			Str("payment_intent_id", intentID).
			Msg("confirmation presented an intent that is not the order's active attempt")
		return nil, fmt.Errorf("%w: intent %s is not the active attempt for order %s", domain.ErrIntentMismatch, intentID, orderID)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	intent, err := s.intents.GetIntent(callCtx, intentID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return nil, domain.ErrGatewayTimeout
		}
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	if intent.OrderID != "" && intent.OrderID != orderID {
		return nil, fmt.Errorf("%w: intent %s was created for order %s", domain.ErrIntentMismatch, intentID, intent.OrderID)
	}
	if intent.Status != "succeeded" {
		return nil, fmt.Errorf("payment intent %s is %s, not succeeded", intentID, intent.Status)
	}
	return s.Confirm(ctx, orderID, intent.ID, intent.AmountCents, intent.Currency)
}

// OrderIDForIntent resolves the order behind a processor-side intent id.
// Used by the webhook when an event carries no order metadata.
func (s *Service) OrderIDForIntent(ctx context.Context, intentID string) (string, error) {
	order, err := s.orders.GetByPaymentIntent(ctx, intentID)
	if err != nil {
		return "", err
	}
	return order.ID, nil
}

// Fail records a declined or errored payment. The order stays re-entrant:
// the customer may retry, reusing the same order.
func (s *Service) Fail(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "payment was not completed"
	}
	updated, err := s.orders.TransitionStatus(ctx, orderID, domain.StatusPending, domain.StatusPaymentFailed, nil, &reason)
	if err != nil {
		if errors.Is(err, domain.ErrStaleTransition) && updated != nil && updated.Status != domain.StatusPending {
			// Already failed, or already resolved another way. Duplicate
			// failure webhooks are absorbed.
			return updated, nil
		}
		return nil, err
	}
	s.metrics.IncPaymentOutcome("failed")
	s.logger.Info().Str("order_id", orderID).Str("reason", reason).Msg("payment failed")
	return updated, nil
}
