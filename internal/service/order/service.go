package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"altelier/internal/domain"
	"altelier/internal/metrics"
	"altelier/internal/pricing"
	orderrepo "altelier/internal/repository/order"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// numberInsertAttempts bounds retries on an order-number collision.
const numberInsertAttempts = 5

type Service struct {
	repo     orderRepo
	artworks artworkRepo
	rule     pricing.Rule
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

type orderRepo interface {
	Create(ctx context.Context, o *domain.Order, idempotencyKey string) (*domain.Order, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, upd orderrepo.StatusUpdate) (*domain.Order, error)
	AttachPaymentIntent(ctx context.Context, orderID, intentID string) error
}

type artworkRepo interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Artwork, error)
}

func New(repo orderrepo.Repository, artworks artworkRepo, rule pricing.Rule, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{repo: repo, artworks: artworks, rule: rule, metrics: m, logger: logger}
}

type CreateItem struct {
	ArtworkID string `json:"artworkId"`
	Quantity  int    `json:"quantity"`
}

type CreateInput struct {
	IdempotencyKey  string
	Currency        string
	PaymentMethod   domain.PaymentMethod
	Contact         domain.Contact
	ShippingAddress domain.Address
	Items           []CreateItem
}

// Create captures a cart snapshot from the catalog, prices it, and
// persists a PENDING order. Presenting the same idempotency key twice
// returns the existing order instead of creating a duplicate.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return nil, errors.New("idempotency key required")
	}
	if strings.TrimSpace(in.Currency) == "" {
		return nil, errors.New("currency required")
	}
	if in.PaymentMethod != domain.MethodCard && in.PaymentMethod != domain.MethodBankTransfer {
		return nil, errors.New("unsupported payment method")
	}
	if strings.TrimSpace(in.Contact.Email) == "" {
		return nil, errors.New("contact email required")
	}
	if len(in.Items) == 0 {
		return nil, domain.ErrCartEmpty
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
	}

	snapshot, err := s.captureSnapshot(ctx, in)
	if err != nil {
		return nil, err
	}

	totals, err := pricing.Quote(snapshot, s.rule)
	if err != nil {
		if errors.Is(err, domain.ErrCartEmpty) || errors.Is(err, domain.ErrInvalidQuantity) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPricing, err)
	}

	order := &domain.Order{
		ID:               uuid.NewString(),
		Status:           domain.StatusPending,
		PaymentMethod:    in.PaymentMethod,
		Currency:         in.Currency,
		SubtotalCents:    totals.SubtotalCents,
		ShippingFeeCents: totals.ShippingFeeCents,
		TotalCents:       totals.TotalCents,
		Contact:          in.Contact,
		ShippingAddress:  in.ShippingAddress,
	}
	for _, item := range snapshot.Items {
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			ArtworkID:      item.ArtworkID,
			ArtworkTitle:   item.ArtworkTitle,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.UnitPriceCents * int64(item.Quantity),
		})
	}

	for attempt := 0; attempt < numberInsertAttempts; attempt++ {
		number, err := newOrderNumber()
		if err != nil {
			return nil, fmt.Errorf("generate order number: %w", err)
		}
		order.Number = number

		created, wasNew, err := s.repo.Create(ctx, order, in.IdempotencyKey)
		if errors.Is(err, domain.ErrDuplicateOrderNumber) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if wasNew {
			s.metrics.IncOrdersCreated()
			s.logger.Info().
				Str("order_id", created.ID).
				Str("order_number", created.Number).
				Int64("total_cents", created.TotalCents).
				Str("payment_method", string(created.PaymentMethod)).
				Msg("order created")
		}
		return created, nil
	}
	return nil, fmt.Errorf("order number collisions exhausted %d attempts", numberInsertAttempts)
}

func (s *Service) captureSnapshot(ctx context.Context, in CreateInput) (domain.CartSnapshot, error) {
	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		ids = append(ids, item.ArtworkID)
	}
	artworks, err := s.artworks.GetByIDs(ctx, ids)
	if err != nil {
		return domain.CartSnapshot{}, err
	}
	byID := make(map[string]domain.Artwork, len(artworks))
	for _, a := range artworks {
		byID[a.ID] = a
	}

	snapshot := domain.CartSnapshot{CapturedAt: time.Now().UTC()}
	for _, item := range in.Items {
		a, ok := byID[item.ArtworkID]
		if !ok {
			return domain.CartSnapshot{}, fmt.Errorf("artwork %s: %w", item.ArtworkID, domain.ErrNotFound)
		}
		if !a.Available {
			return domain.CartSnapshot{}, fmt.Errorf("artwork %s: %w", item.ArtworkID, domain.ErrArtworkAlreadySold)
		}
		if !strings.EqualFold(a.Currency, in.Currency) {
			return domain.CartSnapshot{}, fmt.Errorf("%w: artwork %s priced in %s, order currency %s", domain.ErrPricing, a.ID, a.Currency, in.Currency)
		}
		snapshot.Items = append(snapshot.Items, domain.SnapshotItem{
			ArtworkID:      a.ID,
			ArtworkTitle:   a.Title,
			Quantity:       item.Quantity,
			UnitPriceCents: a.PriceCents,
		})
	}
	return snapshot, nil
}

// TransitionStatus is the sole write path for order status. It validates
// the transition against the state machine and then applies it with a
// compare-and-swap; a lost swap surfaces domain.ErrStaleTransition along
// with the order's current state.
func (s *Service) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, paymentRef, failureReason *string) (*domain.Order, error) {
	if !domain.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, from, to)
	}
	updated, err := s.repo.UpdateStatus(ctx, orderrepo.StatusUpdate{
		OrderID:          orderID,
		From:             from,
		To:               to,
		PaymentReference: paymentRef,
		FailureReason:    failureReason,
	})
	if err != nil {
		return updated, err
	}
	s.logger.Info().
		Str("order_id", orderID).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("order status transition")
	return updated, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.repo.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

func (s *Service) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	return s.repo.GetByPaymentIntent(ctx, intentID)
}

func (s *Service) AttachPaymentIntent(ctx context.Context, orderID, intentID string) error {
	return s.repo.AttachPaymentIntent(ctx, orderID, intentID)
}
