package reservation

import (
	"context"
	"errors"
	"fmt"

	"altelier/internal/domain"
	"altelier/internal/metrics"
	artworkrepo "altelier/internal/repository/artwork"

	"github.com/rs/zerolog"
)

// Service flips artwork availability for paid orders. It is the only
// writer of the availability flag.
type Service struct {
	artworks artworkRepo
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

type artworkRepo interface {
	MarkSold(ctx context.Context, artworkID, orderID string) error
	RecordFulfillmentException(ctx context.Context, exc domain.FulfillmentException) error
}

func New(artworks artworkrepo.Repository, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{artworks: artworks, metrics: m, logger: logger}
}

// Reserve marks every line item of a paid order unavailable. An artwork
// already claimed by a concurrent order is a detected conflict: it is
// persisted as a fulfillment exception for manual resolution (refund) and
// reported as domain.ErrArtworkAlreadySold. Remaining lines are still
// processed, and storage faults abort immediately.
func (s *Service) Reserve(ctx context.Context, order *domain.Order) error {
	if order.Status != domain.StatusPaid {
		return fmt.Errorf("reserve requires a paid order, got %s", order.Status)
	}

	var conflicts []string
	for _, line := range order.Lines {
		err := s.artworks.MarkSold(ctx, line.ArtworkID, order.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrArtworkAlreadySold) {
			return err
		}

		conflicts = append(conflicts, line.ArtworkID)
		s.metrics.IncReservationConflicts()
		s.logger.Error().
			Str("order_id", order.ID).
			Str("artwork_id", line.ArtworkID).
			Msg("reservation conflict: artwork sold to a concurrent order")
		if recErr := s.artworks.RecordFulfillmentException(ctx, domain.FulfillmentException{
			OrderID:   order.ID,
			ArtworkID: line.ArtworkID,
			Detail:    fmt.Sprintf("order %s paid for artwork %s already sold to another order", order.Number, line.ArtworkID),
		}); recErr != nil {
			return fmt.Errorf("record fulfillment exception for %s: %w", line.ArtworkID, recErr)
		}
	}

	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrArtworkAlreadySold, conflicts)
	}
	return nil
}
