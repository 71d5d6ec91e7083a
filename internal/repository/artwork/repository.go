package artwork

import (
	"context"

	"altelier/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Artwork, error)
	GetByID(ctx context.Context, id string) (*domain.Artwork, error)
	// GetByIDs returns the artworks for a cart snapshot. Missing ids are
	// simply absent from the result; the caller decides how to react.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Artwork, error)
	Upsert(ctx context.Context, a domain.Artwork) (*domain.Artwork, error)
	// MarkSold flips availability true -> false for exactly one order.
	// A second order observing the flag already down gets
	// domain.ErrArtworkAlreadySold; the same order re-marking its own
	// purchase is a no-op.
	MarkSold(ctx context.Context, artworkID, orderID string) error
	RecordFulfillmentException(ctx context.Context, exc domain.FulfillmentException) error
}
