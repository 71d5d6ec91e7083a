package seed

import (
	"context"
	"fmt"

	"altelier/internal/domain"
)

type artworkWriter interface {
	Upsert(ctx context.Context, a domain.Artwork) (*domain.Artwork, error)
}

// Apply inserts a small demo catalog for manual testing. It is idempotent:
// re-running updates prices and titles but never resurrects sold pieces.
func Apply(ctx context.Context, repo artworkWriter) error {
	artworks := []domain.Artwork{
		{
			Slug:        "harbour-at-dusk",
			Title:       "Harbour at Dusk",
			Artist:      "M. Aldana",
			Description: "Oil on canvas, 60x80cm",
			PriceCents:  48500,
			Currency:    "EUR",
			Available:   true,
		},
		{
			Slug:        "study-in-umber",
			Title:       "Study in Umber",
			Artist:      "M. Aldana",
			Description: "Charcoal on paper, 30x40cm",
			PriceCents:  1900,
			Currency:    "EUR",
			Available:   true,
		},
		{
			Slug:        "winter-field-iii",
			Title:       "Winter Field III",
			Artist:      "J. Brandt",
			Description: "Acrylic on linen, 90x90cm",
			PriceCents:  2500,
			Currency:    "EUR",
			Available:   true,
		},
	}

	for _, a := range artworks {
		if _, err := repo.Upsert(ctx, a); err != nil {
			return fmt.Errorf("upsert artwork %s: %w", a.Slug, err)
		}
	}
	return nil
}
