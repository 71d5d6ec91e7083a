package domain

import "time"

// Artwork is a catalog entry for an original piece. Availability is owned
// by the reservation flow: it flips true -> false exactly once, stamped
// with the winning order.
type Artwork struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist,omitempty"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Currency    string    `json:"currency"`
	Available   bool      `json:"available"`
	SoldOrderID *string   `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FulfillmentException records a reservation conflict (an artwork already
// sold to a concurrent order) queued for manual resolution.
type FulfillmentException struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	ArtworkID string    `json:"artworkId"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}
