// Package pricing derives order totals from a cart snapshot. All values
// are integers in minor currency units; there is no floating point here.
package pricing

import (
	"altelier/internal/domain"
)

// Rule is the shipping-fee policy: a flat fee, waived once the subtotal
// reaches FreeThresholdCents.
type Rule struct {
	FeeCents           int64
	FreeThresholdCents int64
}

type Totals struct {
	SubtotalCents    int64
	ShippingFeeCents int64
	TotalCents       int64
}

// Quote computes subtotal, shipping fee and total for a snapshot. It is a
// pure function: no I/O, no mutation of the snapshot.
func Quote(snapshot domain.CartSnapshot, rule Rule) (Totals, error) {
	if len(snapshot.Items) == 0 {
		return Totals{}, domain.ErrCartEmpty
	}

	var subtotal int64
	for _, item := range snapshot.Items {
		if item.Quantity < 1 {
			return Totals{}, domain.ErrInvalidQuantity
		}
		subtotal += item.UnitPriceCents * int64(item.Quantity)
	}

	fee := rule.FeeCents
	if subtotal >= rule.FreeThresholdCents {
		fee = 0
	}

	return Totals{
		SubtotalCents:    subtotal,
		ShippingFeeCents: fee,
		TotalCents:       subtotal + fee,
	}, nil
}
