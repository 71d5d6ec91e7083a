package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrCartEmpty rejects checkout on a snapshot without line items.
	ErrCartEmpty = errors.New("cart is empty")

	// ErrInvalidQuantity rejects a line item with a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrPricing wraps a snapshot the pricing calculator rejected.
	ErrPricing = errors.New("pricing error")

	// ErrStaleTransition reports a compare-and-swap that lost to a
	// concurrent status change. Duplicate successes are expected under
	// retried webhooks and are handled as no-ops by callers.
	ErrStaleTransition = errors.New("stale status transition")

	// ErrIllegalTransition reports a transition the order state machine
	// does not allow at all, regardless of timing.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrAmountMismatch means the processor reported an amount that does
	// not equal the order total. The order is never marked paid.
	ErrAmountMismatch = errors.New("payment amount mismatch")

	// ErrArtworkAlreadySold means a reservation lost the race for an
	// artwork that another paid order already claimed.
	ErrArtworkAlreadySold = errors.New("artwork already sold")

	// ErrGatewayTimeout means the payment processor did not answer within
	// the configured deadline.
	ErrGatewayTimeout = errors.New("payment gateway timeout")

	// ErrWrongPaymentMethod means the operation does not apply to the
	// order's payment method.
	ErrWrongPaymentMethod = errors.New("wrong payment method for order")

	// ErrIntentMismatch means a payment intent was presented against an
	// order it was not created for. One charge never credits two orders.
	ErrIntentMismatch = errors.New("payment intent does not belong to order")

	// ErrDuplicateOrderNumber signals an order-number collision on insert;
	// the ledger retries with a fresh number.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
)
