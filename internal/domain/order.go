package domain

import "time"

type OrderStatus string

const (
	StatusPending              OrderStatus = "PENDING"
	StatusPaid                 OrderStatus = "PAID"
	StatusPaymentFailed        OrderStatus = "PAYMENT_FAILED"
	StatusAwaitingVerification OrderStatus = "AWAITING_VERIFICATION"
	StatusCancelled            OrderStatus = "CANCELLED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions may leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// transitions is the full order state machine. PAYMENT_FAILED is not
// terminal: a retried card payment moves the same order back to PENDING.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:              {StatusPaid, StatusPaymentFailed, StatusAwaitingVerification},
	StatusPaymentFailed:        {StatusPending},
	StatusAwaitingVerification: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// SnapshotItem is one cart line captured at checkout start. The unit price
// is frozen here; later catalog edits never affect an in-flight order.
type SnapshotItem struct {
	ArtworkID      string `json:"artworkId"`
	ArtworkTitle   string `json:"artworkTitle"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// CartSnapshot is the immutable cart state handed to order creation.
type CartSnapshot struct {
	Items      []SnapshotItem `json:"items"`
	CapturedAt time.Time      `json:"capturedAt"`
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Address struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Country    string `json:"country,omitempty"`
	StreetName string `json:"streetName,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
}

type OrderLine struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	ArtworkID      string    `json:"artworkId"`
	ArtworkTitle   string    `json:"artworkTitle"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	TotalCents     int64     `json:"totalCents"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Order struct {
	ID               string        `json:"id"`
	Number           string        `json:"orderNumber"`
	Status           OrderStatus   `json:"status"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	Currency         string        `json:"currency"`
	SubtotalCents    int64         `json:"subtotalCents"`
	ShippingFeeCents int64         `json:"shippingFeeCents"`
	TotalCents       int64         `json:"totalCents"`
	Contact          Contact       `json:"contact"`
	ShippingAddress  Address       `json:"shippingAddress"`
	Lines            []OrderLine   `json:"lineItems,omitempty"`

	// PaymentIntentID is the active payment attempt at the processor.
	PaymentIntentID *string `json:"-"`
	// PaymentReference is set once, when the order reaches PAID.
	PaymentReference *string `json:"paymentReference,omitempty"`
	// FailureReason is the user-facing text behind PAYMENT_FAILED.
	FailureReason *string `json:"failureReason,omitempty"`
	// TransferDeclaredAt records the customer's "I have paid" declaration
	// for manual bank-transfer reconciliation.
	TransferDeclaredAt *time.Time `json:"transferDeclaredAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
