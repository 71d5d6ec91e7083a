package httpserver

import (
	"errors"
	"net/http"
	"time"

	"altelier/internal/domain"

	"github.com/gin-gonic/gin"
)

type orderLineResponse struct {
	ArtworkID      string `json:"artworkId"`
	ArtworkTitle   string `json:"artworkTitle"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TotalCents     int64  `json:"totalCents"`
}

type orderResponse struct {
	OrderID            string              `json:"orderId"`
	OrderNumber        string              `json:"orderNumber"`
	Status             string              `json:"status"`
	PaymentMethod      string              `json:"paymentMethod"`
	Currency           string              `json:"currency"`
	SubtotalCents      int64               `json:"subtotalCents"`
	ShippingFeeCents   int64               `json:"shippingFeeCents"`
	TotalCents         int64               `json:"totalCents"`
	LineItems          []orderLineResponse `json:"lineItems"`
	FailureReason      string              `json:"failureReason,omitempty"`
	TransferDeclaredAt *time.Time          `json:"transferDeclaredAt,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineResponse{
			ArtworkID:      l.ArtworkID,
			ArtworkTitle:   l.ArtworkTitle,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			TotalCents:     l.TotalCents,
		})
	}
	out := orderResponse{
		OrderID:            o.ID,
		OrderNumber:        o.Number,
		Status:             o.Status.String(),
		PaymentMethod:      string(o.PaymentMethod),
		Currency:           o.Currency,
		SubtotalCents:      o.SubtotalCents,
		ShippingFeeCents:   o.ShippingFeeCents,
		TotalCents:         o.TotalCents,
		LineItems:          lines,
		TransferDeclaredAt: o.TransferDeclaredAt,
		CreatedAt:          o.CreatedAt,
	}
	if o.Status == domain.StatusPaymentFailed && o.FailureReason != nil {
		out.FailureReason = *o.FailureReason
	}
	return out
}

// writeError maps domain errors to HTTP responses in one place.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrCartEmpty):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cart is empty", "code": "EMPTY_CART"})
	case errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "quantity must be positive", "code": "INVALID_QUANTITY"})
	case errors.Is(err, domain.ErrPricing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "PRICING_ERROR"})
	case errors.Is(err, domain.ErrArtworkAlreadySold):
		c.JSON(http.StatusConflict, gin.H{"error": "artwork already sold", "code": "ARTWORK_ALREADY_SOLD"})
	case errors.Is(err, domain.ErrStaleTransition), errors.Is(err, domain.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "order state has changed, reload and retry", "code": "STALE_TRANSITION"})
	case errors.Is(err, domain.ErrWrongPaymentMethod):
		c.JSON(http.StatusConflict, gin.H{"error": "operation does not match the order's payment method"})
	case errors.Is(err, domain.ErrGatewayTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "payment gateway did not respond, please retry", "code": "GATEWAY_TIMEOUT"})
	case errors.Is(err, domain.ErrAmountMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "payment amount does not match the order", "code": "AMOUNT_MISMATCH"})
	case errors.Is(err, domain.ErrIntentMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "payment intent does not belong to this order", "code": "INTENT_MISMATCH"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
