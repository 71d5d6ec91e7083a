package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"altelier/internal/domain"
	"altelier/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v80"
)

func paymentIntentHandler(svc paymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientSecret, err := svc.Initiate(c.Request.Context(), c.Param("orderRef"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"clientSecret": clientSecret})
	}
}

type paymentConfirmRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

// paymentConfirmHandler is the client-side confirmation callback. The
// browser only names the intent; amount and outcome are re-read from the
// processor inside the service.
func paymentConfirmHandler(svc paymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := svc.ConfirmFromIntent(c.Request.Context(), c.Param("orderRef"), req.PaymentIntentID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

// stripeWebhookHandler receives asynchronous payment notifications. The
// response is 200 for anything past signature verification: duplicate
// deliveries and internally resolved mismatches must not provoke
// processor-side retries, and are never surfaced as user errors.
func stripeWebhookHandler(logger zerolog.Logger, parser webhookParser, svc paymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := parser.ParseWebhook(c.Request)
		if err != nil {
			logger.Warn().Err(err).Msg("stripe webhook signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
			return
		}

		switch event.Type {
		case "payment_intent.succeeded", "payment_intent.payment_failed":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to decode payment intent from webhook")
				c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
				return
			}
			ctx := c.Request.Context()
			orderID := pi.Metadata[gateway.OrderIDMetadataKey]
			if orderID == "" {
				// Metadata can be stripped; fall back to the intent id the
				// order recorded when the attempt was initiated.
				orderID, err = svc.OrderIDForIntent(ctx, pi.ID)
				if errors.Is(err, domain.ErrNotFound) {
					logger.Warn().Str("payment_intent_id", pi.ID).Msg("webhook intent matches no order")
					break
				}
				if err != nil {
					logger.Error().Err(err).Str("payment_intent_id", pi.ID).Msg("resolving webhook intent failed")
					c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
					return
				}
			}

			if event.Type == "payment_intent.succeeded" {
				_, err = svc.Confirm(ctx, orderID, pi.ID, pi.Amount, string(pi.Currency))
			} else {
				reason := "card payment failed"
				if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
					reason = pi.LastPaymentError.Msg
				}
				_, err = svc.Fail(ctx, orderID, reason)
			}
			if err != nil && !errors.Is(err, domain.ErrAmountMismatch) && !errors.Is(err, domain.ErrStaleTransition) {
				logger.Error().Err(err).Str("order_id", orderID).Str("event_id", event.ID).Msg("webhook processing failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
				return
			}
			if err != nil {
				// Mismatches and stale transitions are resolved internally;
				// acknowledging stops the processor from retrying.
				logger.Warn().Err(err).Str("order_id", orderID).Str("event_id", event.ID).Msg("webhook absorbed")
			}
		default:
			logger.Info().Str("event_type", string(event.Type)).Msg("unhandled webhook event type")
		}

		c.JSON(http.StatusOK, gin.H{"status": "received"})
	}
}
