package httpserver

import (
	"context"
	"net/http"
	"time"

	"altelier/internal/domain"
	"altelier/internal/metrics"
	ordersvc "altelier/internal/service/order"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v80"
)

type orderService interface {
	Create(ctx context.Context, in ordersvc.CreateInput) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
}

type paymentService interface {
	Initiate(ctx context.Context, orderID string) (string, error)
	Confirm(ctx context.Context, orderID, externalPaymentID string, amountCents int64, currency string) (*domain.Order, error)
	ConfirmFromIntent(ctx context.Context, orderID, intentID string) (*domain.Order, error)
	OrderIDForIntent(ctx context.Context, intentID string) (string, error)
	Fail(ctx context.Context, orderID, reason string) (*domain.Order, error)
}

type transferService interface {
	Declare(ctx context.Context, orderID string) (*domain.Order, error)
	MarkPaid(ctx context.Context, orderID, paymentRef string) (*domain.Order, error)
	Cancel(ctx context.Context, orderID string) (*domain.Order, error)
}

type webhookParser interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

// Deps carries the wired services into the router.
type Deps struct {
	OrderSvc           orderService
	PaymentSvc         paymentService
	TransferSvc        transferService
	Webhook            webhookParser
	AdminToken         string
	CORSAllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(deps.CORSAllowedOrigins) == 1 && deps.CORSAllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = deps.CORSAllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", idempotencyKeyHeader)
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// The public lookup takes the human-readable order number; the action
	// endpoints take the opaque order id. gin requires one wildcard name
	// per position, hence the neutral :orderRef.
	router.POST("/orders", createOrderHandler(deps.OrderSvc))
	router.GET("/orders/:orderRef", getOrderHandler(deps.OrderSvc))
	router.POST("/orders/:orderRef/payment-intent", paymentIntentHandler(deps.PaymentSvc))
	router.POST("/orders/:orderRef/payment-confirm", paymentConfirmHandler(deps.PaymentSvc))
	router.POST("/orders/:orderRef/bank-transfer-confirm", bankTransferHandler(deps.TransferSvc))

	router.POST("/webhooks/stripe", stripeWebhookHandler(logger, deps.Webhook, deps.PaymentSvc))

	admin := router.Group("/admin", adminAuth(deps.AdminToken))
	admin.POST("/orders/:orderID/mark-paid", adminMarkPaidHandler(deps.TransferSvc))
	admin.POST("/orders/:orderID/cancel", adminCancelHandler(deps.TransferSvc))

	return router, nil
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
