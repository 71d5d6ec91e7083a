package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"altelier/internal/config"
	"altelier/internal/db"
	"altelier/internal/gateway"
	"altelier/internal/httpserver"
	"altelier/internal/metrics"
	"altelier/internal/pricing"
	artworkrepo "altelier/internal/repository/artwork"
	orderrepo "altelier/internal/repository/order"
	ordersvc "altelier/internal/service/order"
	paymentsvc "altelier/internal/service/payment"
	reservationsvc "altelier/internal/service/reservation"
	transfersvc "altelier/internal/service/transfer"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	m := metrics.New()
	rule := pricing.Rule{FeeCents: cfg.ShippingFeeCents, FreeThresholdCents: cfg.FreeShippingThreshold}

	artworkRepo := artworkrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	orderService := ordersvc.New(orderRepo, artworkRepo, rule, m, logger)
	reservationService := reservationsvc.New(artworkRepo, m, logger)
	stripeClient := gateway.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	paymentService := paymentsvc.New(orderService, reservationService, stripeClient, cfg.GatewayTimeout, m, logger)
	transferService := transfersvc.New(orderService, reservationService, m, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		OrderSvc:           orderService,
		PaymentSvc:         paymentService,
		TransferSvc:        transferService,
		Webhook:            stripeClient,
		AdminToken:         cfg.AdminToken,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Dur("took", time.Since(start)).Msg("server stopped")
	}
}
