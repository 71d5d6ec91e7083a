package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters for the order and payment workflow.
// Register once in main and pass down; services tolerate a nil receiver so
// tests can skip instrumentation.
type Metrics struct {
	OrdersCreated        prometheus.Counter
	PaymentOutcomes      *prometheus.CounterVec
	TransferDeclarations prometheus.Counter
	ReservationConflicts prometheus.Counter
}

func New() *Metrics {
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "altelier",
		Name:      "orders_created_total",
		Help:      "Total number of orders created.",
	})
	paymentOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "altelier",
		Name:      "payment_confirmations_total",
		Help:      "Payment confirmations by outcome.",
	}, []string{"outcome"})
	transferDeclarations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "altelier",
		Name:      "bank_transfer_declarations_total",
		Help:      "Bank-transfer payment declarations recorded.",
	})
	reservationConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "altelier",
		Name:      "reservation_conflicts_total",
		Help:      "Artwork reservations lost to a concurrent paid order.",
	})

	prometheus.MustRegister(ordersCreated, paymentOutcomes, transferDeclarations, reservationConflicts)
	return &Metrics{
		OrdersCreated:        ordersCreated,
		PaymentOutcomes:      paymentOutcomes,
		TransferDeclarations: transferDeclarations,
		ReservationConflicts: reservationConflicts,
	}
}

func (m *Metrics) IncOrdersCreated() {
	if m != nil {
		m.OrdersCreated.Inc()
	}
}

func (m *Metrics) IncPaymentOutcome(outcome string) {
	if m != nil {
		m.PaymentOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncTransferDeclarations() {
	if m != nil {
		m.TransferDeclarations.Inc()
	}
}

func (m *Metrics) IncReservationConflicts() {
	if m != nil {
		m.ReservationConflicts.Inc()
	}
}

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
