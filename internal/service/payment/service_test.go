package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"altelier/internal/domain"

	"github.com/rs/zerolog"
)

// memLedger applies status transitions with the same compare-and-swap
// contract as the persistent ledger, so concurrent confirmations race the
// way they do against the database.
type memLedger struct {
	mu          sync.Mutex
	orders      map[string]*domain.Order
	transitions int
}

func newMemLedger(orders ...*domain.Order) *memLedger {
	m := &memLedger{orders: map[string]*domain.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memLedger) Get(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memLedger) GetByPaymentIntent(_ context.Context, intentID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentIntentID != nil && *o.PaymentIntentID == intentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) TransitionStatus(_ context.Context, orderID string, from, to domain.OrderStatus, paymentRef, failureReason *string) (*domain.Order, error) {
	if !domain.CanTransition(from, to) {
		return nil, domain.ErrIllegalTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if o.Status != from {
		cp := *o
		return &cp, domain.ErrStaleTransition
	}
	o.Status = to
	if paymentRef != nil {
		o.PaymentReference = paymentRef
	}
	if failureReason != nil {
		o.FailureReason = failureReason
	}
	m.transitions++
	cp := *o
	return &cp, nil
}

func (m *memLedger) AttachPaymentIntent(_ context.Context, orderID, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.PaymentIntentID = &intentID
	return nil
}

type stubReserver struct {
	mu     sync.Mutex
	calls  int
	lastID string
	err    error
}

func (s *stubReserver) Reserve(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastID = order.ID
	return s.err
}

type stubIntents struct {
	created   Intent
	createErr error
	fetched   Intent
	fetchErr  error
	block     bool

	lastAmount   int64
	lastCurrency string
	lastOrderID  string
}

func (s *stubIntents) CreateIntent(ctx context.Context, amountCents int64, currency, orderID string) (Intent, error) {
	s.lastAmount = amountCents
	s.lastCurrency = currency
	s.lastOrderID = orderID
	if s.block {
		<-ctx.Done()
		return Intent{}, ctx.Err()
	}
	return s.created, s.createErr
}

func (s *stubIntents) GetIntent(ctx context.Context, _ string) (Intent, error) {
	if s.block {
		<-ctx.Done()
		return Intent{}, ctx.Err()
	}
	return s.fetched, s.fetchErr
}

func pendingCardOrder(totalCents int64) *domain.Order {
	return &domain.Order{
		ID:            "o1",
		Number:        "ALT-AAAA-2222",
		Status:        domain.StatusPending,
		PaymentMethod: domain.MethodCard,
		Currency:      "EUR",
		TotalCents:    totalCents,
	}
}

func withIntent(o *domain.Order, intentID string) *domain.Order {
	o.PaymentIntentID = &intentID
	return o
}

func newTestService(ledger *memLedger, reservations *stubReserver, intents IntentClient, timeout time.Duration) *Service {
	return New(ledger, reservations, intents, timeout, nil, zerolog.Nop())
}

func TestInitiateCreatesIntentForOrderTotal(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	intents := &stubIntents{created: Intent{ID: "pi_1", ClientSecret: "cs_1"}}
	svc := newTestService(ledger, &stubReserver{}, intents, time.Second)

	secret, err := svc.Initiate(context.Background(), "o1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "cs_1" {
		t.Fatalf("unexpected client secret %q", secret)
	}
	if intents.lastAmount != 2060 || intents.lastCurrency != "EUR" || intents.lastOrderID != "o1" {
		t.Fatalf("intent created with wrong parameters: %+v", intents)
	}
	got, _ := ledger.Get(context.Background(), "o1")
	if got.PaymentIntentID == nil || *got.PaymentIntentID != "pi_1" {
		t.Fatalf("intent id not attached to order: %+v", got)
	}
}

func TestInitiateRejectsBankTransferOrders(t *testing.T) {
	o := pendingCardOrder(2060)
	o.PaymentMethod = domain.MethodBankTransfer
	svc := newTestService(newMemLedger(o), &stubReserver{}, &stubIntents{}, time.Second)

	_, err := svc.Initiate(context.Background(), "o1")
	if !errors.Is(err, domain.ErrWrongPaymentMethod) {
		t.Fatalf("expected ErrWrongPaymentMethod, got %v", err)
	}
}

func TestInitiateResetsFailedOrderForRetry(t *testing.T) {
	o := pendingCardOrder(2060)
	o.Status = domain.StatusPaymentFailed
	ledger := newMemLedger(o)
	svc := newTestService(ledger, &stubReserver{}, &stubIntents{created: Intent{ID: "pi_2", ClientSecret: "cs_2"}}, time.Second)

	if _, err := svc.Initiate(context.Background(), "o1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := ledger.Get(context.Background(), "o1")
	if got.Status != domain.StatusPending {
		t.Fatalf("failed order not reset to PENDING: %s", got.Status)
	}
}

func TestInitiateRejectsPaidOrder(t *testing.T) {
	o := pendingCardOrder(2060)
	o.Status = domain.StatusPaid
	svc := newTestService(newMemLedger(o), &stubReserver{}, &stubIntents{}, time.Second)

	_, err := svc.Initiate(context.Background(), "o1")
	if !errors.Is(err, domain.ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}
}

func TestInitiateGatewayTimeout(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	svc := newTestService(ledger, &stubReserver{}, &stubIntents{block: true}, 20*time.Millisecond)

	_, err := svc.Initiate(context.Background(), "o1")
	if !errors.Is(err, domain.ErrGatewayTimeout) {
		t.Fatalf("expected ErrGatewayTimeout, got %v", err)
	}
	got, _ := ledger.Get(context.Background(), "o1")
	if got.Status != domain.StatusPending {
		t.Fatalf("timeout must leave order PENDING, got %s", got.Status)
	}
}

func TestConfirmMarksPaidAndReserves(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	reservations := &stubReserver{}
	svc := newTestService(ledger, reservations, &stubIntents{}, time.Second)

	got, err := svc.Confirm(context.Background(), "o1", "pi_1", 2060, "EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
	if got.PaymentReference == nil || *got.PaymentReference != "pi_1" {
		t.Fatalf("payment reference not recorded: %+v", got)
	}
	if reservations.calls != 1 || reservations.lastID != "o1" {
		t.Fatalf("reservation not triggered: %+v", reservations)
	}
}

func TestConfirmRejectsAmountMismatch(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	reservations := &stubReserver{}
	svc := newTestService(ledger, reservations, &stubIntents{}, time.Second)

	_, err := svc.Confirm(context.Background(), "o1", "pi_1", 2000, "EUR")
	if !errors.Is(err, domain.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
	got, _ := ledger.Get(context.Background(), "o1")
	if got.Status != domain.StatusPending {
		t.Fatalf("mismatch must leave order PENDING, got %s", got.Status)
	}
	if reservations.calls != 0 {
		t.Fatal("mismatch must not reserve artworks")
	}
}

func TestConfirmRejectsCurrencyMismatch(t *testing.T) {
	svc := newTestService(newMemLedger(pendingCardOrder(2060)), &stubReserver{}, &stubIntents{}, time.Second)

	_, err := svc.Confirm(context.Background(), "o1", "pi_1", 2060, "USD")
	if !errors.Is(err, domain.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestConfirmDuplicateIsNoOp(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	reservations := &stubReserver{}
	svc := newTestService(ledger, reservations, &stubIntents{}, time.Second)

	if _, err := svc.Confirm(context.Background(), "o1", "pi_1", 2060, "EUR"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	got, err := svc.Confirm(context.Background(), "o1", "pi_1", 2060, "EUR")
	if err != nil {
		t.Fatalf("duplicate confirm must succeed as a no-op, got %v", err)
	}
	if got.Status != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
	if ledger.transitions != 1 {
		t.Fatalf("duplicate confirm must not transition again, got %d transitions", ledger.transitions)
	}
	if reservations.calls != 1 {
		t.Fatalf("duplicate confirm must not reserve again, got %d calls", reservations.calls)
	}
}

func TestConfirmConcurrentDuplicatesYieldOneTransition(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	reservations := &stubReserver{}
	svc := newTestService(ledger, reservations, &stubIntents{}, time.Second)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(context.Background(), "o1", "pi_1", 2060, "EUR")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	if ledger.transitions != 1 {
		t.Fatalf("expected exactly one PENDING->PAID transition, got %d", ledger.transitions)
	}
	if reservations.calls != 1 {
		t.Fatalf("expected exactly one reservation, got %d", reservations.calls)
	}
	got, _ := ledger.Get(context.Background(), "o1")
	if got.Status != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
}

func TestConfirmRejectedAfterBankTransferDeclared(t *testing.T) {
	o := pendingCardOrder(2060)
	o.Status = domain.StatusAwaitingVerification
	svc := newTestService(newMemLedger(o), &stubReserver{}, &stubIntents{}, time.Second)

	_, err := svc.Confirm(context.Background(), "o1", "pi_1", 2060, "EUR")
	if !errors.Is(err, domain.ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}
}

func TestConfirmReservationConflictDoesNotFailPayment(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	reservations := &stubReserver{err: domain.ErrArtworkAlreadySold}
	svc := newTestService(ledger, reservations, &stubIntents{}, time.Second)

	got, err := svc.Confirm(context.Background(), "o1", "pi_1", 2060, "EUR")
	if err != nil {
		t.Fatalf("reservation conflict must not fail the payment: %v", err)
	}
	if got.Status != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
}

func TestConfirmFromIntentReReadsAmountFromProcessor(t *testing.T) {
	ledger := newMemLedger(withIntent(pendingCardOrder(2060), "pi_1"))
	intents := &stubIntents{fetched: Intent{ID: "pi_1", Status: "succeeded", AmountCents: 2060, Currency: "EUR", OrderID: "o1"}}
	svc := newTestService(ledger, &stubReserver{}, intents, time.Second)

	got, err := svc.ConfirmFromIntent(context.Background(), "o1", "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
}

func TestConfirmFromIntentRejectsUnsettledIntent(t *testing.T) {
	intents := &stubIntents{fetched: Intent{ID: "pi_1", Status: "requires_payment_method", AmountCents: 2060, Currency: "EUR", OrderID: "o1"}}
	svc := newTestService(newMemLedger(withIntent(pendingCardOrder(2060), "pi_1")), &stubReserver{}, intents, time.Second)

	if _, err := svc.ConfirmFromIntent(context.Background(), "o1", "pi_1"); err == nil {
		t.Fatal("expected error for an unsettled intent")
	}
}

func TestConfirmFromIntentRejectsForeignIntent(t *testing.T) {
	// A succeeded intent created for another order with the same total
	// must never pay this one: one charge, one order.
	ledger := newMemLedger(withIntent(pendingCardOrder(2060), "pi_own"))
	intents := &stubIntents{fetched: Intent{ID: "pi_other", Status: "succeeded", AmountCents: 2060, Currency: "EUR", OrderID: "o2"}}
	reservations := &stubReserver{}
	svc := newTestService(ledger, reservations, intents, time.Second)

	_, err := svc.ConfirmFromIntent(context.Background(), "o1", "pi_other")
	if !errors.Is(err, domain.ErrIntentMismatch) {
		t.Fatalf("expected ErrIntentMismatch, got %v", err)
	}
	got, _ := ledger.Get(context.Background(), "o1")
	if got.Status != domain.StatusPending {
		t.Fatalf("foreign intent must leave the order PENDING, got %s", got.Status)
	}
	if reservations.calls != 0 {
		t.Fatal("foreign intent must not reserve artworks")
	}
}

func TestConfirmFromIntentRejectsMetadataMismatch(t *testing.T) {
	// Even if the intent id was somehow attached to the wrong order, the
	// processor-side order metadata is the second lock.
	ledger := newMemLedger(withIntent(pendingCardOrder(2060), "pi_1"))
	intents := &stubIntents{fetched: Intent{ID: "pi_1", Status: "succeeded", AmountCents: 2060, Currency: "EUR", OrderID: "o2"}}
	svc := newTestService(ledger, &stubReserver{}, intents, time.Second)

	_, err := svc.ConfirmFromIntent(context.Background(), "o1", "pi_1")
	if !errors.Is(err, domain.ErrIntentMismatch) {
		t.Fatalf("expected ErrIntentMismatch, got %v", err)
	}
}

func TestConfirmFromIntentRejectsOrderWithoutIntent(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	intents := &stubIntents{fetched: Intent{ID: "pi_1", Status: "succeeded", AmountCents: 2060, Currency: "EUR"}}
	svc := newTestService(ledger, &stubReserver{}, intents, time.Second)

	_, err := svc.ConfirmFromIntent(context.Background(), "o1", "pi_1")
	if !errors.Is(err, domain.ErrIntentMismatch) {
		t.Fatalf("expected ErrIntentMismatch, got %v", err)
	}
}

func TestOrderIDForIntent(t *testing.T) {
	ledger := newMemLedger(withIntent(pendingCardOrder(2060), "pi_1"))
	svc := newTestService(ledger, &stubReserver{}, &stubIntents{}, time.Second)

	id, err := svc.OrderIDForIntent(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "o1" {
		t.Fatalf("expected o1, got %q", id)
	}

	if _, err := svc.OrderIDForIntent(context.Background(), "pi_unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailRecordsReasonAndStaysRetryable(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	svc := newTestService(ledger, &stubReserver{}, &stubIntents{}, time.Second)

	got, err := svc.Fail(context.Background(), "o1", "card_declined")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusPaymentFailed {
		t.Fatalf("expected PAYMENT_FAILED, got %s", got.Status)
	}
	if got.FailureReason == nil || *got.FailureReason != "card_declined" {
		t.Fatalf("failure reason not recorded: %+v", got)
	}
	if !domain.CanTransition(got.Status, domain.StatusPending) {
		t.Fatal("a failed order must remain retryable")
	}
}

func TestFailDuplicateIsAbsorbed(t *testing.T) {
	ledger := newMemLedger(pendingCardOrder(2060))
	svc := newTestService(ledger, &stubReserver{}, &stubIntents{}, time.Second)

	if _, err := svc.Fail(context.Background(), "o1", "card_declined"); err != nil {
		t.Fatalf("first fail: %v", err)
	}
	if _, err := svc.Fail(context.Background(), "o1", "card_declined"); err != nil {
		t.Fatalf("duplicate fail must be absorbed, got %v", err)
	}
}
