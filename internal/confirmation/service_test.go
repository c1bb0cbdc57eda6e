package confirmation

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/amelbouzid/karakou-backend/internal/orders"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// fakeRepo keeps orders in memory and honors the guarded-update contract.
type fakeRepo struct {
	orders   map[uuid.UUID]*models.Order
	attempts []*models.ConfirmationAttempt

	guardedCalls []orders.GuardedUpdate
	forceNoRows  bool
}

func newFakeRepo(seed ...*models.Order) *fakeRepo {
	repo := &fakeRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range seed {
		repo.orders[order.ID] = order
	}
	return repo
}

func (f *fakeRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (f *fakeRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	panic("not implemented")
}

func (f *fakeRepo) ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	panic("not implemented")
}

func (f *fakeRepo) CreateAttempt(ctx context.Context, attempt *models.ConfirmationAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeRepo) CreateCarrierEvent(ctx context.Context, event *models.CarrierEvent) error {
	panic("not implemented")
}

func (f *fakeRepo) CreateAssignment(ctx context.Context, assignment *models.DeliveryAssignment) (*models.DeliveryAssignment, error) {
	panic("not implemented")
}

func (f *fakeRepo) UpdateAssignment(ctx context.Context, assignmentID uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (f *fakeRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeRepo) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	panic("not implemented")
}

func (f *fakeRepo) FindOrderByTrackingID(ctx context.Context, trackingID string) (*models.Order, error) {
	panic("not implemented")
}

func (f *fakeRepo) FindAssignment(ctx context.Context, orderID uuid.UUID) (*models.DeliveryAssignment, error) {
	panic("not implemented")
}

func (f *fakeRepo) FindCarrierEvents(ctx context.Context, orderID uuid.UUID) ([]models.CarrierEvent, error) {
	panic("not implemented")
}

func (f *fakeRepo) FindTariff(ctx context.Context, wilaya string) (*models.DeliveryTariff, error) {
	panic("not implemented")
}

func (f *fakeRepo) ListTariffs(ctx context.Context) ([]models.DeliveryTariff, error) {
	panic("not implemented")
}

func (f *fakeRepo) CountOrders(ctx context.Context) (int64, error) {
	panic("not implemented")
}

func (f *fakeRepo) FindUnreachableOrdersBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var stale []models.Order
	for _, order := range f.orders {
		if order.ConfirmationStatus != enums.ConfirmationStatusPending &&
			order.ConfirmationStatus != enums.ConfirmationStatusDelayed {
			continue
		}
		if order.ContactAnchor().After(cutoff) {
			continue
		}
		stale = append(stale, *order)
	}
	return stale, nil
}

func (f *fakeRepo) FindOrdersInTransit(ctx context.Context) ([]models.Order, error) {
	panic("not implemented")
}

func (f *fakeRepo) UpdateOrderGuarded(ctx context.Context, in orders.GuardedUpdate) (int64, error) {
	f.guardedCalls = append(f.guardedCalls, in)
	if f.forceNoRows {
		return 0, nil
	}
	order, ok := f.orders[in.OrderID]
	if !ok {
		return 0, nil
	}
	if in.ExpectedConfirmation != nil && order.ConfirmationStatus != *in.ExpectedConfirmation {
		return 0, nil
	}
	if in.ExpectedDelivery != nil && order.DeliveryStatus != *in.ExpectedDelivery {
		return 0, nil
	}
	if in.RequireNoShipment && order.HasShipment() {
		return 0, nil
	}

	for key, value := range in.Updates {
		switch key {
		case "confirmation_status":
			order.ConfirmationStatus = value.(enums.ConfirmationStatus)
		case "delivery_status":
			order.DeliveryStatus = value.(enums.DeliveryStatus)
		case "cancel_reason":
			reason := value.(string)
			order.CancelReason = &reason
		case "confirmed_at":
			at := value.(time.Time)
			order.ConfirmedAt = &at
		case "last_contact_attempt_at":
			at := value.(time.Time)
			order.LastContactAttemptAt = &at
		}
	}
	return 1, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

var testClock = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *fakeRepo) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(repo, stubTxRunner{}, logg, func() time.Time { return testClock })
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        "KRK-000010",
		ConfirmationStatus: enums.ConfirmationStatusPending,
		DeliveryStatus:     enums.DeliveryStatusNotReady,
		CreatedAt:          testClock.Add(-time.Hour),
	}
}

func TestConfirmSetsTimestamp(t *testing.T) {
	order := pendingOrder()
	repo := newFakeRepo(order)
	svc := newTestService(t, repo)

	confirmed, err := svc.Confirm(context.Background(), TransitionInput{OrderID: order.ID, AgentID: uuid.New()})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.ConfirmationStatus != enums.ConfirmationStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.ConfirmationStatus)
	}
	if confirmed.ConfirmedAt == nil || !confirmed.ConfirmedAt.Equal(testClock) {
		t.Fatalf("expected confirmed_at %v, got %v", testClock, confirmed.ConfirmedAt)
	}
	if repo.orders[order.ID].ConfirmationStatus != enums.ConfirmationStatusConfirmed {
		t.Fatal("stored order not confirmed")
	}
	if len(repo.attempts) != 1 || repo.attempts[0].Outcome != enums.ContactOutcomeAnswered {
		t.Fatalf("expected one answered attempt, got %+v", repo.attempts)
	}
}

func TestDelayAppendsAttemptAndTouchesWindow(t *testing.T) {
	order := pendingOrder()
	repo := newFakeRepo(order)
	svc := newTestService(t, repo)

	note := "call back after 18h"
	delayed, err := svc.Delay(context.Background(), TransitionInput{
		OrderID: order.ID,
		AgentID: uuid.New(),
		Note:    &note,
	})
	if err != nil {
		t.Fatalf("delay: %v", err)
	}
	if delayed.ConfirmationStatus != enums.ConfirmationStatusDelayed {
		t.Fatalf("expected delayed, got %s", delayed.ConfirmationStatus)
	}

	if len(repo.attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(repo.attempts))
	}
	attempt := repo.attempts[0]
	if attempt.Outcome != enums.ContactOutcomeNoAnswer {
		t.Fatalf("expected no-answer attempt, got %s", attempt.Outcome)
	}
	if attempt.Note == nil || *attempt.Note != note {
		t.Fatalf("expected note on attempt, got %v", attempt.Note)
	}

	stored := repo.orders[order.ID]
	if stored.LastContactAttemptAt == nil || !stored.LastContactAttemptAt.Equal(testClock) {
		t.Fatalf("expected contact window touched at %v, got %v", testClock, stored.LastContactAttemptAt)
	}
}

func TestRequeueReturnsDelayedOrderToPending(t *testing.T) {
	order := pendingOrder()
	order.ConfirmationStatus = enums.ConfirmationStatusDelayed
	repo := newFakeRepo(order)
	svc := newTestService(t, repo)

	requeued, err := svc.Requeue(context.Background(), TransitionInput{OrderID: order.ID, AgentID: uuid.New()})
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if requeued.ConfirmationStatus != enums.ConfirmationStatusPending {
		t.Fatalf("expected pending, got %s", requeued.ConfirmationStatus)
	}
	if len(repo.attempts) != 0 {
		t.Fatalf("requeue must not log an attempt, got %d", len(repo.attempts))
	}

	// Only delayed orders can re-queue.
	if _, err := svc.Requeue(context.Background(), TransitionInput{OrderID: order.ID, AgentID: uuid.New()}); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition for pending order, got %v", err)
	}
}

func TestDelayedAndDoubleOrderAreExclusive(t *testing.T) {
	delayed := pendingOrder()
	delayed.ConfirmationStatus = enums.ConfirmationStatusDelayed
	double := pendingOrder()
	double.ConfirmationStatus = enums.ConfirmationStatusDoubleOrder
	repo := newFakeRepo(delayed, double)
	svc := newTestService(t, repo)

	if _, err := svc.FlagDoubleOrder(context.Background(), TransitionInput{OrderID: delayed.ID, AgentID: uuid.New()}); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition for delayed order, got %v", err)
	}
	if _, err := svc.Delay(context.Background(), TransitionInput{OrderID: double.ID, AgentID: uuid.New()}); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition for double order, got %v", err)
	}
}

func TestCancelBlockedAfterCarrierHandoff(t *testing.T) {
	order := pendingOrder()
	order.ConfirmationStatus = enums.ConfirmationStatusConfirmed
	tracking := "YAL-123456"
	order.CarrierTrackingID = &tracking
	repo := newFakeRepo(order)
	svc := newTestService(t, repo)

	_, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, AgentID: uuid.New(), Reason: "changed mind"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCancelRaceYieldsConflict(t *testing.T) {
	order := pendingOrder()
	repo := newFakeRepo(order)
	repo.forceNoRows = true
	svc := newTestService(t, repo)

	_, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, AgentID: uuid.New(), Reason: "duplicate"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConcurrentModification) {
		t.Fatalf("expected concurrent modification, got %v", err)
	}
}

func TestRecordAttemptTouchesWindow(t *testing.T) {
	order := pendingOrder()
	repo := newFakeRepo(order)
	svc := newTestService(t, repo)

	attempt, err := svc.RecordAttempt(context.Background(), RecordAttemptInput{
		OrderID: order.ID,
		AgentID: uuid.New(),
		Outcome: enums.ContactOutcomeNoAnswer,
	})
	if err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if attempt.Outcome != enums.ContactOutcomeNoAnswer {
		t.Fatalf("unexpected outcome %s", attempt.Outcome)
	}

	stored := repo.orders[order.ID]
	if stored.LastContactAttemptAt == nil || !stored.LastContactAttemptAt.Equal(testClock) {
		t.Fatalf("expected contact window touched at %v, got %v", testClock, stored.LastContactAttemptAt)
	}
}

func TestRecordAttemptClosedAfterConfirmation(t *testing.T) {
	order := pendingOrder()
	order.ConfirmationStatus = enums.ConfirmationStatusConfirmed
	repo := newFakeRepo(order)
	svc := newTestService(t, repo)

	_, err := svc.RecordAttempt(context.Background(), RecordAttemptInput{
		OrderID: order.ID,
		AgentID: uuid.New(),
		Outcome: enums.ContactOutcomeAnswered,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestSweepCancelsStaleUncontactedOrders(t *testing.T) {
	stale := pendingOrder()
	stale.CreatedAt = testClock.Add(-72 * time.Hour)

	touched := pendingOrder()
	touched.CreatedAt = testClock.Add(-72 * time.Hour)
	recent := testClock.Add(-2 * time.Hour)
	touched.LastContactAttemptAt = &recent

	confirmed := pendingOrder()
	confirmed.CreatedAt = testClock.Add(-72 * time.Hour)
	confirmed.ConfirmationStatus = enums.ConfirmationStatusConfirmed

	repo := newFakeRepo(stale, touched, confirmed)
	svc := newTestService(t, repo)

	result, err := svc.SweepUnreachable(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Cancelled != 1 {
		t.Fatalf("expected 1 cancelled, got %d", result.Cancelled)
	}

	swept := repo.orders[stale.ID]
	if swept.ConfirmationStatus != enums.ConfirmationStatusCancelled {
		t.Fatalf("expected cancelled, got %s", swept.ConfirmationStatus)
	}
	if swept.CancelReason == nil || *swept.CancelReason != UnreachableCancelReason {
		t.Fatalf("expected unreachable reason, got %v", swept.CancelReason)
	}

	if repo.orders[touched.ID].ConfirmationStatus != enums.ConfirmationStatusPending {
		t.Fatal("recently contacted order should stay pending")
	}
	if repo.orders[confirmed.ID].ConfirmationStatus != enums.ConfirmationStatusConfirmed {
		t.Fatal("confirmed order must not be swept")
	}
}

func TestSweepCancelsStaleDelayedOrders(t *testing.T) {
	parked := pendingOrder()
	parked.ConfirmationStatus = enums.ConfirmationStatusDelayed
	parked.CreatedAt = testClock.Add(-96 * time.Hour)
	lastCall := testClock.Add(-72 * time.Hour)
	parked.LastContactAttemptAt = &lastCall

	repo := newFakeRepo(parked)
	svc := newTestService(t, repo)

	result, err := svc.SweepUnreachable(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Examined != 1 || result.Cancelled != 1 {
		t.Fatalf("expected delayed order cancelled, got %+v", result)
	}

	swept := repo.orders[parked.ID]
	if swept.ConfirmationStatus != enums.ConfirmationStatusCancelled {
		t.Fatalf("expected cancelled, got %s", swept.ConfirmationStatus)
	}
	if swept.CancelReason == nil || *swept.CancelReason != UnreachableCancelReason {
		t.Fatalf("expected unreachable reason, got %v", swept.CancelReason)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	stale := pendingOrder()
	stale.CreatedAt = testClock.Add(-72 * time.Hour)
	repo := newFakeRepo(stale)
	svc := newTestService(t, repo)

	first, err := svc.SweepUnreachable(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first.Cancelled != 1 {
		t.Fatalf("expected 1 cancelled on first run, got %d", first.Cancelled)
	}

	second, err := svc.SweepUnreachable(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.Examined != 0 || second.Cancelled != 0 {
		t.Fatalf("expected no-op second run, got %+v", second)
	}
}
