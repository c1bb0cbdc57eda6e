package tracking

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/amelbouzid/karakou-backend/internal/orders"
	"github.com/amelbouzid/karakou-backend/pkg/carrier"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

type fakeRepo struct {
	orders map[uuid.UUID]*models.Order
	events []*models.CarrierEvent
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
	panic("not implemented")
}

func (f *fakeRepo) CreateCarrierEvent(ctx context.Context, event *models.CarrierEvent) error {
	f.events = append(f.events, event)
	return nil
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
	events := make([]models.CarrierEvent, 0, len(f.events))
	for _, e := range f.events {
		if e.OrderID == orderID {
			events = append(events, *e)
		}
	}
	return events, nil
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
	panic("not implemented")
}

func (f *fakeRepo) FindOrdersInTransit(ctx context.Context) ([]models.Order, error) {
	var inTransit []models.Order
	for _, order := range f.orders {
		if order.DeliveryStatus == enums.DeliveryStatusInTransit && order.CarrierTrackingID != nil {
			inTransit = append(inTransit, *order)
		}
	}
	return inTransit, nil
}

func (f *fakeRepo) UpdateOrderGuarded(ctx context.Context, in orders.GuardedUpdate) (int64, error) {
	order, ok := f.orders[in.OrderID]
	if !ok {
		return 0, nil
	}
	if in.ExpectedDelivery != nil && order.DeliveryStatus != *in.ExpectedDelivery {
		return 0, nil
	}
	for key, value := range in.Updates {
		switch key {
		case "delivery_status":
			order.DeliveryStatus = value.(enums.DeliveryStatus)
		case "last_carrier_event_at":
			at := value.(time.Time)
			order.LastCarrierEventAt = &at
		case "last_carrier_event_seq":
			seq := value.(int64)
			order.LastCarrierEventSeq = &seq
		}
	}
	return 1, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubFetcher struct {
	histories map[string][]carrier.TrackingEvent
	calls     int
}

func (s *stubFetcher) GetTracking(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error) {
	s.calls++
	return s.histories[trackingID], nil
}

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo *fakeRepo, fetcher TrackingFetcher) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(repo, stubTxRunner{}, fetcher, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func inTransitOrder(tracking string) *models.Order {
	return &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        "KRK-000033",
		ConfirmationStatus: enums.ConfirmationStatusConfirmed,
		DeliveryStatus:     enums.DeliveryStatusInTransit,
		CarrierTrackingID:  &tracking,
	}
}

func TestReconcileAppliesDeliveredStatus(t *testing.T) {
	order := inTransitOrder("YAL-100200")
	repo := newFakeRepo(order)
	fetcher := &stubFetcher{histories: map[string][]carrier.TrackingEvent{
		"YAL-100200": {
			{Status: "Expédié", Sequence: 1, OccurredAt: baseTime},
			{Status: "Sorti en livraison", Sequence: 2, OccurredAt: baseTime.Add(4 * time.Hour)},
			{Status: "Livré", Sequence: 3, OccurredAt: baseTime.Add(8 * time.Hour)},
		},
	}}
	svc := newTestService(t, repo, fetcher)

	if err := svc.ReconcileOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	stored := repo.orders[order.ID]
	if stored.DeliveryStatus != enums.DeliveryStatusDelivered {
		t.Fatalf("expected delivered, got %s", stored.DeliveryStatus)
	}
	if stored.LastCarrierEventAt == nil || !stored.LastCarrierEventAt.Equal(baseTime.Add(8*time.Hour)) {
		t.Fatalf("expected newest event timestamp, got %v", stored.LastCarrierEventAt)
	}
	if len(repo.events) != 3 {
		t.Fatalf("expected 3 stored events, got %d", len(repo.events))
	}
}

func TestReconcileUnknownStatusLeavesOrderUntouched(t *testing.T) {
	order := inTransitOrder("YAL-300400")
	repo := newFakeRepo(order)
	fetcher := &stubFetcher{histories: map[string][]carrier.TrackingEvent{
		"YAL-300400": {
			{Status: "Expédié", Sequence: 1, OccurredAt: baseTime},
			{Status: "En attente", Sequence: 2, OccurredAt: baseTime.Add(2 * time.Hour)},
		},
	}}
	svc := newTestService(t, repo, fetcher)

	err := svc.ReconcileOrder(context.Background(), order.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnknownCarrierStatus) {
		t.Fatalf("expected unknown carrier status, got %v", err)
	}

	stored := repo.orders[order.ID]
	if stored.DeliveryStatus != enums.DeliveryStatusInTransit {
		t.Fatalf("order must stay in_transit, got %s", stored.DeliveryStatus)
	}
	if stored.LastCarrierEventAt != nil {
		t.Fatal("unmapped event must not advance the watermark")
	}
	if len(repo.events) != 2 {
		t.Fatalf("history should still be recorded, got %d events", len(repo.events))
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	order := inTransitOrder("YAL-500600")
	repo := newFakeRepo(order)
	fetcher := &stubFetcher{histories: map[string][]carrier.TrackingEvent{
		"YAL-500600": {
			{Status: "Livré", Sequence: 1, OccurredAt: baseTime},
		},
	}}
	svc := newTestService(t, repo, fetcher)

	if err := svc.ReconcileOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if err := svc.ReconcileOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 stored event after replay, got %d", len(repo.events))
	}
	if fetcher.calls != 1 {
		t.Fatalf("terminal order must not be re-fetched, got %d calls", fetcher.calls)
	}
}

func TestReconcileTieBreaksBySequence(t *testing.T) {
	order := inTransitOrder("YAL-700800")
	repo := newFakeRepo(order)
	fetcher := &stubFetcher{histories: map[string][]carrier.TrackingEvent{
		"YAL-700800": {
			{Status: "Echec livraison", Sequence: 2, OccurredAt: baseTime},
			{Status: "Sorti en livraison", Sequence: 1, OccurredAt: baseTime},
		},
	}}
	svc := newTestService(t, repo, fetcher)

	if err := svc.ReconcileOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repo.orders[order.ID].DeliveryStatus != enums.DeliveryStatusFailed {
		t.Fatalf("expected failed via sequence tie-break, got %s", repo.orders[order.ID].DeliveryStatus)
	}
}

func TestReconcileSameTimestampHigherSequenceWins(t *testing.T) {
	order := inTransitOrder("YAL-330440")
	repo := newFakeRepo(order)
	fetcher := &stubFetcher{histories: map[string][]carrier.TrackingEvent{
		"YAL-330440": {
			{Status: "En transit", Sequence: 1, OccurredAt: baseTime},
		},
	}}
	svc := newTestService(t, repo, fetcher)

	if err := svc.ReconcileOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}

	// A later poll surfaces a terminal event sharing the watermark timestamp.
	fetcher.histories["YAL-330440"] = append(fetcher.histories["YAL-330440"],
		carrier.TrackingEvent{Status: "Livré", Sequence: 2, OccurredAt: baseTime})

	if err := svc.ReconcileOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	stored := repo.orders[order.ID]
	if stored.DeliveryStatus != enums.DeliveryStatusDelivered {
		t.Fatalf("expected delivered via sequence watermark, got %s", stored.DeliveryStatus)
	}
	if stored.LastCarrierEventSeq == nil || *stored.LastCarrierEventSeq != 2 {
		t.Fatalf("expected watermark sequence 2, got %v", stored.LastCarrierEventSeq)
	}
}

// recordingTxRunner captures what each transaction function returned, so a
// test can tell a committed transaction from a rolled-back one.
type recordingTxRunner struct {
	returned []error
}

func (r *recordingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := fn(nil)
	r.returned = append(r.returned, err)
	return err
}

func TestReconcileUnknownStatusCommitsEventLog(t *testing.T) {
	order := inTransitOrder("YAL-550660")
	repo := newFakeRepo(order)
	fetcher := &stubFetcher{histories: map[string][]carrier.TrackingEvent{
		"YAL-550660": {
			{Status: "En attente", Sequence: 1, OccurredAt: baseTime},
		},
	}}
	tx := &recordingTxRunner{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(repo, tx, fetcher, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.ReconcileOrder(context.Background(), order.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnknownCarrierStatus) {
		t.Fatalf("expected unknown carrier status, got %v", err)
	}

	// The transaction itself must have committed; a rollback would erase the
	// append-only event log on every pass over an unmapped status.
	if len(tx.returned) != 1 || tx.returned[0] != nil {
		t.Fatalf("expected committed transaction, got %v", tx.returned)
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected persisted event, got %d", len(repo.events))
	}
}

func TestReconcileIgnoresStaleHistory(t *testing.T) {
	order := inTransitOrder("YAL-900100")
	watermark := baseTime.Add(24 * time.Hour)
	order.LastCarrierEventAt = &watermark
	repo := newFakeRepo(order)
	fetcher := &stubFetcher{histories: map[string][]carrier.TrackingEvent{
		"YAL-900100": {
			{Status: "Livré", Sequence: 1, OccurredAt: baseTime},
		},
	}}
	svc := newTestService(t, repo, fetcher)

	if err := svc.ReconcileOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repo.orders[order.ID].DeliveryStatus != enums.DeliveryStatusInTransit {
		t.Fatal("stale history must not change the order")
	}
}

func TestReconcileInTransitCollectsCounts(t *testing.T) {
	delivered := inTransitOrder("YAL-111111")
	stuck := inTransitOrder("YAL-222222")
	repo := newFakeRepo(delivered, stuck)
	fetcher := &stubFetcher{histories: map[string][]carrier.TrackingEvent{
		"YAL-111111": {{Status: "Livré", Sequence: 1, OccurredAt: baseTime}},
		"YAL-222222": {{Status: "En attente", Sequence: 1, OccurredAt: baseTime}},
	}}
	svc := newTestService(t, repo, fetcher)

	result, err := svc.ReconcileInTransit(context.Background())
	if err != nil {
		t.Fatalf("reconcile pass: %v", err)
	}
	if result.Examined != 2 {
		t.Fatalf("expected 2 examined, got %d", result.Examined)
	}
	if result.Delivered != 1 {
		t.Fatalf("expected 1 delivered, got %d", result.Delivered)
	}
	if result.Unknown != 1 {
		t.Fatalf("expected 1 unknown, got %d", result.Unknown)
	}
}
