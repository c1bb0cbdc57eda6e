package tracking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/amelbouzid/karakou-backend/internal/orders"
	"github.com/amelbouzid/karakou-backend/pkg/carrier"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TrackingFetcher abstracts the carrier history call so tests can stub it.
type TrackingFetcher interface {
	GetTracking(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error)
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Examined  int
	Delivered int
	Failed    int
	Unknown   int
	Errors    int
}

// Service folds carrier history into the delivery track.
type Service interface {
	ReconcileOrder(ctx context.Context, orderID uuid.UUID) error
	ReconcileInTransit(ctx context.Context) (ReconcileResult, error)
}

type service struct {
	repo    orders.Repository
	tx      txRunner
	fetcher TrackingFetcher
	logg    *logger.Logger
}

// NewService builds the tracking reconciliation service.
func NewService(repo orders.Repository, tx txRunner, fetcher TrackingFetcher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("tracking fetcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, fetcher: fetcher, logg: logg}, nil
}

// ReconcileOrder pulls the carrier history for one order and applies the
// newest event. Events are deduplicated against what is already stored, so
// replaying the same history is a no-op. The newest event wins by carrier
// timestamp; the carrier sequence number breaks ties.
func (s *service) ReconcileOrder(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !order.HasShipment() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order has no carrier shipment")
	}
	if order.DeliveryStatus.IsTerminal() {
		return nil
	}

	history, err := s.fetcher.GetTracking(ctx, *order.CarrierTrackingID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	sort.Slice(history, func(i, j int) bool {
		if history[i].OccurredAt.Equal(history[j].OccurredAt) {
			return history[i].Sequence < history[j].Sequence
		}
		return history[i].OccurredAt.Before(history[j].OccurredAt)
	})
	newest := history[len(history)-1]

	// The event writes must commit even when the newest status is unmapped;
	// the log is append-only and an unknown status is surfaced after the
	// transaction, not through it.
	var unknownErr error
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		stored, err := repo.FindCarrierEvents(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stored carrier events")
		}
		seen := make(map[string]bool, len(stored))
		for _, e := range stored {
			seen[eventKey(e.CarrierTimestamp, e.CarrierSequence)] = true
		}

		for _, e := range history {
			if seen[eventKey(e.OccurredAt, e.Sequence)] {
				continue
			}
			record := &models.CarrierEvent{
				OrderID:          order.ID,
				TrackingID:       *order.CarrierTrackingID,
				CarrierStatus:    e.Status,
				CarrierSequence:  e.Sequence,
				CarrierTimestamp: e.OccurredAt,
			}
			if e.Reason != "" {
				reason := e.Reason
				record.Reason = &reason
			}
			if e.Location != "" {
				location := e.Location
				record.Location = &location
			}
			if err := repo.CreateCarrierEvent(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store carrier event")
			}
		}

		if watermarkCovers(order, newest) {
			return nil
		}

		target, ok := MapCarrierStatus(newest.Status)
		if !ok {
			ctxLog := s.logg.WithOrderID(ctx, order.ID.String())
			ctxLog = s.logg.WithFields(ctxLog, map[string]any{
				"carrier_status": newest.Status,
				"tracking_id":    *order.CarrierTrackingID,
			})
			s.logg.Warn(ctxLog, "carrier status outside mapping; order left untouched")
			unknownErr = pkgerrors.New(pkgerrors.CodeUnknownCarrierStatus, "carrier status not in mapping").
				WithDetails(map[string]any{"carrier_status": newest.Status})
			return nil
		}

		inTransit := enums.DeliveryStatusInTransit
		updates := map[string]any{
			"last_carrier_event_at":  newest.OccurredAt,
			"last_carrier_event_seq": newest.Sequence,
		}
		if target != enums.DeliveryStatusInTransit {
			updates["delivery_status"] = target
		}

		rows, err := repo.UpdateOrderGuarded(ctx, orders.GuardedUpdate{
			OrderID:          order.ID,
			ExpectedDelivery: &inTransit,
			Updates:          updates,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply carrier status")
		}
		if rows == 0 {
			// Another reconcile run or a coordinator got there first.
			current, err := repo.FindOrder(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if current.DeliveryStatus == target {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConcurrentModification, "order was modified concurrently")
		}
		return nil
	})
	if err != nil {
		return err
	}
	return unknownErr
}

// watermarkCovers reports whether the stored (timestamp, sequence) watermark
// already accounts for the event. Same-timestamp events are ordered by the
// carrier sequence number.
func watermarkCovers(order *models.Order, e carrier.TrackingEvent) bool {
	if order.LastCarrierEventAt == nil {
		return false
	}
	if e.OccurredAt.After(*order.LastCarrierEventAt) {
		return false
	}
	if e.OccurredAt.Before(*order.LastCarrierEventAt) {
		return true
	}
	if order.LastCarrierEventSeq == nil {
		return true
	}
	return e.Sequence <= *order.LastCarrierEventSeq
}

// ReconcileInTransit reconciles every shipped order still in transit. Errors
// on individual orders are collected and do not stop the pass.
func (s *service) ReconcileInTransit(ctx context.Context) (ReconcileResult, error) {
	inTransit, err := s.repo.FindOrdersInTransit(ctx)
	if err != nil {
		return ReconcileResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list in-transit orders")
	}

	result := ReconcileResult{Examined: len(inTransit)}
	var errs error
	for _, order := range inTransit {
		err := s.ReconcileOrder(ctx, order.ID)
		switch {
		case err == nil:
			current, loadErr := s.repo.FindOrder(ctx, order.ID)
			if loadErr != nil {
				continue
			}
			switch current.DeliveryStatus {
			case enums.DeliveryStatusDelivered:
				result.Delivered++
			case enums.DeliveryStatusFailed:
				result.Failed++
			}
		case pkgerrors.IsCode(err, pkgerrors.CodeUnknownCarrierStatus):
			result.Unknown++
		default:
			result.Errors++
			ctxLog := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Error(ctxLog, "tracking reconcile failed for order", err)
			errs = multierr.Append(errs, err)
		}
	}
	return result, errs
}

func eventKey(ts time.Time, seq int64) string {
	return fmt.Sprintf("%d:%d", ts.UnixNano(), seq)
}
