package confirmation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/amelbouzid/karakou-backend/internal/orders"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// UnreachableCancelReason is written when the sweep closes a stale order.
const UnreachableCancelReason = "customer unreachable"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RecordAttemptInput logs one call-center contact attempt.
type RecordAttemptInput struct {
	OrderID uuid.UUID
	AgentID uuid.UUID
	Outcome enums.ContactOutcome
	Note    *string
}

// TransitionInput carries the actor for a simple status move. Note, when
// present, is stored on the contact attempt the move appends.
type TransitionInput struct {
	OrderID uuid.UUID
	AgentID uuid.UUID
	Note    *string
}

// CancelInput captures a manual call-center cancellation.
type CancelInput struct {
	OrderID uuid.UUID
	AgentID uuid.UUID
	Reason  string
}

// SweepResult summarizes one unreachable-sweep run.
type SweepResult struct {
	Examined  int
	Cancelled int
	Skipped   int
}

// Service owns the call-center side of the order status machine.
type Service interface {
	RecordAttempt(ctx context.Context, input RecordAttemptInput) (*models.ConfirmationAttempt, error)
	Confirm(ctx context.Context, input TransitionInput) (*models.Order, error)
	Delay(ctx context.Context, input TransitionInput) (*models.Order, error)
	Requeue(ctx context.Context, input TransitionInput) (*models.Order, error)
	FlagDoubleOrder(ctx context.Context, input TransitionInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	SweepUnreachable(ctx context.Context, unreachableAfter time.Duration) (SweepResult, error)
}

type service struct {
	repo orders.Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the confirmation service. The clock is injectable so the
// unreachable sweep can be tested deterministically.
func NewService(repo orders.Repository, tx txRunner, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, tx: tx, logg: logg, now: now}, nil
}

func (s *service) RecordAttempt(ctx context.Context, input RecordAttemptInput) (*models.ConfirmationAttempt, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "agent identity missing")
	}
	if !input.Outcome.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid contact outcome")
	}

	var attempt *models.ConfirmationAttempt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !CanRecordAttempt(order.ConfirmationStatus) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "contact attempts are closed for this order").
				WithDetails(map[string]any{"confirmation_status": order.ConfirmationStatus})
		}

		agentID := input.AgentID
		attempt = &models.ConfirmationAttempt{
			OrderID: order.ID,
			AgentID: &agentID,
			Outcome: input.Outcome,
			Note:    input.Note,
		}
		if err := repo.CreateAttempt(ctx, attempt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact attempt")
		}

		// Each attempt restarts the unreachable window.
		status := order.ConfirmationStatus
		rows, err := repo.UpdateOrderGuarded(ctx, orders.GuardedUpdate{
			OrderID:              order.ID,
			ExpectedConfirmation: &status,
			Updates:              map[string]any{"last_contact_attempt_at": s.now().UTC()},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch contact window")
		}
		if rows == 0 {
			return orders.GuardConflict(ctx, repo, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// Confirm moves the order to confirmed and appends the answered attempt that
// led there.
func (s *service) Confirm(ctx context.Context, input TransitionInput) (*models.Order, error) {
	answered := enums.ContactOutcomeAnswered
	return s.transition(ctx, input, enums.ConfirmationStatusConfirmed, func(order *models.Order) map[string]any {
		return map[string]any{
			"confirmation_status": enums.ConfirmationStatusConfirmed,
			"confirmed_at":        s.now().UTC(),
		}
	}, false, &answered)
}

// Delay parks the order after a failed call. The no-answer attempt is appended
// and the unreachable window restarts from it.
func (s *service) Delay(ctx context.Context, input TransitionInput) (*models.Order, error) {
	noAnswer := enums.ContactOutcomeNoAnswer
	return s.transition(ctx, input, enums.ConfirmationStatusDelayed, func(order *models.Order) map[string]any {
		return map[string]any{
			"confirmation_status":     enums.ConfirmationStatusDelayed,
			"last_contact_attempt_at": s.now().UTC(),
		}
	}, false, &noAnswer)
}

// Requeue puts a delayed order back in the pending queue for another attempt.
func (s *service) Requeue(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, enums.ConfirmationStatusPending, func(order *models.Order) map[string]any {
		return map[string]any{"confirmation_status": enums.ConfirmationStatusPending}
	}, false, nil)
}

func (s *service) FlagDoubleOrder(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, enums.ConfirmationStatusDoubleOrder, func(order *models.Order) map[string]any {
		return map[string]any{"confirmation_status": enums.ConfirmationStatusDoubleOrder}
	}, false, nil)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel reason required")
	}
	return s.transition(ctx, TransitionInput{OrderID: input.OrderID, AgentID: input.AgentID},
		enums.ConfirmationStatusCancelled, func(order *models.Order) map[string]any {
			return map[string]any{
				"confirmation_status": enums.ConfirmationStatusCancelled,
				"cancel_reason":       reason,
				"delivery_status":     enums.DeliveryStatusNotReady,
			}
		}, true, nil)
}

func (s *service) transition(
	ctx context.Context,
	input TransitionInput,
	target enums.ConfirmationStatus,
	buildUpdates func(order *models.Order) map[string]any,
	requireNoShipment bool,
	outcome *enums.ContactOutcome,
) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "agent identity missing")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if requireNoShipment && order.HasShipment() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order already handed to carrier").
				WithDetails(map[string]any{"tracking_id": *order.CarrierTrackingID})
		}
		if !CanTransition(order.ConfirmationStatus, target) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move from %s to %s", order.ConfirmationStatus, target))
		}

		current := order.ConfirmationStatus
		updates := buildUpdates(order)
		rows, err := repo.UpdateOrderGuarded(ctx, orders.GuardedUpdate{
			OrderID:              order.ID,
			ExpectedConfirmation: &current,
			RequireNoShipment:    requireNoShipment,
			Updates:              updates,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update confirmation status")
		}
		if rows == 0 {
			return orders.GuardConflict(ctx, repo, order.ID)
		}

		if outcome != nil {
			agentID := input.AgentID
			attempt := &models.ConfirmationAttempt{
				OrderID: order.ID,
				AgentID: &agentID,
				Outcome: *outcome,
				Note:    input.Note,
			}
			if err := repo.CreateAttempt(ctx, attempt); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact attempt")
			}
		}

		order.ConfirmationStatus = target
		if target == enums.ConfirmationStatusConfirmed {
			confirmedAt := s.now().UTC()
			order.ConfirmedAt = &confirmedAt
		}
		if reason, ok := updates["cancel_reason"].(string); ok {
			order.CancelReason = &reason
		}
		if touched, ok := updates["last_contact_attempt_at"].(time.Time); ok {
			order.LastContactAttemptAt = &touched
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SweepUnreachable cancels pending and delayed orders whose last contact
// attempt (or creation, when never contacted) is older than the window. Each
// order is re-checked inside its own transaction, so an agent action racing
// the sweep wins and the order is skipped.
func (s *service) SweepUnreachable(ctx context.Context, unreachableAfter time.Duration) (SweepResult, error) {
	if unreachableAfter <= 0 {
		return SweepResult{}, pkgerrors.New(pkgerrors.CodeValidation, "unreachable window must be positive")
	}

	cutoff := s.now().UTC().Add(-unreachableAfter)
	stale, err := s.repo.FindUnreachableOrdersBefore(ctx, cutoff)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unreachable orders")
	}

	result := SweepResult{Examined: len(stale)}
	var errs error
	for _, candidate := range stale {
		orderID := candidate.ID
		txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			order, err := s.loadOrder(ctx, repo, orderID)
			if err != nil {
				return err
			}
			if !sweepable(order.ConfirmationStatus) || order.ContactAnchor().After(cutoff) {
				result.Skipped++
				return nil
			}

			current := order.ConfirmationStatus
			rows, err := repo.UpdateOrderGuarded(ctx, orders.GuardedUpdate{
				OrderID:              order.ID,
				ExpectedConfirmation: &current,
				RequireNoShipment:    true,
				Updates: map[string]any{
					"confirmation_status": enums.ConfirmationStatusCancelled,
					"cancel_reason":       UnreachableCancelReason,
				},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel unreachable order")
			}
			if rows == 0 {
				// Someone touched the order between the scan and this tx.
				result.Skipped++
				return nil
			}
			result.Cancelled++
			return nil
		})
		if txErr != nil {
			ctxLog := s.logg.WithOrderID(ctx, orderID.String())
			s.logg.Error(ctxLog, "unreachable sweep failed for order", txErr)
			errs = multierr.Append(errs, txErr)
		}
	}
	return result, errs
}

func (s *service) loadOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
