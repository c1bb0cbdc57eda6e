package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

// ShipmentCreator abstracts the carrier call so tests can stub it.
type ShipmentCreator interface {
	CreateShipment(ctx context.Context, req carrier.ShipmentRequest) (*carrier.Shipment, error)
}

// AssignInput sets or corrects where a parcel ships.
type AssignInput struct {
	OrderID       uuid.UUID
	CoordinatorID uuid.UUID
	Wilaya        string
	Method        enums.DeliveryMethod
	DeskCode      *string
	Address       *string
}

// TransitionInput carries the actor for a logistics status move.
type TransitionInput struct {
	OrderID       uuid.UUID
	CoordinatorID uuid.UUID
}

// Service owns the logistics side of the order status machine.
type Service interface {
	AssignDelivery(ctx context.Context, input AssignInput) (*models.DeliveryAssignment, error)
	MarkReady(ctx context.Context, input TransitionInput) (*models.Order, error)
	Handoff(ctx context.Context, input TransitionInput) (*models.Order, error)
}

type service struct {
	repo    orders.Repository
	tx      txRunner
	carrier ShipmentCreator
	logg    *logger.Logger
}

// NewService builds the delivery service with the required dependencies.
func NewService(repo orders.Repository, tx txRunner, shipper ShipmentCreator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if shipper == nil {
		return nil, fmt.Errorf("carrier client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, carrier: shipper, logg: logg}, nil
}

func (s *service) AssignDelivery(ctx context.Context, input AssignInput) (*models.DeliveryAssignment, error) {
	if err := validateAssignInput(input); err != nil {
		return nil, err
	}

	var result *models.DeliveryAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.HasShipment() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "assignment is locked after carrier handoff")
		}

		tariff, err := repo.FindTariff(ctx, input.Wilaya)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "no delivery tariff for wilaya").
					WithDetails(map[string]any{"wilaya": input.Wilaya})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery tariff")
		}
		fee := tariff.HomeFee
		if input.Method == enums.DeliveryMethodDesk {
			fee = tariff.DeskFee
		}

		coordinatorID := input.CoordinatorID
		existing, err := repo.FindAssignment(ctx, input.OrderID)
		switch {
		case err == nil:
			updates := map[string]any{
				"wilaya":       input.Wilaya,
				"method":       input.Method,
				"desk_code":    input.DeskCode,
				"address":      input.Address,
				"delivery_fee": fee,
				"assigned_by":  coordinatorID,
			}
			if err := repo.UpdateAssignment(ctx, existing.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery assignment")
			}
			existing.Wilaya = input.Wilaya
			existing.Method = input.Method
			existing.DeskCode = input.DeskCode
			existing.Address = input.Address
			existing.DeliveryFee = fee
			existing.AssignedBy = &coordinatorID
			result = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			assignment := &models.DeliveryAssignment{
				OrderID:     input.OrderID,
				Wilaya:      input.Wilaya,
				Method:      input.Method,
				DeskCode:    input.DeskCode,
				Address:     input.Address,
				DeliveryFee: fee,
				AssignedBy:  &coordinatorID,
			}
			if _, err := repo.CreateAssignment(ctx, assignment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery assignment")
			}
			result = assignment
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery assignment")
		}

		// A corrected destination reprices the order.
		status := order.DeliveryStatus
		rows, err := repo.UpdateOrderGuarded(ctx, orders.GuardedUpdate{
			OrderID:           order.ID,
			ExpectedDelivery:  &status,
			RequireNoShipment: true,
			Updates: map[string]any{
				"delivery_fee": fee,
				"total":        order.Subtotal.Add(fee),
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reprice order")
		}
		if rows == 0 {
			return orders.GuardConflict(ctx, repo, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) MarkReady(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CoordinatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "coordinator identity missing")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		// The parcel only enters the pipeline once the call center confirmed.
		if order.ConfirmationStatus != enums.ConfirmationStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not confirmed").
				WithDetails(map[string]any{"confirmation_status": order.ConfirmationStatus})
		}
		if !CanTransition(order.DeliveryStatus, enums.DeliveryStatusReady) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot mark %s order ready", order.DeliveryStatus))
		}
		if _, err := repo.FindAssignment(ctx, order.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "delivery assignment required before ready")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery assignment")
		}

		notReady := enums.DeliveryStatusNotReady
		confirmed := enums.ConfirmationStatusConfirmed
		rows, err := repo.UpdateOrderGuarded(ctx, orders.GuardedUpdate{
			OrderID:              order.ID,
			ExpectedConfirmation: &confirmed,
			ExpectedDelivery:     &notReady,
			Updates:              map[string]any{"delivery_status": enums.DeliveryStatusReady},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order ready")
		}
		if rows == 0 {
			return orders.GuardConflict(ctx, repo, order.ID)
		}

		order.DeliveryStatus = enums.DeliveryStatusReady
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Handoff registers the parcel with the carrier and moves the order to
// in_transit. The carrier call happens outside any transaction; when the
// guarded write loses a race afterwards the tracking identifier is logged so
// operations can reconcile the stray parcel.
func (s *service) Handoff(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CoordinatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "coordinator identity missing")
	}

	order, err := s.loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.HasShipment() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order already handed to carrier")
	}
	if order.ConfirmationStatus != enums.ConfirmationStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not confirmed").
			WithDetails(map[string]any{"confirmation_status": order.ConfirmationStatus})
	}
	if !CanTransition(order.DeliveryStatus, enums.DeliveryStatusInTransit) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot hand off %s order", order.DeliveryStatus))
	}

	assignment, err := s.repo.FindAssignment(ctx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery assignment required before handoff")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery assignment")
	}

	shipment, err := s.carrier.CreateShipment(ctx, buildShipmentRequest(order, assignment))
	if err != nil {
		// Carrier-side rejections leave the order ready so staff can fix
		// the assignment and retry.
		return nil, err
	}

	ready := enums.DeliveryStatusReady
	rows, err := s.repo.UpdateOrderGuarded(ctx, orders.GuardedUpdate{
		OrderID:           order.ID,
		ExpectedDelivery:  &ready,
		RequireNoShipment: true,
		Updates: map[string]any{
			"carrier_tracking_id": shipment.TrackingID,
			"delivery_status":     enums.DeliveryStatusInTransit,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record carrier handoff")
	}
	if rows == 0 {
		ctxLog := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Error(ctxLog, "shipment created but order changed concurrently; tracking "+shipment.TrackingID, nil)
		return nil, orders.GuardConflict(ctx, s.repo, order.ID)
	}

	tracking := shipment.TrackingID
	order.CarrierTrackingID = &tracking
	order.DeliveryStatus = enums.DeliveryStatusInTransit
	return order, nil
}

func buildShipmentRequest(order *models.Order, assignment *models.DeliveryAssignment) carrier.ShipmentRequest {
	req := carrier.ShipmentRequest{
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		Phone:         order.CustomerPhone,
		Wilaya:        assignment.Wilaya,
		StopDesk:      assignment.Method == enums.DeliveryMethodDesk,
		DeclaredValue: order.Total,
	}
	if assignment.DeskCode != nil {
		req.DeskCode = *assignment.DeskCode
	}
	if assignment.Address != nil {
		req.Address = *assignment.Address
	}
	return req
}

func validateAssignInput(input AssignInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CoordinatorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "coordinator identity missing")
	}
	if strings.TrimSpace(input.Wilaya) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "wilaya required")
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery method must be home or desk")
	}
	if input.Method == enums.DeliveryMethodDesk && (input.DeskCode == nil || strings.TrimSpace(*input.DeskCode) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "desk code required for desk delivery")
	}
	if input.Method == enums.DeliveryMethodHome && (input.Address == nil || strings.TrimSpace(*input.Address) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "address required for home delivery")
	}
	return nil
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
