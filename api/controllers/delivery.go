package controllers

import (
	"net/http"

	"github.com/amelbouzid/karakou-backend/api/middleware"
	"github.com/amelbouzid/karakou-backend/api/responses"
	"github.com/amelbouzid/karakou-backend/api/validators"
	"github.com/amelbouzid/karakou-backend/internal/delivery"
	"github.com/amelbouzid/karakou-backend/internal/tracking"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// AssignDelivery sets or corrects where a not-yet-shipped order goes.
func AssignDelivery(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignDeliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.AssignDelivery(r.Context(), delivery.AssignInput{
			OrderID:       orderID,
			CoordinatorID: middleware.ActorIDFromContext(r.Context()),
			Wilaya:        payload.Wilaya,
			Method:        enums.DeliveryMethod(payload.Method),
			DeskCode:      payload.DeskCode,
			Address:       payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, assignmentResponse{
			Wilaya:   assignment.Wilaya,
			Method:   assignment.Method,
			DeskCode: assignment.DeskCode,
			Address:  assignment.Address,
			Fee:      assignment.DeliveryFee,
		})
	}
}

// MarkReady moves a confirmed order into the ready-to-ship queue.
func MarkReady(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryTransition(logg, func(r *http.Request, input delivery.TransitionInput) (*models.Order, error) {
		return svc.MarkReady(r.Context(), input)
	})
}

// Handoff creates the carrier shipment and records the tracking id.
func Handoff(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryTransition(logg, func(r *http.Request, input delivery.TransitionInput) (*models.Order, error) {
		return svc.Handoff(r.Context(), input)
	})
}

func deliveryTransition(logg *logger.Logger, call func(*http.Request, delivery.TransitionInput) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := call(r, delivery.TransitionInput{
			OrderID:       orderID,
			CoordinatorID: middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ReconcileOrder folds the latest carrier history into one order on demand.
func ReconcileOrder(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ReconcileOrder(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "reconciled"})
	}
}

type assignDeliveryRequest struct {
	Wilaya   string  `json:"wilaya" validate:"required"`
	Method   string  `json:"method" validate:"required,oneof=home desk"`
	DeskCode *string `json:"desk_code,omitempty"`
	Address  *string `json:"address,omitempty"`
}
