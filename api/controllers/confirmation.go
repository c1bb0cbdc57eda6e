package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/amelbouzid/karakou-backend/api/middleware"
	"github.com/amelbouzid/karakou-backend/api/responses"
	"github.com/amelbouzid/karakou-backend/api/validators"
	"github.com/amelbouzid/karakou-backend/internal/confirmation"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// RecordAttempt logs a contact attempt against a pending order.
func RecordAttempt(svc confirmation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordAttemptRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := svc.RecordAttempt(r.Context(), confirmation.RecordAttemptInput{
			OrderID: orderID,
			AgentID: middleware.ActorIDFromContext(r.Context()),
			Outcome: enums.ContactOutcome(payload.Outcome),
			Note:    payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newAttemptResponse(attempt))
	}
}

// ConfirmOrder moves an order to CONFIRMED.
func ConfirmOrder(svc confirmation.Service, logg *logger.Logger) http.HandlerFunc {
	return confirmationTransition(logg, func(r *http.Request, input confirmation.TransitionInput) (*models.Order, error) {
		return svc.Confirm(r.Context(), input)
	})
}

// DelayOrder parks an order for a later call-back.
func DelayOrder(svc confirmation.Service, logg *logger.Logger) http.HandlerFunc {
	return confirmationTransition(logg, func(r *http.Request, input confirmation.TransitionInput) (*models.Order, error) {
		return svc.Delay(r.Context(), input)
	})
}

// RequeueOrder puts a delayed order back in the pending queue.
func RequeueOrder(svc confirmation.Service, logg *logger.Logger) http.HandlerFunc {
	return confirmationTransition(logg, func(r *http.Request, input confirmation.TransitionInput) (*models.Order, error) {
		return svc.Requeue(r.Context(), input)
	})
}

// FlagDoubleOrder marks an order as a suspected duplicate.
func FlagDoubleOrder(svc confirmation.Service, logg *logger.Logger) http.HandlerFunc {
	return confirmationTransition(logg, func(r *http.Request, input confirmation.TransitionInput) (*models.Order, error) {
		return svc.FlagDoubleOrder(r.Context(), input)
	})
}

// CancelOrder cancels from the confirmation track with an explicit reason.
func CancelOrder(svc confirmation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), confirmation.CancelInput{
			OrderID: orderID,
			AgentID: middleware.ActorIDFromContext(r.Context()),
			Reason:  payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func confirmationTransition(logg *logger.Logger, call func(*http.Request, confirmation.TransitionInput) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := call(r, confirmation.TransitionInput{
			OrderID: orderID,
			AgentID: middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type recordAttemptRequest struct {
	Outcome string  `json:"outcome" validate:"required,oneof=answered no_answer wrong_number"`
	Note    *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type attemptResponse struct {
	AttemptID uuid.UUID  `json:"attempt_id"`
	OrderID   uuid.UUID  `json:"order_id"`
	AgentID   *uuid.UUID `json:"agent_id,omitempty"`
	Outcome   string     `json:"outcome"`
	Note      *string    `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func newAttemptResponse(attempt *models.ConfirmationAttempt) attemptResponse {
	return attemptResponse{
		AttemptID: attempt.ID,
		OrderID:   attempt.OrderID,
		AgentID:   attempt.AgentID,
		Outcome:   attempt.Outcome.String(),
		Note:      attempt.Note,
		CreatedAt: attempt.CreatedAt,
	}
}
