package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amelbouzid/karakou-backend/api/middleware"
	"github.com/amelbouzid/karakou-backend/api/responses"
	"github.com/amelbouzid/karakou-backend/api/validators"
	"github.com/amelbouzid/karakou-backend/internal/orders"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// OrderDetail returns the full order for any authenticated staff member.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderEdit replaces the customer snapshot and lines of an unconfirmed order.
func OrderEdit(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload editOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.EditOrder(r.Context(), orders.EditOrderInput{
			OrderID:       orderID,
			ActorID:       middleware.ActorIDFromContext(r.Context()),
			CustomerName:  payload.CustomerName,
			CustomerPhone: payload.CustomerPhone,
			CustomerEmail: payload.CustomerEmail,
			Items:         toItemInputs(payload.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// TariffList exposes the wilaya tariff reference data.
func TariffList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tariffs, err := svc.ListTariffs(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTariffListResponse(tariffs))
	}
}

type editOrderRequest struct {
	CustomerName  string        `json:"customer_name" validate:"required,min=2"`
	CustomerPhone string        `json:"customer_phone" validate:"required,min=8"`
	CustomerEmail *string       `json:"customer_email,omitempty" validate:"omitempty,email"`
	Items         []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type tariffResponse struct {
	Wilaya  string `json:"wilaya"`
	DeskFee string `json:"desk_fee"`
	HomeFee string `json:"home_fee"`
}

func newTariffListResponse(tariffs []models.DeliveryTariff) []tariffResponse {
	out := make([]tariffResponse, 0, len(tariffs))
	for _, tariff := range tariffs {
		out = append(out, tariffResponse{
			Wilaya:  tariff.Wilaya,
			DeskFee: tariff.DeskFee.StringFixed(2),
			HomeFee: tariff.HomeFee.StringFixed(2),
		})
	}
	return out
}

func orderIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
