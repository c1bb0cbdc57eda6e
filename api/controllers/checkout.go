package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/api/responses"
	"github.com/amelbouzid/karakou-backend/api/validators"
	"github.com/amelbouzid/karakou-backend/internal/orders"
	"github.com/amelbouzid/karakou-backend/internal/tracking"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// Checkout accepts a storefront order submission.
func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// OrderLookup lets a customer read their order by number plus phone. An
// in-transit order gets a carrier reconcile first so the read is fresh.
func OrderLookup(svc orders.Service, trackingSvc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderNumber := strings.TrimSpace(r.URL.Query().Get("order_number"))
		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if orderNumber == "" || phone == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order_number and phone are required"))
			return
		}

		order, err := svc.LookupOrder(r.Context(), orderNumber, phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if trackingSvc != nil && order.DeliveryStatus == enums.DeliveryStatusInTransit {
			if err := trackingSvc.ReconcileOrder(r.Context(), order.ID); err != nil {
				// Stale tracking is tolerable for a customer read.
				if logg != nil {
					logg.Warn(logg.WithOrderID(r.Context(), order.ID.String()), "lookup reconcile failed")
				}
			} else if refreshed, err := svc.GetOrder(r.Context(), order.ID); err == nil {
				order = refreshed
			}
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type createOrderRequest struct {
	CustomerName  string        `json:"customer_name" validate:"required,min=2"`
	CustomerPhone string        `json:"customer_phone" validate:"required,min=8"`
	CustomerEmail *string       `json:"customer_email,omitempty" validate:"omitempty,email"`
	Wilaya        string        `json:"wilaya" validate:"required"`
	Method        string        `json:"method" validate:"required,oneof=home desk"`
	DeskCode      *string       `json:"desk_code,omitempty"`
	Address       *string       `json:"address,omitempty"`
	Items         []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type itemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Size      string          `json:"size" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
	Qty       int             `json:"qty" validate:"required,min=1"`
}

func (req createOrderRequest) toInput() orders.CreateOrderInput {
	input := orders.CreateOrderInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Wilaya:        req.Wilaya,
		Method:        enums.DeliveryMethod(req.Method),
		DeskCode:      req.DeskCode,
		Address:       req.Address,
	}
	input.Items = toItemInputs(req.Items)
	return input
}

func toItemInputs(items []itemRequest) []orders.ItemInput {
	inputs := make([]orders.ItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, orders.ItemInput{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
		})
	}
	return inputs
}
