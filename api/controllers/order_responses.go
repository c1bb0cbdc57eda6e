package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

type orderResponse struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerEmail *string   `json:"customer_email,omitempty"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`

	ConfirmationStatus enums.ConfirmationStatus `json:"confirmation_status"`
	DeliveryStatus     enums.DeliveryStatus     `json:"delivery_status"`
	CancelReason       *string                  `json:"cancel_reason,omitempty"`

	CarrierTrackingID *string    `json:"carrier_tracking_id,omitempty"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`

	Items      []orderItemResponse `json:"items"`
	Assignment *assignmentResponse `json:"assignment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type orderItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

type assignmentResponse struct {
	Wilaya   string               `json:"wilaya"`
	Method   enums.DeliveryMethod `json:"method"`
	DeskCode *string              `json:"desk_code,omitempty"`
	Address  *string              `json:"address,omitempty"`
	Fee      decimal.Decimal      `json:"fee"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		CustomerName:       order.CustomerName,
		CustomerPhone:      order.CustomerPhone,
		CustomerEmail:      order.CustomerEmail,
		Subtotal:           order.Subtotal,
		DeliveryFee:        order.DeliveryFee,
		Total:              order.Total,
		ConfirmationStatus: order.ConfirmationStatus,
		DeliveryStatus:     order.DeliveryStatus,
		CancelReason:       order.CancelReason,
		CarrierTrackingID:  order.CarrierTrackingID,
		ConfirmedAt:        order.ConfirmedAt,
		CreatedAt:          order.CreatedAt,
	}

	resp.Items = make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
		})
	}

	if order.Assignment != nil {
		resp.Assignment = &assignmentResponse{
			Wilaya:   order.Assignment.Wilaya,
			Method:   order.Assignment.Method,
			DeskCode: order.Assignment.DeskCode,
			Address:  order.Assignment.Address,
			Fee:      order.Assignment.DeliveryFee,
		}
	}

	return resp
}
