package views

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

// ConfirmationQueueEntry is one row of the call-center work queue.
type ConfirmationQueueEntry struct {
	OrderID              uuid.UUID                `json:"order_id"`
	OrderNumber          string                   `json:"order_number"`
	CustomerName         string                   `json:"customer_name"`
	CustomerPhone        string                   `json:"customer_phone"`
	Total                decimal.Decimal          `json:"total"`
	ConfirmationStatus   enums.ConfirmationStatus `json:"confirmation_status"`
	AttemptCount         int                      `json:"attempt_count"`
	LastContactAttemptAt *time.Time               `json:"last_contact_attempt_at,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
}

// ConfirmationQueueList wraps the paginated queue plus the next page cursor.
type ConfirmationQueueList struct {
	Entries    []ConfirmationQueueEntry `json:"entries"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}

// DeliveryQueueEntry is one row of the coordinator work queue.
type DeliveryQueueEntry struct {
	OrderID           uuid.UUID            `json:"order_id"`
	OrderNumber       string               `json:"order_number"`
	CustomerName      string               `json:"customer_name"`
	CustomerPhone     string               `json:"customer_phone"`
	Total             decimal.Decimal      `json:"total"`
	DeliveryStatus    enums.DeliveryStatus `json:"delivery_status"`
	Wilaya            *string              `json:"wilaya,omitempty"`
	Method            *string              `json:"method,omitempty"`
	CarrierTrackingID *string              `json:"carrier_tracking_id,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

// DeliveryQueueList wraps the paginated queue plus the next page cursor.
type DeliveryQueueList struct {
	Entries    []DeliveryQueueEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// WilayaStat aggregates shipped parcels per destination.
type WilayaStat struct {
	Wilaya    string `json:"wilaya"`
	Ready     int    `json:"ready"`
	InTransit int    `json:"in_transit"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}
