package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

// Order is the fulfillment aggregate root. It carries two independent status
// tracks: the call-center confirmation track and the logistics delivery track.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string    `gorm:"column:order_number;not null;uniqueIndex"`

	CustomerName  string  `gorm:"column:customer_name;not null"`
	CustomerPhone string  `gorm:"column:customer_phone;not null"`
	CustomerEmail *string `gorm:"column:customer_email"`

	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee decimal.Decimal `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`

	ConfirmationStatus enums.ConfirmationStatus `gorm:"column:confirmation_status;type:text;not null;default:'pending'"`
	DeliveryStatus     enums.DeliveryStatus     `gorm:"column:delivery_status;type:text;not null;default:'not_ready'"`
	CancelReason       *string                  `gorm:"column:cancel_reason"`

	CarrierTrackingID   *string    `gorm:"column:carrier_tracking_id;uniqueIndex"`
	LastCarrierEventAt  *time.Time `gorm:"column:last_carrier_event_at"`
	LastCarrierEventSeq *int64     `gorm:"column:last_carrier_event_seq"`

	ConfirmedAt          *time.Time `gorm:"column:confirmed_at"`
	LastContactAttemptAt *time.Time `gorm:"column:last_contact_attempt_at"`

	Items      []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Attempts   []ConfirmationAttempt `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Assignment *DeliveryAssignment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Events     []CarrierEvent        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HasShipment reports whether the order has been handed to the carrier.
func (o *Order) HasShipment() bool {
	return o != nil && o.CarrierTrackingID != nil && *o.CarrierTrackingID != ""
}

// ContactAnchor is the instant the unreachable window is measured from.
func (o *Order) ContactAnchor() time.Time {
	if o.LastContactAttemptAt != nil {
		return *o.LastContactAttemptAt
	}
	return o.CreatedAt
}
