package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

// DeliveryAssignment resolves where a confirmed order ships: a stop-desk in a
// wilaya or a home address. Correctable by a coordinator until a shipment
// exists.
type DeliveryAssignment struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Wilaya      string               `gorm:"column:wilaya;not null"`
	Method      enums.DeliveryMethod `gorm:"column:method;type:text;not null"`
	DeskCode    *string              `gorm:"column:desk_code"`
	Address     *string              `gorm:"column:address"`
	DeliveryFee decimal.Decimal      `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	AssignedBy  *uuid.UUID           `gorm:"column:assigned_by;type:uuid"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
