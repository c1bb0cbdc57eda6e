package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

// GuardedUpdate describes a status-guarded write against the orders row.
// Rows are only touched when every guard still holds, so a zero affected
// count signals that a concurrent writer got there first.
type GuardedUpdate struct {
	OrderID              uuid.UUID
	ExpectedConfirmation *enums.ConfirmationStatus
	ExpectedDelivery     *enums.DeliveryStatus
	RequireNoShipment    bool
	Updates              map[string]any
}

// ItemInput is one order line as submitted at checkout or during an edit.
type ItemInput struct {
	ProductID uuid.UUID
	Name      string
	Size      string
	UnitPrice decimal.Decimal
	Qty       int
}

// CreateOrderInput captures a storefront checkout.
type CreateOrderInput struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail *string
	Wilaya        string
	Method        enums.DeliveryMethod
	DeskCode      *string
	Address       *string
	Items         []ItemInput
}

// EditOrderInput replaces the customer fields and lines of an unconfirmed order.
type EditOrderInput struct {
	OrderID       uuid.UUID
	ActorID       uuid.UUID
	CustomerName  string
	CustomerPhone string
	CustomerEmail *string
	Items         []ItemInput
}
