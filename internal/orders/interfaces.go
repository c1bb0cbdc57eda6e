package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amelbouzid/karakou-backend/pkg/db/models"
)

// Repository defines persistence operations for the fulfillment tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	CreateAttempt(ctx context.Context, attempt *models.ConfirmationAttempt) error
	CreateCarrierEvent(ctx context.Context, event *models.CarrierEvent) error
	CreateAssignment(ctx context.Context, assignment *models.DeliveryAssignment) (*models.DeliveryAssignment, error)
	UpdateAssignment(ctx context.Context, assignmentID uuid.UUID, updates map[string]any) error

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindOrderByTrackingID(ctx context.Context, trackingID string) (*models.Order, error)
	FindAssignment(ctx context.Context, orderID uuid.UUID) (*models.DeliveryAssignment, error)
	FindCarrierEvents(ctx context.Context, orderID uuid.UUID) ([]models.CarrierEvent, error)
	FindTariff(ctx context.Context, wilaya string) (*models.DeliveryTariff, error)
	ListTariffs(ctx context.Context) ([]models.DeliveryTariff, error)
	CountOrders(ctx context.Context) (int64, error)

	FindUnreachableOrdersBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	FindOrdersInTransit(ctx context.Context) ([]models.Order, error)

	UpdateOrderGuarded(ctx context.Context, in GuardedUpdate) (int64, error)
}
