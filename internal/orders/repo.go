package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fulfillment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.CreateOrderItems(ctx, items)
}

func (r *repository) CreateAttempt(ctx context.Context, attempt *models.ConfirmationAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *repository) CreateCarrierEvent(ctx context.Context, event *models.CarrierEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.DeliveryAssignment) (*models.DeliveryAssignment, error) {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *repository) UpdateAssignment(ctx context.Context, assignmentID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryAssignment{}).
		Where("id = ?", assignmentID).
		Updates(updates).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Assignment").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Assignment").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByTrackingID(ctx context.Context, trackingID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("carrier_tracking_id = ?", trackingID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindAssignment(ctx context.Context, orderID uuid.UUID) (*models.DeliveryAssignment, error) {
	var assignment models.DeliveryAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) FindCarrierEvents(ctx context.Context, orderID uuid.UUID) ([]models.CarrierEvent, error) {
	var events []models.CarrierEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("carrier_timestamp ASC, carrier_sequence ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) FindTariff(ctx context.Context, wilaya string) (*models.DeliveryTariff, error) {
	var tariff models.DeliveryTariff
	err := r.db.WithContext(ctx).
		Where("wilaya = ?", wilaya).
		First(&tariff).Error
	if err != nil {
		return nil, err
	}
	return &tariff, nil
}

func (r *repository) ListTariffs(ctx context.Context) ([]models.DeliveryTariff, error) {
	var tariffs []models.DeliveryTariff
	err := r.db.WithContext(ctx).
		Order("wilaya ASC").
		Find(&tariffs).Error
	if err != nil {
		return nil, err
	}
	return tariffs, nil
}

func (r *repository) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Count(&count).Error
	return count, err
}

func (r *repository) FindUnreachableOrdersBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("confirmation_status IN ?", []enums.ConfirmationStatus{
			enums.ConfirmationStatusPending,
			enums.ConfirmationStatusDelayed,
		}).
		Where("COALESCE(last_contact_attempt_at, created_at) <= ?", cutoff).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindOrdersInTransit(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("delivery_status = ?", enums.DeliveryStatusInTransit).
		Where("carrier_tracking_id IS NOT NULL").
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateOrderGuarded(ctx context.Context, in GuardedUpdate) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", in.OrderID)
	if in.ExpectedConfirmation != nil {
		query = query.Where("confirmation_status = ?", *in.ExpectedConfirmation)
	}
	if in.ExpectedDelivery != nil {
		query = query.Where("delivery_status = ?", *in.ExpectedDelivery)
	}
	if in.RequireNoShipment {
		query = query.Where("carrier_tracking_id IS NULL")
	}

	res := query.Updates(in.Updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
