package views

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
	"github.com/amelbouzid/karakou-backend/pkg/pagination"
)

// Repository serves the read-only role-scoped queues. It never writes.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a views repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type confirmationQueueRecord struct {
	OrderID              uuid.UUID
	OrderNumber          string
	CustomerName         string
	CustomerPhone        string
	Total                decimal.Decimal
	ConfirmationStatus   enums.ConfirmationStatus
	AttemptCount         int
	LastContactAttemptAt *time.Time
	CreatedAt            time.Time
	Anchor               time.Time
}

// ConfirmationQueue lists orders awaiting a call-center decision, oldest
// contact anchor first so the longest-waiting customers surface on top.
func (r *Repository) ConfirmationQueue(ctx context.Context, params pagination.Params) (*ConfirmationQueueList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table("orders o").
		Select(`o.id AS order_id,
o.order_number,
o.customer_name,
o.customer_phone,
o.total,
o.confirmation_status,
(SELECT COUNT(*) FROM confirmation_attempts ca WHERE ca.order_id = o.id) AS attempt_count,
o.last_contact_attempt_at,
o.created_at,
COALESCE(o.last_contact_attempt_at, o.created_at) AS anchor`).
		Where("o.confirmation_status IN ?", []enums.ConfirmationStatus{
			enums.ConfirmationStatusPending,
			enums.ConfirmationStatusDelayed,
			enums.ConfirmationStatusDoubleOrder,
		})

	if cursor != nil {
		query = query.Where(
			"(COALESCE(o.last_contact_attempt_at, o.created_at) > ?) OR (COALESCE(o.last_contact_attempt_at, o.created_at) = ? AND o.id > ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var records []confirmationQueueRecord
	err = query.
		Order("anchor ASC").
		Order("o.id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Scan(&records).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.Anchor, ID: last.OrderID})
	}

	entries := make([]ConfirmationQueueEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, ConfirmationQueueEntry{
			OrderID:              record.OrderID,
			OrderNumber:          record.OrderNumber,
			CustomerName:         record.CustomerName,
			CustomerPhone:        record.CustomerPhone,
			Total:                record.Total,
			ConfirmationStatus:   record.ConfirmationStatus,
			AttemptCount:         record.AttemptCount,
			LastContactAttemptAt: record.LastContactAttemptAt,
			CreatedAt:            record.CreatedAt,
		})
	}
	return &ConfirmationQueueList{Entries: entries, NextCursor: nextCursor}, nil
}

type deliveryQueueRecord struct {
	OrderID           uuid.UUID
	OrderNumber       string
	CustomerName      string
	CustomerPhone     string
	Total             decimal.Decimal
	DeliveryStatus    enums.DeliveryStatus
	Wilaya            *string
	Method            *string
	CarrierTrackingID *string
	CreatedAt         time.Time
}

// DeliveryQueue lists orders in one logistics status, oldest first.
func (r *Repository) DeliveryQueue(ctx context.Context, status enums.DeliveryStatus, params pagination.Params) (*DeliveryQueueList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table("orders o").
		Select(`o.id AS order_id,
o.order_number,
o.customer_name,
o.customer_phone,
o.total,
o.delivery_status,
da.wilaya,
da.method,
o.carrier_tracking_id,
o.created_at`).
		Joins("LEFT JOIN delivery_assignments da ON da.order_id = o.id").
		Where("o.delivery_status = ?", status)

	if cursor != nil {
		query = query.Where(
			"(o.created_at > ?) OR (o.created_at = ? AND o.id > ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var records []deliveryQueueRecord
	err = query.
		Order("o.created_at ASC").
		Order("o.id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Scan(&records).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.OrderID})
	}

	entries := make([]DeliveryQueueEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, DeliveryQueueEntry{
			OrderID:           record.OrderID,
			OrderNumber:       record.OrderNumber,
			CustomerName:      record.CustomerName,
			CustomerPhone:     record.CustomerPhone,
			Total:             record.Total,
			DeliveryStatus:    record.DeliveryStatus,
			Wilaya:            record.Wilaya,
			Method:            record.Method,
			CarrierTrackingID: record.CarrierTrackingID,
			CreatedAt:         record.CreatedAt,
		})
	}
	return &DeliveryQueueList{Entries: entries, NextCursor: nextCursor}, nil
}

// WilayaStats aggregates pipeline counts per destination wilaya.
func (r *Repository) WilayaStats(ctx context.Context) ([]WilayaStat, error) {
	var stats []WilayaStat
	err := r.db.WithContext(ctx).
		Table("delivery_assignments da").
		Select(`da.wilaya,
SUM(CASE WHEN o.delivery_status = 'ready' THEN 1 ELSE 0 END) AS ready,
SUM(CASE WHEN o.delivery_status = 'in_transit' THEN 1 ELSE 0 END) AS in_transit,
SUM(CASE WHEN o.delivery_status = 'delivered' THEN 1 ELSE 0 END) AS delivered,
SUM(CASE WHEN o.delivery_status = 'failed' THEN 1 ELSE 0 END) AS failed`).
		Joins("JOIN orders o ON o.id = da.order_id").
		Group("da.wilaya").
		Order("da.wilaya ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
