package models

import (
	"time"

	"github.com/google/uuid"
)

// CarrierEvent is one tracking event pulled from the carrier. Append-only;
// the newest event by carrier timestamp (sequence breaks ties) drives the
// order's delivery status.
type CarrierEvent struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	TrackingID       string    `gorm:"column:tracking_id;not null"`
	CarrierStatus    string    `gorm:"column:carrier_status;not null"`
	CarrierSequence  int64     `gorm:"column:carrier_sequence;not null"`
	CarrierTimestamp time.Time `gorm:"column:carrier_timestamp;not null"`
	Reason           *string   `gorm:"column:reason"`
	Location         *string   `gorm:"column:location"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
