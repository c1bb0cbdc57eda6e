package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryTariff is the per-wilaya fee table consulted at checkout and when a
// coordinator corrects an assignment. Seeded by migration.
type DeliveryTariff struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Wilaya    string          `gorm:"column:wilaya;not null;uniqueIndex"`
	DeskFee   decimal.Decimal `gorm:"column:desk_fee;type:numeric(12,2);not null"`
	HomeFee   decimal.Decimal `gorm:"column:home_fee;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
