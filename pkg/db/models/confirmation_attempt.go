package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

// ConfirmationAttempt logs one contact attempt. Append-only; the newest
// attempt anchors the unreachable-customer window.
type ConfirmationAttempt struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	AgentID   *uuid.UUID           `gorm:"column:agent_id;type:uuid"`
	Outcome   enums.ContactOutcome `gorm:"column:outcome;type:text;not null"`
	Note      *string              `gorm:"column:note"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}
