package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// Transaction is an append-only stock movement entry.
type Transaction struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type           enums.TransactionType      `gorm:"column:type;type:transaction_type;not null"`
	Direction      enums.TransactionDirection `gorm:"column:direction;type:transaction_direction;not null"`
	OrganizationID uuid.UUID                  `gorm:"column:organization_id;type:uuid;not null"`
	LiteratureID   uuid.UUID                  `gorm:"column:literature_id;type:uuid;not null"`
	Quantity       int                        `gorm:"column:quantity;not null"`
	OrderID        *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	ReversesID     *uuid.UUID                 `gorm:"column:reverses_id;type:uuid"`
	TransferID     *uuid.UUID                 `gorm:"column:transfer_id;type:uuid"`
	CreatedBy      *uuid.UUID                 `gorm:"column:created_by;type:uuid"`
	Notes          *string                    `gorm:"column:notes"`
	OccurredAt     time.Time                  `gorm:"column:occurred_at;not null"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

// SignedQuantity is positive for IN entries and negative for OUT entries.
func (t Transaction) SignedQuantity() int {
	return t.Direction.Sign() * t.Quantity
}
