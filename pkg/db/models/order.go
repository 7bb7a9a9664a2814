package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// Order is a literature request from one organization to its supplier.
type Order struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string            `gorm:"column:order_number;not null;uniqueIndex"`
	FromOrganizationID uuid.UUID         `gorm:"column:from_organization_id;type:uuid;not null"`
	ToOrganizationID   uuid.UUID         `gorm:"column:to_organization_id;type:uuid;not null"`
	Status             enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Locked             bool              `gorm:"column:locked;not null"`
	LockedBy           *uuid.UUID        `gorm:"column:locked_by;type:uuid"`
	LockedAt           *time.Time        `gorm:"column:locked_at"`
	CreatedBy          uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	TotalAmount        decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Notes              *string           `gorm:"column:notes"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	Items              []OrderItem       `gorm:"foreignKey:OrderID"`
}

// IsLockedByOther reports whether someone other than userID holds the lock.
func (o Order) IsLockedByOther(userID uuid.UUID) bool {
	if !o.Locked {
		return false
	}
	return o.LockedBy == nil || *o.LockedBy != userID
}
