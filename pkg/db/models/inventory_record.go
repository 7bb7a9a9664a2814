package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord tracks on-hand and reserved counts per organization and title.
type InventoryRecord struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID   uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	LiteratureID     uuid.UUID `gorm:"column:literature_id;type:uuid;not null"`
	Quantity         int       `gorm:"column:quantity;not null"`
	ReservedQuantity int       `gorm:"column:reserved_quantity;not null"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Available is the quantity not held by a reservation.
func (r InventoryRecord) Available() int {
	return r.Quantity - r.ReservedQuantity
}
