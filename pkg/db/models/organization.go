package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// Organization is a node in the service-body hierarchy.
type Organization struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string                 `gorm:"column:name;not null"`
	Type       enums.OrganizationType `gorm:"column:type;type:organization_type;not null"`
	ParentID   *uuid.UUID             `gorm:"column:parent_id;type:uuid"`
	SupplierID *uuid.UUID             `gorm:"column:supplier_id;type:uuid"`
	IsActive   bool                   `gorm:"column:is_active;not null"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
