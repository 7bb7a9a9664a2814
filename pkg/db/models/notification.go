package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to organizations.
type Notification struct {
	ID             uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID              `gorm:"column:organization_id;type:uuid;not null"`
	Type           enums.NotificationType `gorm:"type:notification_type;not null"`
	Title          string                 `gorm:"type:text;not null"`
	Message        string                 `gorm:"type:text;not null"`
	OrderID        *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	LiteratureID   *uuid.UUID             `gorm:"column:literature_id;type:uuid"`
	ReadAt         *time.Time             `gorm:"column:read_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
