package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// OutboxEvent is written in the same transaction as the change it announces.
type OutboxEvent struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType      enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	AggregateType  enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID    uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	OrganizationID *uuid.UUID                `gorm:"column:organization_id;type:uuid"`
	Payload        json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount   int                       `gorm:"column:attempt_count;not null"`
	LastError      *string                   `gorm:"column:last_error"`
	PublishedAt    *time.Time                `gorm:"column:published_at"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
