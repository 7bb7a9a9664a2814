package transactions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
)

type TransactionDTO struct {
	ID             uuid.UUID                  `json:"id"`
	Type           enums.TransactionType      `json:"type"`
	Direction      enums.TransactionDirection `json:"direction"`
	OrganizationID uuid.UUID                  `json:"organization_id"`
	LiteratureID   uuid.UUID                  `json:"literature_id"`
	Quantity       int                        `json:"quantity"`
	OrderID        *uuid.UUID                 `json:"order_id,omitempty"`
	ReversesID     *uuid.UUID                 `json:"reverses_id,omitempty"`
	TransferID     *uuid.UUID                 `json:"transfer_id,omitempty"`
	CreatedBy      *uuid.UUID                 `json:"created_by,omitempty"`
	Notes          *string                    `json:"notes,omitempty"`
	OccurredAt     time.Time                  `json:"occurred_at"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// ManualInput describes a stock movement entered by hand.
type ManualInput struct {
	Type           enums.TransactionType
	Direction      enums.TransactionDirection
	OrganizationID uuid.UUID
	LiteratureID   uuid.UUID
	Quantity       int
	Notes          *string
	OccurredAt     *time.Time
}

func FromModel(m *models.Transaction) *TransactionDTO {
	if m == nil {
		return nil
	}
	return &TransactionDTO{
		ID:             m.ID,
		Type:           m.Type,
		Direction:      m.Direction,
		OrganizationID: m.OrganizationID,
		LiteratureID:   m.LiteratureID,
		Quantity:       m.Quantity,
		OrderID:        m.OrderID,
		ReversesID:     m.ReversesID,
		TransferID:     m.TransferID,
		CreatedBy:      m.CreatedBy,
		Notes:          m.Notes,
		OccurredAt:     m.OccurredAt,
		CreatedAt:      m.CreatedAt,
	}
}
