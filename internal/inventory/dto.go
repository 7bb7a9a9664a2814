package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
)

type RecordDTO struct {
	ID               uuid.UUID `json:"id"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	LiteratureID     uuid.UUID `json:"literature_id"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
	Available        int       `json:"available"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StockInput addresses one record with a quantity.
type StockInput struct {
	OrganizationID uuid.UUID
	LiteratureID   uuid.UUID
	Quantity       int
}

// AdjustInput is a signed on-hand correction entered through the API.
type AdjustInput struct {
	OrganizationID uuid.UUID
	LiteratureID   uuid.UUID
	Delta          int
	Notes          *string
}

type TransferInput struct {
	FromOrganizationID uuid.UUID
	ToOrganizationID   uuid.UUID
	LiteratureID       uuid.UUID
	Quantity           int
	Notes              *string
}

// TransferResult carries both sides after a transfer and the ledger entries.
type TransferResult struct {
	From       RecordDTO `json:"from"`
	To         RecordDTO `json:"to"`
	OutgoingID uuid.UUID `json:"outgoing_transaction_id"`
	IncomingID uuid.UUID `json:"incoming_transaction_id"`
	TransferID uuid.UUID `json:"transfer_id"`
}

func FromModel(m *models.InventoryRecord) *RecordDTO {
	if m == nil {
		return nil
	}
	return &RecordDTO{
		ID:               m.ID,
		OrganizationID:   m.OrganizationID,
		LiteratureID:     m.LiteratureID,
		Quantity:         m.Quantity,
		ReservedQuantity: m.ReservedQuantity,
		Available:        m.Available(),
		UpdatedAt:        m.UpdatedAt,
	}
}
