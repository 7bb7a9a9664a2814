package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
)

type OrderDTO struct {
	ID                 uuid.UUID         `json:"id"`
	OrderNumber        string            `json:"order_number"`
	FromOrganizationID uuid.UUID         `json:"from_organization_id"`
	ToOrganizationID   uuid.UUID         `json:"to_organization_id"`
	Status             enums.OrderStatus `json:"status"`
	Locked             bool              `json:"locked"`
	LockedBy           *uuid.UUID        `json:"locked_by,omitempty"`
	LockedAt           *time.Time        `json:"locked_at,omitempty"`
	CreatedBy          uuid.UUID         `json:"created_by"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	Notes              *string           `json:"notes,omitempty"`
	Items              []OrderItemDTO    `json:"items"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type OrderItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	LiteratureID uuid.UUID       `json:"literature_id"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// CreateInput opens a DRAFT order from the actor's organization (or
// FromOrganizationID for admins) to a supplier.
type CreateInput struct {
	FromOrganizationID *uuid.UUID
	ToOrganizationID   uuid.UUID
	Notes              *string
	Items              []ItemInput
}

type ItemInput struct {
	LiteratureID uuid.UUID
	Quantity     int
}

func FromModel(m *models.Order) *OrderDTO {
	if m == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                 m.ID,
		OrderNumber:        m.OrderNumber,
		FromOrganizationID: m.FromOrganizationID,
		ToOrganizationID:   m.ToOrganizationID,
		Status:             m.Status,
		Locked:             m.Locked,
		LockedBy:           m.LockedBy,
		LockedAt:           m.LockedAt,
		CreatedBy:          m.CreatedBy,
		TotalAmount:        m.TotalAmount,
		Notes:              m.Notes,
		Items:              make([]OrderItemDTO, 0, len(m.Items)),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	for _, item := range m.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:           item.ID,
			LiteratureID: item.LiteratureID,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			LineTotal:    item.LineTotal(),
		})
	}
	return dto
}

// orderTotal sums the line totals of items.
func orderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}
