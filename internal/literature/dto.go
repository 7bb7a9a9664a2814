package literature

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
)

type LiteratureDTO struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateInput struct {
	Title       string
	Description *string
	Category    string
	Price       decimal.Decimal
}

type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
}

func FromModel(m *models.Literature) *LiteratureDTO {
	if m == nil {
		return nil
	}
	return &LiteratureDTO{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		Price:       m.Price,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
