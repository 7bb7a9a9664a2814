package organizations

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// OrganizationDTO is the API representation of an organization.
type OrganizationDTO struct {
	ID         uuid.UUID              `json:"id"`
	Name       string                 `json:"name"`
	Type       enums.OrganizationType `json:"type"`
	ParentID   *uuid.UUID             `json:"parent_id,omitempty"`
	SupplierID *uuid.UUID             `json:"supplier_id,omitempty"`
	IsActive   bool                   `json:"is_active"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// CreateInput holds the fields accepted when creating an organization.
type CreateInput struct {
	Name       string
	Type       enums.OrganizationType
	ParentID   *uuid.UUID
	SupplierID *uuid.UUID
}

// UpdateInput carries optional changes. Clear flags null the matching link.
type UpdateInput struct {
	Name          *string
	Type          *enums.OrganizationType
	ParentID      *uuid.UUID
	ClearParent   bool
	SupplierID    *uuid.UUID
	ClearSupplier bool
}

func FromModel(m *models.Organization) *OrganizationDTO {
	if m == nil {
		return nil
	}
	return &OrganizationDTO{
		ID:         m.ID,
		Name:       m.Name,
		Type:       m.Type,
		ParentID:   m.ParentID,
		SupplierID: m.SupplierID,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func fromModels(rows []models.Organization) []OrganizationDTO {
	out := make([]OrganizationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
