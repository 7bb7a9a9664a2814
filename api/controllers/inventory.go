package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/api/responses"
	"github.com/angelmondragon/literature-backend/api/validators"
	"github.com/angelmondragon/literature-backend/internal/inventory"
	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

type stockRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" validate:"required"`
	LiteratureID   uuid.UUID `json:"literature_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"gt=0"`
}

type adjustRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" validate:"required"`
	LiteratureID   uuid.UUID `json:"literature_id" validate:"required"`
	Delta          int       `json:"delta" validate:"ne=0"`
	Notes          *string   `json:"notes" validate:"omitempty,max=2000"`
}

type transferRequest struct {
	FromOrganizationID uuid.UUID `json:"from_organization_id" validate:"required"`
	ToOrganizationID   uuid.UUID `json:"to_organization_id" validate:"required,nefield=FromOrganizationID"`
	LiteratureID       uuid.UUID `json:"literature_id" validate:"required"`
	Quantity           int       `json:"quantity" validate:"gt=0"`
	Notes              *string   `json:"notes" validate:"omitempty,max=2000"`
}

// ListInventory pages inventory records. low_stock=N keeps records whose
// available quantity is at most N.
func ListInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := inventory.ListFilter{Page: page}
		if filter.OrganizationID, err = validators.ParseQueryUUID(r, "organization_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.LiteratureID, err = validators.ParseQueryUUID(r, "literature_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if r.URL.Query().Has("low_stock") {
			threshold, err := validators.ParseQueryInt(r, "low_stock", 0, 0, 1_000_000)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filter.LowStock = &threshold
		}

		result, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetInventoryRecord(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orgID, err := validators.URLParamUUID(r, "organizationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		litID, err := validators.URLParamUUID(r, "literatureId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), actor, orgID, litID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type stockOp func(svc inventory.Service, ctx context.Context, actor auth.Actor, input inventory.StockInput) (*inventory.RecordDTO, error)

func ReserveInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return stockHandler(svc, logg, inventory.Service.ReserveStock)
}

// ReleaseInventory clamps the release to what is currently reserved.
func ReleaseInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return stockHandler(svc, logg, inventory.Service.ReleaseStock)
}

func stockHandler(svc inventory.Service, logg *logger.Logger, op stockOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req stockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := op(svc, r.Context(), actor, inventory.StockInput{
			OrganizationID: req.OrganizationID,
			LiteratureID:   req.LiteratureID,
			Quantity:       req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func AdjustInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AdjustStock(r.Context(), actor, inventory.AdjustInput{
			OrganizationID: req.OrganizationID,
			LiteratureID:   req.LiteratureID,
			Delta:          req.Delta,
			Notes:          validators.SanitizeOptional(req.Notes, maxNotesLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// TransferInventory moves stock between two organizations, recording a paired
// OUT/IN transaction.
func TransferInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transfer(r.Context(), actor, inventory.TransferInput{
			FromOrganizationID: req.FromOrganizationID,
			ToOrganizationID:   req.ToOrganizationID,
			LiteratureID:       req.LiteratureID,
			Quantity:           req.Quantity,
			Notes:              validators.SanitizeOptional(req.Notes, maxNotesLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
