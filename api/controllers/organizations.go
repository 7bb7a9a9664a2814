package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/api/responses"
	"github.com/angelmondragon/literature-backend/api/validators"
	"github.com/angelmondragon/literature-backend/internal/organizations"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

type createOrganizationRequest struct {
	Name       string     `json:"name" validate:"required,max=255"`
	Type       string     `json:"type" validate:"required"`
	ParentID   *uuid.UUID `json:"parent_id"`
	SupplierID *uuid.UUID `json:"supplier_id"`
}

type updateOrganizationRequest struct {
	Name          *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Type          *string    `json:"type"`
	ParentID      *uuid.UUID `json:"parent_id"`
	ClearParent   bool       `json:"clear_parent"`
	SupplierID    *uuid.UUID `json:"supplier_id"`
	ClearSupplier bool       `json:"clear_supplier"`
}

func ListOrganizations(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "organizations")
			return
		}

		var filter organizations.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			orgType, err := enums.ParseOrganizationType(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("type", err))
				return
			}
			filter.Type = &orgType
		}
		parentID, err := validators.ParseQueryUUID(r, "parent_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.ParentID = parentID
		active, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Active = active

		orgs, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orgs)
	}
}

func CreateOrganization(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "organizations")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req createOrganizationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orgType, err := enums.ParseOrganizationType(strings.ToUpper(strings.TrimSpace(req.Type)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, invalidField("type", err))
			return
		}

		org, err := svc.Create(r.Context(), actor, organizations.CreateInput{
			Name:       validators.SanitizeString(req.Name, 255),
			Type:       orgType,
			ParentID:   req.ParentID,
			SupplierID: req.SupplierID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, org)
	}
}

func GetOrganization(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "organizations")
			return
		}
		id, err := validators.URLParamUUID(r, "organizationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		org, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

func UpdateOrganization(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "organizations")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "organizationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrganizationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := organizations.UpdateInput{
			Name:          validators.SanitizeOptional(req.Name, 255),
			ParentID:      req.ParentID,
			ClearParent:   req.ClearParent,
			SupplierID:    req.SupplierID,
			ClearSupplier: req.ClearSupplier,
		}
		if req.Type != nil {
			orgType, err := enums.ParseOrganizationType(strings.ToUpper(strings.TrimSpace(*req.Type)))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("type", err))
				return
			}
			input.Type = &orgType
		}

		org, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

func DeactivateOrganization(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "organizations")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "organizationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ListOrganizationSuppliers returns the organizations the given one may order from.
func ListOrganizationSuppliers(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "organizations")
			return
		}
		id, err := validators.URLParamUUID(r, "organizationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		suppliers, err := svc.Suppliers(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suppliers)
	}
}
