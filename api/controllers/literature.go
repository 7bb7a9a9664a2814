package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/literature-backend/api/responses"
	"github.com/angelmondragon/literature-backend/api/validators"
	"github.com/angelmondragon/literature-backend/internal/literature"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

type createLiteratureRequest struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Description *string         `json:"description" validate:"omitempty,max=4000"`
	Category    string          `json:"category" validate:"required,max=100"`
	Price       decimal.Decimal `json:"price"`
}

type updateLiteratureRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=4000"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=100"`
	Price       *decimal.Decimal `json:"price"`
}

// ListLiterature pages through the catalog, filtered by category, active flag
// and a title search term.
func ListLiterature(svc literature.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "literature")
			return
		}

		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := literature.ListFilter{
			Active: active,
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 255),
			Page:   page,
		}
		if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
			filter.Category = &category
		}

		result, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CreateLiterature(svc literature.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "literature")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req createLiteratureRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), actor, literature.CreateInput{
			Title:       validators.SanitizeString(req.Title, 255),
			Description: validators.SanitizeOptional(req.Description, 4000),
			Category:    validators.SanitizeString(req.Category, 100),
			Price:       req.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func GetLiterature(svc literature.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "literature")
			return
		}
		id, err := validators.URLParamUUID(r, "literatureId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func UpdateLiterature(svc literature.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "literature")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "literatureId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateLiteratureRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), actor, id, literature.UpdateInput{
			Title:       validators.SanitizeOptional(req.Title, 255),
			Description: validators.SanitizeOptional(req.Description, 4000),
			Category:    validators.SanitizeOptional(req.Category, 100),
			Price:       req.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeactivateLiterature(svc literature.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "literature")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "literatureId")
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
