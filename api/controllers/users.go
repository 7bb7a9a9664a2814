package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/api/responses"
	"github.com/angelmondragon/literature-backend/api/validators"
	"github.com/angelmondragon/literature-backend/internal/users"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

type createUserRequest struct {
	Email          string    `json:"email" validate:"required,email,max=255"`
	Password       string    `json:"password" validate:"required,min=8,max=128"`
	FirstName      string    `json:"first_name" validate:"required,max=100"`
	LastName       string    `json:"last_name" validate:"required,max=100"`
	Role           string    `json:"role" validate:"required"`
	OrganizationID uuid.UUID `json:"organization_id" validate:"required"`
}

type updateUserRequest struct {
	FirstName      *string    `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName       *string    `json:"last_name" validate:"omitempty,min=1,max=100"`
	Role           *string    `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id"`
	Password       *string    `json:"password" validate:"omitempty,min=8,max=128"`
	IsActive       *bool      `json:"is_active"`
}

func ListUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
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
		filter := users.ListFilter{Page: page}
		if filter.OrganizationID, err = validators.ParseQueryUUID(r, "organization_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Active, err = validators.ParseQueryBool(r, "active"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
			role, err := enums.ParseRole(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("role", err))
				return
			}
			filter.Role = &role
		}

		result, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CreateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req createUserRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseRole(strings.ToUpper(strings.TrimSpace(req.Role)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, invalidField("role", err))
			return
		}

		user, err := svc.Create(r.Context(), actor, users.CreateInput{
			Email:          req.Email,
			Password:       req.Password,
			FirstName:      validators.SanitizeString(req.FirstName, 100),
			LastName:       validators.SanitizeString(req.LastName, 100),
			Role:           role,
			OrganizationID: req.OrganizationID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

// CurrentUser returns the authenticated caller's profile.
func CurrentUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		user, err := svc.Me(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func GetUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func UpdateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateUserRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := users.UpdateInput{
			FirstName:      validators.SanitizeOptional(req.FirstName, 100),
			LastName:       validators.SanitizeOptional(req.LastName, 100),
			OrganizationID: req.OrganizationID,
			Password:       req.Password,
			IsActive:       req.IsActive,
		}
		if req.Role != nil {
			role, err := enums.ParseRole(strings.ToUpper(strings.TrimSpace(*req.Role)))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("role", err))
				return
			}
			input.Role = &role
		}

		user, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func DeactivateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "userId")
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
