package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/api/responses"
	"github.com/angelmondragon/literature-backend/api/validators"
	"github.com/angelmondragon/literature-backend/internal/reports"
	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

// reportOrganization defaults to the caller's own organization.
func reportOrganization(r *http.Request, actor auth.Actor) (uuid.UUID, error) {
	orgID, err := validators.ParseQueryUUID(r, "organization_id")
	if err != nil {
		return uuid.Nil, err
	}
	if orgID == nil {
		return actor.OrganizationID, nil
	}
	return *orgID, nil
}

func InventoryReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "reports")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orgID, err := reportOrganization(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.InventorySnapshot(r.Context(), actor, orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// MovementReport sums transaction quantities per literature and type. The
// window defaults to the last 30 days.
func MovementReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "reports")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orgID, err := reportOrganization(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var fromAt, toAt time.Time
		if from != nil {
			fromAt = *from
		}
		if to != nil {
			toAt = *to
		}
		summary, err := svc.MovementSummary(r.Context(), actor, orgID, fromAt, toAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
