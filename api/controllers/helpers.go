package controllers

import (
	"net/http"

	"github.com/angelmondragon/literature-backend/api/middleware"
	"github.com/angelmondragon/literature-backend/api/responses"
	"github.com/angelmondragon/literature-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

const maxNotesLen = 2000

// requireActor pulls the caller seeded by middleware.Auth and answers 401 when
// the route was mounted without it.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return auth.Actor{}, false
	}
	return actor, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

func invalidField(field string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).WithDetails(map[string]any{"field": field})
}
