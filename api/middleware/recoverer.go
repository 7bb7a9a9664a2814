package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/literature-backend/api/responses"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL_ERROR envelope and logs the
// stack under the request id. http.ErrAbortHandler is re-raised for net/http.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					fields := map[string]any{
						"method": r.Method,
						"path":   r.URL.Path,
					}
					if userID := UserIDFromContext(ctx); userID != "" {
						fields["user_id"] = userID
					}
					logg.Error(logg.WithFields(ctx, fields), "http.panic", err)
				}

				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected failure"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
