package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/api/middleware"
	"github.com/angelmondragon/supplydesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// identity returns the authenticated caller or writes UNAUTHORIZED.
func identity(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
	}
	return id, ok
}

// pathUUID parses a chi URL parameter as a UUID or writes VALIDATION_ERROR.
func pathUUID(w http.ResponseWriter, r *http.Request, logg *logger.Logger, param, label string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, label+" is required"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label))
		return uuid.Nil, false
	}
	return id, true
}

func queryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
