package controllers

import (
	"net/http"

	"github.com/angelmondragon/supplydesk-backend/api/middleware"
	"github.com/angelmondragon/supplydesk-backend/api/responses"
	"github.com/angelmondragon/supplydesk-backend/api/validators"
	"github.com/angelmondragon/supplydesk-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &creds); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Login(r.Context(), creds)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// AuthRefresh takes the old access token from Authorization, expired or not,
// and the refresh token from the body.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireBearer(w, r, logg)
		if !ok {
			return
		}
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pair, err := svc.Refresh(r.Context(), access, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pair)
	}
}

// AuthLogout revokes the session behind the bearer token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireBearer(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Logout(r.Context(), access); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func requireBearer(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	token := middleware.BearerToken(r)
	if token == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return "", false
	}
	return token, true
}
