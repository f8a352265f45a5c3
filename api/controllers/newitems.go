package controllers

import (
	"net/http"

	"github.com/angelmondragon/supplydesk-backend/api/responses"
	"github.com/angelmondragon/supplydesk-backend/api/validators"
	"github.com/angelmondragon/supplydesk-backend/internal/newitems"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

func SubmitNewItemRequest(svc newitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		var body newitems.SubmitInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Submit(r.Context(), caller.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListNewItemRequests shows employees their own suggestions and admins all.
func ListNewItemRequests(svc newitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		params := newitems.ListParams{Cursor: queryString(r, "cursor")}
		if raw := queryString(r, "status"); raw != "" {
			status, err := enums.ParseNewItemRequestStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = status
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		result, err := svc.List(r.Context(), newitems.Viewer{UserID: caller.UserID, Role: caller.Role}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DecideNewItemRequest approves or rejects a pending suggestion.
func DecideNewItemRequest(svc newitems.Service, approve bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, logg, "newItemRequestId", "new item request id")
		if !ok {
			return
		}
		var body newitems.DecisionInput
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decide := svc.Reject
		if approve {
			decide = svc.Approve
		}
		result, err := decide(r.Context(), caller.UserID, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
