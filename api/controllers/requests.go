package controllers

import (
	"net/http"

	"github.com/angelmondragon/supplydesk-backend/api/middleware"
	"github.com/angelmondragon/supplydesk-backend/api/responses"
	"github.com/angelmondragon/supplydesk-backend/api/validators"
	"github.com/angelmondragon/supplydesk-backend/internal/requests"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

func actorOf(id middleware.Identity) requests.Actor {
	return requests.Actor{
		UserID:     id.UserID,
		Role:       id.Role,
		Name:       id.Name,
		Position:   id.Position,
		Department: id.Department,
	}
}

func SubmitRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		var body requests.SubmitInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Submit(r.Context(), actorOf(caller), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func SubmitBulkRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		var body requests.SubmitBulkInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.SubmitBulk(r.Context(), actorOf(caller), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListRequests serves both the employee and admin listings; the service
// narrows non-admins to their own requests.
func ListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		params, err := parseRequestListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), actorOf(caller), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseRequestListParams(r *http.Request) (requests.ListParams, error) {
	var params requests.ListParams
	if raw := queryString(r, "status"); raw != "" {
		status, err := enums.ParseRequestStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = status
	}
	params.Department = queryString(r, "department")

	var err error
	if params.EmployeeID, err = validators.ParseQueryUUID(r, "employeeId"); err != nil {
		return params, err
	}
	if params.ItemID, err = validators.ParseQueryUUID(r, "itemId"); err != nil {
		return params, err
	}
	if params.GroupID, err = validators.ParseQueryUUID(r, "groupId"); err != nil {
		return params, err
	}
	if params.From, err = validators.ParseQueryDate(r, "from"); err != nil {
		return params, err
	}
	if params.To, err = validators.ParseQueryDate(r, "to"); err != nil {
		return params, err
	}
	if params.Limit, err = validators.ParseQueryInt(r, "limit", 0, 1, 100); err != nil {
		return params, err
	}
	params.Cursor = queryString(r, "cursor")
	return params, nil
}

func GetRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, logg, "requestId", "request id")
		if !ok {
			return
		}
		found, err := svc.Get(r.Context(), actorOf(caller), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}

func GetRequestGroup(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		groupID, ok := pathUUID(w, r, logg, "groupId", "group id")
		if !ok {
			return
		}
		siblings, err := svc.ListGroup(r.Context(), actorOf(caller), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"group_id": groupID, "requests": siblings})
	}
}

func DeleteRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, logg, "requestId", "request id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), actorOf(caller), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// TransitionRequest runs one lifecycle action against a single request.
func TransitionRequest(svc requests.Service, transition enums.RequestTransition, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, logg, "requestId", "request id")
		if !ok {
			return
		}

		var (
			result *requests.RequestDTO
			err    error
		)
		actor := actorOf(caller)
		switch transition {
		case enums.TransitionApprove:
			result, err = svc.Approve(r.Context(), actor, id)
		case enums.TransitionReject:
			var body requests.RejectInput
			if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			result, err = svc.Reject(r.Context(), actor, id, body.Reason)
		case enums.TransitionFulfill:
			result, err = svc.Fulfill(r.Context(), actor, id)
		case enums.TransitionCancel:
			result, err = svc.Cancel(r.Context(), actor, id)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "unknown transition")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TransitionRequestGroup runs an admin action against every eligible
// sibling of a bulk submission.
func TransitionRequestGroup(svc requests.Service, transition enums.RequestTransition, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		groupID, ok := pathUUID(w, r, logg, "groupId", "group id")
		if !ok {
			return
		}

		var (
			result *requests.GroupResult
			err    error
		)
		actor := actorOf(caller)
		switch transition {
		case enums.TransitionApprove:
			result, err = svc.ApproveGroup(r.Context(), actor, groupID)
		case enums.TransitionReject:
			var body requests.RejectInput
			if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			result, err = svc.RejectGroup(r.Context(), actor, groupID, body.Reason)
		case enums.TransitionFulfill:
			result, err = svc.FulfillGroup(r.Context(), actor, groupID)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "unsupported group transition")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
