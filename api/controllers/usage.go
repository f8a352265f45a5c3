package controllers

import (
	"net/http"

	"github.com/angelmondragon/supplydesk-backend/api/responses"
	"github.com/angelmondragon/supplydesk-backend/api/validators"
	"github.com/angelmondragon/supplydesk-backend/internal/usage"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// CheckUsage previews whether the caller may request quantity of an item
// this month. The position comes from the caller's token.
func CheckUsage(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		itemID, err := validators.ParseQueryUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if itemID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "itemId is required"))
			return
		}
		quantity, err := validators.ParseQueryInt(r, "quantity", 1, 1, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckLimit(r.Context(), usage.CheckInput{
			UserID:   caller.UserID,
			ItemID:   *itemID,
			Position: caller.Position,
			Quantity: quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MyMonthlyUsage lists the caller's per-item usage for a month, defaulting
// to the current one.
func MyMonthlyUsage(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := identity(w, r, logg)
		if !ok {
			return
		}
		year, err := validators.ParseQueryInt(r, "year", 0, 2000, 9999)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		month, err := validators.ParseQueryInt(r, "month", 0, 1, 12)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (year == 0) != (month == 0) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "year and month must be supplied together"))
			return
		}

		result, err := svc.ListMonthly(r.Context(), usage.MonthlyInput{
			UserID:   caller.UserID,
			Position: caller.Position,
			Period:   usage.Period{Year: year, Month: month},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
