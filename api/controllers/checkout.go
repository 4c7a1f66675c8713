package controllers

import (
	"net/http"

	"github.com/nextcart/storefront-backend/api/responses"
	"github.com/nextcart/storefront-backend/api/validators"
	checkoutsvc "github.com/nextcart/storefront-backend/internal/checkout"
	pkgerrors "github.com/nextcart/storefront-backend/pkg/errors"
	"github.com/nextcart/storefront-backend/pkg/logger"
)

// Checkout submits the client-held cart for atomic order placement.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.UserID = &userID

		order, err := svc.Execute(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
