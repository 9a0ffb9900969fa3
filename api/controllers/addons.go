package controllers

import (
	"net/http"

	"github.com/convexa-app/backoffice-backend/api/responses"
	"github.com/convexa-app/backoffice-backend/api/validators"
	"github.com/convexa-app/backoffice-backend/internal/catalog"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
)

// ListAddons returns the sellable addons.
func ListAddons(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		addons, err := svc.GetActiveAddons(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"addons": addons})
	}
}

// CreateAddon registers a new addon.
func CreateAddon(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload catalog.CreateAddonInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addon, err := svc.CreateAddon(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, addon)
	}
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// SetAddonActive toggles whether an addon is sellable.
func SetAddonActive(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := parsePathID(r, "addonId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addon, err := svc.SetAddonActive(r.Context(), id, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, addon)
	}
}
