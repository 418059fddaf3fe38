package controllers

import (
	"net/http"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	"github.com/farmersbracket/farmersbracket-backend/internal/farmers"
	"github.com/farmersbracket/farmersbracket-backend/internal/farms"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

// ListFarms pages through farms, optionally for one farmer.
func ListFarms(svc farms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "farm service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		farmerID, err := queryUUID(r, "farmer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), farms.ListInput{FarmerID: farmerID, Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GetFarm returns a single farm.
func GetFarm(svc farms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "farm service unavailable"))
			return
		}
		farmID, err := pathUUID(r, "farmId", "farm id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		farm, err := svc.Get(r.Context(), farmID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, farm)
	}
}

// NearbyFarms finds farms within radius_km of lat/lng, nearest first.
func NearbyFarms(svc farms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "farm service unavailable"))
			return
		}
		q := r.URL.Query()
		lat, latErr := optionalFloat(q.Get("lat"))
		lng, lngErr := optionalFloat(q.Get("lng"))
		if latErr != nil || lngErr != nil || lat == nil || lng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation(pkgerrors.FieldErrors{"location": "lat and lng are required numbers"}))
			return
		}
		radius := farms.DefaultNearbyRadiusKm
		if value, err := optionalFloat(q.Get("radius_km")); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation(pkgerrors.FieldErrors{"radius_km": "must be a number"}))
			return
		} else if value != nil {
			radius = *value
		}
		items, err := svc.Nearby(r.Context(), *lat, *lng, radius)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// FarmerProfile returns public sales figures and rating for a farmer.
func FarmerProfile(svc farmers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "farmer service unavailable"))
			return
		}
		farmerID, err := pathUUID(r, "farmerId", "farmer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Profile(r.Context(), farmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
