package controllers

import (
	"net/http"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	"github.com/farmersbracket/farmersbracket-backend/api/validators"
	"github.com/farmersbracket/farmersbracket-backend/internal/address"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const maxAddressQuery = 200

// AddressSuggest returns autocomplete candidates for the checkout address field.
func AddressSuggest(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxAddressQuery)
		suggestions, err := svc.Suggest(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestions)
	}
}

// AddressLocate resolves a chosen address to coordinates.
func AddressLocate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("address"), maxAddressQuery)
		location, err := svc.Locate(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, location)
	}
}
