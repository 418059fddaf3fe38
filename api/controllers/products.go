package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	"github.com/farmersbracket/farmersbracket-backend/api/validators"
	"github.com/farmersbracket/farmersbracket-backend/internal/products"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const defaultFeaturedLimit = 8

// BrowseProducts lists the catalog with filters and optional distance search.
func BrowseProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		params, err := parseBrowseParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseBrowseParams(r *http.Request) (products.BrowseParams, error) {
	q := r.URL.Query()
	page, err := pageParams(r)
	if err != nil {
		return products.BrowseParams{}, err
	}
	params := products.BrowseParams{
		Category:   strings.TrimSpace(q.Get("category")),
		Search:     validators.SanitizeString(q.Get("q"), 80),
		Address:    validators.SanitizeString(q.Get("address"), 200),
		Pagination: page,
	}

	fields := pkgerrors.FieldErrors{}
	if params.Organic, err = optionalBool(q.Get("organic")); err != nil {
		fields["organic"] = "must be true or false"
	}
	if params.Featured, err = optionalBool(q.Get("featured")); err != nil {
		fields["featured"] = "must be true or false"
	}
	if inStock, err := optionalBool(q.Get("in_stock")); err != nil {
		fields["in_stock"] = "must be true or false"
	} else if inStock != nil {
		params.InStock = *inStock
	}
	if params.FarmID, err = queryUUID(r, "farm_id"); err != nil {
		fields["farm_id"] = "must be a valid id"
	}

	lat, latErr := optionalFloat(q.Get("lat"))
	lng, lngErr := optionalFloat(q.Get("lng"))
	switch {
	case latErr != nil:
		fields["lat"] = "must be a number"
	case lngErr != nil:
		fields["lng"] = "must be a number"
	case (lat == nil) != (lng == nil):
		fields["location"] = "lat and lng must be supplied together"
	case lat != nil:
		params.Near = &geo.Point{Lat: *lat, Lng: *lng}
	}

	if radius, err := optionalFloat(q.Get("radius_km")); err != nil {
		fields["radius_km"] = "must be a number"
	} else if radius != nil {
		params.RadiusKm = *radius
	}

	switch sort := strings.ToLower(strings.TrimSpace(q.Get("sort"))); sort {
	case "", "newest":
	case "distance":
		params.SortByDistance = true
	default:
		fields["sort"] = "must be one of: newest distance"
	}

	if len(fields) > 0 {
		return products.BrowseParams{}, pkgerrors.Validation(fields)
	}
	return params, nil
}

// GetProduct returns one product with its farm.
func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := pathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// FeaturedProducts returns in-stock featured products.
func FeaturedProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultFeaturedLimit, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Featured(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func optionalBool(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func optionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
