package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
	"github.com/farmersbracket/farmersbracket-backend/pkg/maps"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

// Geocoder resolves a free-form address. maps.Client satisfies it.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*maps.Place, error)
}

type productReader interface {
	FindWithFarm(ctx context.Context, id uuid.UUID) (*ProductWithFarm, error)
	Browse(ctx context.Context, query BrowseQuery) ([]ProductWithFarm, error)
	ListFeatured(ctx context.Context, limit int) ([]ProductWithFarm, error)
}

// Service exposes the public catalog.
type Service interface {
	Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Featured(ctx context.Context, limit int) ([]ProductDTO, error)
}

type service struct {
	repo     productReader
	geocoder Geocoder
}

// NewService constructs the catalog service. The geocoder is optional; without
// it address-based browsing is rejected.
func NewService(repo productReader, geocoder Geocoder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, geocoder: geocoder}, nil
}

func (s *service) Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error) {
	cursor, err := pagination.Parse(params.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": "invalid cursor"})
	}
	if params.RadiusKm < 0 {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"radius_km": "must not be negative"})
	}

	origin, err := s.resolveOrigin(ctx, params)
	if err != nil {
		return nil, err
	}
	if origin == nil && params.wantsDistance() {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"location": "coordinates or address required for distance search"})
	}

	limit := pagination.NormalizeLimit(params.Pagination.Limit)
	query := BrowseQuery{
		Category: params.Category,
		Organic:  params.Organic,
		Featured: params.Featured,
		Search:   params.Search,
		FarmID:   params.FarmID,
		InStock:  params.InStock,
		Cursor:   cursor,
		Limit:    limit,
	}
	if origin != nil && params.RadiusKm > 0 {
		box := geo.BoundingBox(*origin, params.RadiusKm)
		query.Box = &box
	}

	if params.SortByDistance {
		query.DistanceSort = true
		rows, err := s.repo.Browse(ctx, query)
		if err != nil {
			return nil, err
		}
		ranked := rankByDistance(rows, *origin, params.RadiusKm)
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
		items := make([]ProductDTO, 0, len(ranked))
		for _, r := range ranked {
			items = append(items, NewProductDTO(r.row).withDistance(r.km))
		}
		return &BrowseResult{Items: items, Origin: origin}, nil
	}

	rows, err := s.repo.Browse(ctx, query)
	if err != nil {
		return nil, err
	}
	page := pagination.Build(rows, limit, rowCursor)
	items := make([]ProductDTO, 0, len(page.Items))
	for _, row := range page.Items {
		dto := NewProductDTO(row)
		if origin != nil {
			point, ok := row.FarmPoint()
			if !ok {
				if params.RadiusKm > 0 {
					continue
				}
				items = append(items, dto)
				continue
			}
			km := geo.Haversine(*origin, point)
			if params.RadiusKm > 0 && km > params.RadiusKm {
				continue
			}
			dto = dto.withDistance(km)
		}
		items = append(items, dto)
	}
	return &BrowseResult{Items: items, NextCursor: page.NextCursor, Origin: origin}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	row, err := s.repo.FindWithFarm(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(*row)
	return &dto, nil
}

func (s *service) Featured(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.ListFeatured(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewProductDTO(row))
	}
	return items, nil
}

func (s *service) resolveOrigin(ctx context.Context, params BrowseParams) (*geo.Point, error) {
	if params.Near != nil {
		if err := params.Near.Validate(); err != nil {
			return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"location": err.Error()})
		}
		point := *params.Near
		return &point, nil
	}
	address := strings.TrimSpace(params.Address)
	if address == "" {
		return nil, nil
	}
	if s.geocoder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address lookup is not configured")
	}
	place, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "geocode address")
	}
	point := place.Location
	return &point, nil
}
