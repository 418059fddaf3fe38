package farms

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

// DefaultNearbyRadiusKm applies when Nearby is called without a radius.
const DefaultNearbyRadiusKm = 50.0

type farmRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Farm, error)
	List(ctx context.Context, farmerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Farm, error)
	ListInBox(ctx context.Context, box geo.Box) ([]models.Farm, error)
}

// ListInput filters the farm directory.
type ListInput struct {
	FarmerID   *uuid.UUID
	Pagination pagination.Params
}

// Service exposes the farm directory.
type Service interface {
	List(ctx context.Context, input ListInput) (*pagination.Page[FarmDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*FarmDTO, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]FarmDTO, error)
}

type service struct {
	repo farmRepository
}

// NewService builds the farm service.
func NewService(repo farmRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("farm repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[FarmDTO], error) {
	cursor, err := pagination.Parse(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": "invalid cursor"})
	}
	rows, err := s.repo.List(ctx, input.FarmerID, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, err
	}
	page := pagination.Build(rows, input.Pagination.Limit, func(f models.Farm) pagination.Cursor {
		return pagination.Cursor{CreatedAt: f.CreatedAt, ID: f.ID}
	})
	out := &pagination.Page[FarmDTO]{Items: make([]FarmDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, row := range page.Items {
		out.Items = append(out.Items, NewFarmDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*FarmDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farm id required")
	}
	farm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewFarmDTO(*farm)
	return &dto, nil
}

// Nearby returns farms within radiusKm of the point, nearest first.
func (s *service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]FarmDTO, error) {
	origin := geo.Point{Lat: lat, Lng: lng}
	if err := origin.Validate(); err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"location": err.Error()})
	}
	if radiusKm < 0 {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"radius_km": "must not be negative"})
	}
	if radiusKm == 0 {
		radiusKm = DefaultNearbyRadiusKm
	}

	rows, err := s.repo.ListInBox(ctx, geo.BoundingBox(origin, radiusKm))
	if err != nil {
		return nil, err
	}

	type ranked struct {
		dto FarmDTO
		km  float64
	}
	hits := make([]ranked, 0, len(rows))
	for _, row := range rows {
		point, ok := pointOf(row)
		if !ok {
			continue
		}
		km := geo.Haversine(origin, point)
		if km > radiusKm {
			continue
		}
		dto := NewFarmDTO(row)
		rounded := geo.RoundKm(km)
		dto.DistanceKm = &rounded
		hits = append(hits, ranked{dto: dto, km: km})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].km < hits[j].km })

	out := make([]FarmDTO, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.dto)
	}
	return out, nil
}
