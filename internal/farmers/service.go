package farmers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
)

// SalesTotals are a farmer's lifetime sales figures.
type SalesTotals struct {
	Orders       int64
	Units        int64
	RevenueCents int64
}

// Profile is the public farmer card with its rating.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Sales        int64     `json:"sales"`
	UnitsSold    int64     `json:"units_sold"`
	RevenueCents int64     `json:"revenue_cents"`
	Revenue      string    `json:"revenue"`
	Products     int       `json:"products"`
	Rating       float64   `json:"rating"`
}

type salesReader interface {
	SalesTotals(ctx context.Context, farmerID uuid.UUID) (SalesTotals, error)
}

type productCounter interface {
	CountByFarmer(ctx context.Context, farmerID uuid.UUID) (int, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service exposes farmer profiles.
type Service interface {
	Profile(ctx context.Context, farmerID uuid.UUID) (*Profile, error)
}

type service struct {
	sales    salesReader
	products productCounter
	users    userFinder
}

// NewService builds the farmer profile service.
func NewService(sales salesReader, products productCounter, users userFinder) (Service, error) {
	if sales == nil {
		return nil, fmt.Errorf("sales reader required")
	}
	if products == nil {
		return nil, fmt.Errorf("product counter required")
	}
	if users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	return &service{sales: sales, products: products, users: users}, nil
}

func (s *service) Profile(ctx context.Context, farmerID uuid.UUID) (*Profile, error) {
	user, err := s.users.FindByID(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if user.Role != enums.RoleFarmer {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "farmer not found")
	}
	totals, err := s.sales.SalesTotals(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	count, err := s.products.CountByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:           user.ID,
		Name:         user.FullName,
		Sales:        totals.Orders,
		UnitsSold:    totals.Units,
		RevenueCents: totals.RevenueCents,
		Revenue:      money.Format(totals.RevenueCents),
		Products:     count,
		Rating:       Rating(int(totals.Orders), money.Units(totals.RevenueCents), count),
	}, nil
}
