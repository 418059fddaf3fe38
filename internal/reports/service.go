package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

const (
	defaultWindow = 30 * 24 * time.Hour
	maxWindow     = 366 * 24 * time.Hour

	// EntityMarketplace labels reports that span every farmer.
	EntityMarketplace = "marketplace"
	// EntityFarmer labels reports scoped to the requesting farmer.
	EntityFarmer = "farmer"
)

type loader interface {
	LoadOrders(ctx context.Context, rng Range, farmerID *uuid.UUID) ([]models.Order, error)
	LoadProducts(ctx context.Context, farmerID *uuid.UUID) ([]models.Product, error)
	LoadFarmers(ctx context.Context, farmerID *uuid.UUID) ([]FarmerRecord, error)
}

// Request selects the reporting window. Admins see the whole marketplace and
// farmers see their own lines only.
type Request struct {
	ActorID   uuid.UUID
	ActorRole enums.Role
	From      time.Time
	To        time.Time
}

// Service builds reports from stored orders.
type Service interface {
	Generate(ctx context.Context, req Request) (*Report, error)
}

type service struct {
	repo loader
	now  func() time.Time
}

// NewService builds the reporting service.
func NewService(repo loader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Generate(ctx context.Context, req Request) (*Report, error) {
	var scope *uuid.UUID
	entity := EntityMarketplace
	switch req.ActorRole {
	case enums.RoleAdmin:
	case enums.RoleFarmer:
		if req.ActorID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		}
		id := req.ActorID
		scope = &id
		entity = EntityFarmer
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reports are available to farmers and admins")
	}

	rng, err := s.window(req)
	if err != nil {
		return nil, err
	}

	orderRows, err := s.repo.LoadOrders(ctx, rng, scope)
	if err != nil {
		return nil, err
	}
	productRows, err := s.repo.LoadProducts(ctx, scope)
	if err != nil {
		return nil, err
	}
	farmers, err := s.repo.LoadFarmers(ctx, scope)
	if err != nil {
		return nil, err
	}

	orders := make([]OrderRecord, 0, len(orderRows))
	for _, row := range orderRows {
		record := orderRecord(row)
		if scope != nil {
			// a farmer's share of an order is the sum of their own lines
			record.TotalCents = 0
			for _, item := range record.Items {
				record.TotalCents += item.LineCents()
			}
		}
		orders = append(orders, record)
	}
	products := make([]ProductRecord, 0, len(productRows))
	for _, p := range productRows {
		products = append(products, ProductRecord{
			ID:         p.ID,
			Name:       p.Name,
			Category:   p.Category,
			FarmerID:   p.FarmerID,
			PriceCents: p.PriceCents,
			Stock:      p.Quantity,
		})
	}

	report := Aggregate(rng, orders, products, farmers)
	report.Entity = entity
	return &report, nil
}

func (s *service) window(req Request) (Range, error) {
	to := req.To
	if to.IsZero() {
		to = s.now()
	}
	from := req.From
	if from.IsZero() {
		from = to.Add(-defaultWindow)
	}
	to, from = to.UTC(), from.UTC()
	if from.After(to) {
		return Range{}, pkgerrors.Validation(pkgerrors.FieldErrors{"from": "must not be after to"})
	}
	if to.Sub(from) > maxWindow {
		return Range{}, pkgerrors.Validation(pkgerrors.FieldErrors{"from": "window must not exceed 366 days"})
	}
	return Range{From: from, To: to}, nil
}

func orderRecord(row models.Order) OrderRecord {
	record := OrderRecord{
		ID:            row.ID,
		CustomerName:  row.CustomerName,
		CustomerEmail: row.CustomerEmail,
		Status:        string(row.Status),
		PaymentMethod: string(row.PaymentMethod),
		TotalCents:    row.TotalCents,
		CreatedAt:     row.CreatedAt,
		Items:         make([]ItemRecord, 0, len(row.Items)),
	}
	for _, item := range row.Items {
		record.Items = append(record.Items, ItemRecord{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Category:       item.Category,
			FarmerID:       item.FarmerID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return record
}
