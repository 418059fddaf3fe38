package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/internal/products"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

type productLoader interface {
	FindWithFarm(ctx context.Context, id uuid.UUID) (*products.ProductWithFarm, error)
}

// View is the cart as returned to clients.
type View struct {
	Items         []Item `json:"items"`
	Count         int    `json:"count"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

// Service adds catalog lookups on top of the raw Store.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddProduct(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store    *Store
	products productLoader
}

// NewService builds the cart service.
func NewService(store *Store, products productLoader) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{store: store, products: products}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newView(items), nil
}

func (s *service) AddProduct(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		quantity = 1
	}
	item, err := s.itemFor(ctx, productID)
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity

	current, err := s.store.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := checkStock(item.Name, item.stock, quantity+quantityOf(current, productID)); err != nil {
		return nil, err
	}

	items, err := s.store.Add(ctx, userID, item.Item)
	if err != nil {
		return nil, err
	}
	return newView(items), nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if quantity > 0 {
		item, err := s.itemFor(ctx, productID)
		if err != nil {
			return nil, err
		}
		if err := checkStock(item.Name, item.stock, quantity); err != nil {
			return nil, err
		}
	}
	items, err := s.store.UpdateQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}
	return newView(items), nil
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	items, err := s.store.Remove(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return newView(items), nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.store.Clear(ctx, userID)
}

type stockedItem struct {
	Item
	stock int
}

func (s *service) itemFor(ctx context.Context, productID uuid.UUID) (*stockedItem, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.products.FindWithFarm(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &stockedItem{Item: ItemFromProduct(product), stock: product.Quantity}, nil
}

// ItemFromProduct snapshots the display fields a cart line needs.
func ItemFromProduct(product *products.ProductWithFarm) Item {
	item := Item{
		ProductID:  product.ID,
		FarmerID:   product.FarmerID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		Unit:       product.Unit,
		FarmName:   product.FarmNameOrEmpty(),
	}
	if len(product.Images) > 0 {
		item.Image = product.Images[0]
	}
	return item
}

func quantityOf(items []Item, productID uuid.UUID) int {
	for _, item := range items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

func checkStock(name string, stock, requested int) error {
	if requested > stock {
		return pkgerrors.Validation(pkgerrors.FieldErrors{
			"quantity": fmt.Sprintf("only %d of %s available", stock, name),
		})
	}
	return nil
}

func newView(items []Item) *View {
	view := &View{Items: items}
	if view.Items == nil {
		view.Items = []Item{}
	}
	for _, item := range items {
		view.Count += item.Quantity
		view.SubtotalCents += item.LineTotalCents()
	}
	return view
}
