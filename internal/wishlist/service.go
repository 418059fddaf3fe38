package wishlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/internal/cart"
	"github.com/farmersbracket/farmersbracket-backend/internal/products"
)

type productLoader interface {
	FindWithFarm(ctx context.Context, id uuid.UUID) (*products.ProductWithFarm, error)
}

type cartAdder interface {
	AddProduct(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.View, error)
}

// View is the wishlist as returned to clients.
type View struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

// Service manages saved products.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*cart.View, error)
}

type service struct {
	store    *Store
	products productLoader
	cart     cartAdder
}

// NewService builds the wishlist service.
func NewService(store *Store, products productLoader, cart cartAdder) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("wishlist store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &service{store: store, products: products, cart: cart}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newView(items), nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	product, err := s.products.FindWithFarm(ctx, productID)
	if err != nil {
		return nil, err
	}
	snapshot := cart.ItemFromProduct(product)
	items, err := s.store.Add(ctx, userID, Item{
		ProductID:  snapshot.ProductID,
		Name:       snapshot.Name,
		PriceCents: snapshot.PriceCents,
		Unit:       snapshot.Unit,
		Image:      snapshot.Image,
		FarmName:   snapshot.FarmName,
	})
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

func (s *service) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return s.store.Contains(ctx, userID, productID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.store.Clear(ctx, userID)
}

// MoveToCart adds one unit to the cart and then drops the product from the
// wishlist. The wishlist entry is kept when the cart rejects the add.
func (s *service) MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*cart.View, error) {
	view, err := s.cart.AddProduct(ctx, userID, productID, 1)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return view, nil
}

func newView(items []Item) *View {
	if items == nil {
		items = []Item{}
	}
	return &View{Items: items, Count: len(items)}
}
