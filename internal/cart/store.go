package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
)

const stateKind = "cart"

// KVStore is the persistence boundary for per-user state. Get returns
// redis.ErrNil when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StateKey(kind, userID string) string
}

// Item is a cart line. ID is the product id.
type Item struct {
	ProductID  uuid.UUID `json:"product_id"`
	FarmerID   uuid.UUID `json:"farmer_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Unit       string    `json:"unit"`
	Image      string    `json:"image,omitempty"`
	FarmName   string    `json:"farm_name,omitempty"`
	Quantity   int       `json:"quantity"`
}

// LineTotalCents is price times quantity.
func (i Item) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// Store keeps one JSON-encoded cart per user. Writes are read-modify-write
// and the last write wins.
type Store struct {
	kv  KVStore
	ttl time.Duration
	mu  sync.Mutex
}

// NewStore wires the cart store to a KV backend.
func NewStore(kv KVStore, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv store required")
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

// Items returns the user's cart lines in insertion order.
func (s *Store) Items(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	return s.load(ctx, userID)
}

// Add inserts the item or increments the quantity of an existing line.
func (s *Store) Add(ctx context.Context, userID uuid.UUID, item Item) ([]Item, error) {
	if item.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return s.mutate(ctx, userID, func(items []Item) []Item {
		for i := range items {
			if items[i].ProductID == item.ProductID {
				items[i].Quantity += item.Quantity
				items[i].PriceCents = item.PriceCents
				return items
			}
		}
		return append(items, item)
	})
}

// Remove drops the line for productID. Missing lines are ignored.
func (s *Store) Remove(ctx context.Context, userID, productID uuid.UUID) ([]Item, error) {
	return s.mutate(ctx, userID, func(items []Item) []Item {
		out := items[:0]
		for _, item := range items {
			if item.ProductID != productID {
				out = append(out, item)
			}
		}
		return out
	})
}

// UpdateQuantity sets the quantity for a line. Zero or less removes it.
func (s *Store) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]Item, error) {
	if quantity <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	found := false
	items, err := s.mutate(ctx, userID, func(items []Item) []Item {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = quantity
				found = true
			}
		}
		return items
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	return items, nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.kv.Del(ctx, s.key(userID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Count sums line quantities.
func (s *Store) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total, nil
}

// Subtotal sums price times quantity across lines.
func (s *Store) Subtotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, item := range items {
		total += item.LineTotalCents()
	}
	return total, nil
}

func (s *Store) mutate(ctx context.Context, userID uuid.UUID, fn func([]Item) []Item) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	items = fn(items)
	if len(items) == 0 {
		return []Item{}, s.Clear(ctx, userID)
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.kv.Set(ctx, s.key(userID), string(encoded), s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return items, nil
}

func (s *Store) load(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	raw, err := s.kv.Get(ctx, s.key(userID))
	if errors.Is(err, redis.ErrNil) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	return items, nil
}

func (s *Store) key(userID uuid.UUID) string {
	return s.kv.StateKey(stateKind, userID.String())
}
