package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/internal/cart"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
)

const stateKind = "wishlist"

// Item is a saved product snapshot.
type Item struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Unit       string    `json:"unit"`
	Image      string    `json:"image,omitempty"`
	FarmName   string    `json:"farm_name,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// Store keeps one JSON-encoded wishlist per user in the shared KV backend.
type Store struct {
	kv  cart.KVStore
	ttl time.Duration
	now func() time.Time
	mu  sync.Mutex
}

// NewStore wires the wishlist store to a KV backend.
func NewStore(kv cart.KVStore, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv store required")
	}
	return &Store{kv: kv, ttl: ttl, now: time.Now}, nil
}

// Items returns saved products, most recently added first.
func (s *Store) Items(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	return s.load(ctx, userID)
}

// Add saves the product. Re-adding refreshes the snapshot and moves it to the front.
func (s *Store) Add(ctx context.Context, userID uuid.UUID, item Item) ([]Item, error) {
	if item.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	item.AddedAt = s.now().UTC()
	return s.mutate(ctx, userID, func(items []Item) []Item {
		out := make([]Item, 0, len(items)+1)
		out = append(out, item)
		for _, existing := range items {
			if existing.ProductID != item.ProductID {
				out = append(out, existing)
			}
		}
		return out
	})
}

// Remove drops a saved product. Missing products are ignored.
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

// Contains reports whether the product is saved.
func (s *Store) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the number of saved products.
func (s *Store) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Clear empties the wishlist.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.kv.Del(ctx, s.key(userID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear wishlist")
	}
	return nil
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode wishlist")
	}
	if err := s.kv.Set(ctx, s.key(userID), string(encoded), s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist")
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode wishlist")
	}
	return items, nil
}

func (s *Store) key(userID uuid.UUID) string {
	return s.kv.StateKey(stateKind, userID.String())
}
