// Package idempotency guards at-least-once consumers (Pub/Sub subscribers,
// payment webhooks) against handling the same delivery twice.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
)

// Manager tracks processed delivery ids per consumer using Redis SETNX with a TTL.
// Keys follow the `fb:idempotency:processed:<consumer>:<id>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds a guard that remembers deliveries for ttl.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim marks id as being handled by consumer. It returns false when another
// delivery already claimed it.
func (m *Manager) Claim(ctx context.Context, consumer, id string) (bool, error) {
	key, err := m.key(consumer, id)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
}

// Release forgets a claim so a redelivery can retry after a failed attempt.
func (m *Manager) Release(ctx context.Context, consumer, id string) error {
	key, err := m.key(consumer, id)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer, id string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	id = strings.TrimSpace(id)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if id == "" {
		return "", errors.New("delivery id is required")
	}
	return m.store.IdempotencyKey("processed:"+consumer, id), nil
}
