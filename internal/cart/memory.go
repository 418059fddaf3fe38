package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
)

// MemoryKV is an in-process KVStore used by tests and local tooling. TTLs are ignored.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string]string{}}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return value, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *MemoryKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryKV) StateKey(kind, userID string) string {
	return "state:" + kind + ":" + userID
}
