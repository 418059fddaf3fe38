package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	redisclient "github.com/farmersbracket/farmersbracket-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Identity is the user snapshot stored alongside a refresh session so a
// rotated access token can be minted without a database read.
type Identity struct {
	UserID uuid.UUID  `json:"user_id"`
	Email  string     `json:"email"`
	Role   enums.Role `json:"role"`
}

type record struct {
	Identity
	TokenHash string    `json:"token_hash"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Issued is returned whenever a new session is created.
type Issued struct {
	AccessID     string
	RefreshToken string
	Identity     Identity
}

// Manager stores refresh sessions in Redis keyed by the access token jti.
// Only a SHA-256 of the refresh token is persisted.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl, now: time.Now}, nil
}

// Create opens a session for identity under a fresh access ID.
func (m *Manager) Create(ctx context.Context, identity Identity) (Issued, error) {
	if identity.UserID == uuid.Nil {
		return Issued{}, fmt.Errorf("user id is required")
	}
	accessID := NewAccessID()
	token, err := m.put(ctx, accessID, identity)
	if err != nil {
		return Issued{}, err
	}
	return Issued{AccessID: accessID, RefreshToken: token, Identity: identity}, nil
}

// Rotate checks the refresh token against the session for oldAccessID, deletes
// it and opens a replacement. Reusing a rotated token fails.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Issued, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Issued{}, ErrInvalidRefreshToken
	}
	rec, err := m.load(ctx, oldAccessID)
	if err != nil {
		return Issued{}, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(hashToken(provided))) != 1 {
		return Issued{}, ErrInvalidRefreshToken
	}

	issued, err := m.Create(ctx, rec.Identity)
	if err != nil {
		return Issued{}, err
	}
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(oldAccessID)); err != nil {
		return Issued{}, err
	}
	return issued, nil
}

// Lookup returns the identity bound to accessID.
func (m *Manager) Lookup(ctx context.Context, accessID string) (Identity, error) {
	rec, err := m.load(ctx, accessID)
	if err != nil {
		return Identity{}, err
	}
	return rec.Identity, nil
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// HasSession reports whether the provided access ID still has an active session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) put(ctx context.Context, accessID string, identity Identity) (string, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(record{
		Identity:  identity,
		TokenHash: hashToken(token),
		IssuedAt:  m.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (m *Manager) load(ctx context.Context, accessID string) (record, error) {
	if strings.TrimSpace(accessID) == "" {
		return record{}, ErrInvalidRefreshToken
	}
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return record{}, ErrInvalidRefreshToken
		}
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
