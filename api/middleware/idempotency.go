package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const (
	// DefaultIdempotencyTTL keeps checkout replays for a week.
	DefaultIdempotencyTTL = 7 * 24 * time.Hour

	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	pendingMarker     = "pending"
)

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// storedResponse is the replay record. Body is base64 on the wire.
type storedResponse struct {
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

type idempotency struct {
	store idempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency replays the stored response when a client retries with the same
// Idempotency-Key. The key is claimed before the handler runs, so concurrent
// retries cannot both submit. Responses that left nothing behind (5xx other
// than a partial failure) release the key.
func Idempotency(store idempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	m := &idempotency{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.serve(next, w, r)
		})
	}
}

func (m *idempotency) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if id == "" {
		responses.WriteError(ctx, m.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	}
	body, err := bufferBody(r)
	if err != nil {
		responses.WriteError(ctx, m.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
		return
	}

	key := m.store.IdempotencyKey(requestScope(r), id)
	hash := hashBody(body)
	claimed, err := m.store.SetNX(ctx, key, pendingMarker, m.ttl)
	if err != nil {
		responses.WriteError(ctx, m.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
		return
	}
	if !claimed {
		m.replay(ctx, w, key, hash)
		return
	}

	rec := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(rec, r)
	m.remember(ctx, key, hash, rec)
}

// remember stores a durable outcome or releases the key for a retry.
func (m *idempotency) remember(ctx context.Context, key, hash string, rec *responseCapture) {
	if !durable(rec) {
		m.logError(ctx, "release idempotency key", m.store.Del(ctx, key))
		return
	}
	payload, err := json.Marshal(storedResponse{
		Status:      rec.statusCode(),
		Body:        rec.body.Bytes(),
		ContentType: rec.Header().Get("Content-Type"),
		RequestHash: hash,
	})
	if err != nil {
		m.logError(ctx, "encode idempotency record", err)
		return
	}
	m.logError(ctx, "store idempotency record", m.store.Set(ctx, key, string(payload), m.ttl))
}

func (m *idempotency) replay(ctx context.Context, w http.ResponseWriter, key, hash string) {
	stored, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && stored == pendingMarker):
		responses.WriteError(ctx, m.logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this Idempotency-Key is still in progress"))
		return
	case err != nil:
		responses.WriteError(ctx, m.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var prev storedResponse
	if err := json.Unmarshal([]byte(stored), &prev); err != nil {
		responses.WriteError(ctx, m.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if prev.RequestHash != hash {
		responses.WriteError(ctx, m.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if prev.ContentType != "" {
		w.Header().Set("Content-Type", prev.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(prev.Status)
	_, _ = w.Write(prev.Body)
}

func (m *idempotency) logError(ctx context.Context, msg string, err error) {
	if m.logg != nil && err != nil {
		m.logg.Error(ctx, msg, err)
	}
}

// durable reports whether the response reflects an outcome worth replaying.
// A partial failure committed the order, so it counts.
func durable(rec *responseCapture) bool {
	if rec.statusCode() < http.StatusInternalServerError {
		return true
	}
	var envelope struct {
		Error struct {
			Code pkgerrors.Code `json:"code"`
		} `json:"error"`
	}
	return json.Unmarshal(rec.body.Bytes(), &envelope) == nil &&
		envelope.Error.Code == pkgerrors.CodePartialFailure
}

// requestScope keys a replay to the caller and route, so one client key
// cannot collide across users or endpoints.
func requestScope(r *http.Request) string {
	return UserIDFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}
