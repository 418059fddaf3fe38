package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func checkoutRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithUserID(req.Context(), "user-1"))
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]int{"call": calls})
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest("key-1", `{"payment_method":"cash"}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequest("key-1", `{"payment_method":"cash"}`))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, nil)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-2", `{"a":1}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest("key-2", `{"a":2}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeIdempotency))
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	handler := Idempotency(newFakeStore(), time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest("", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyReleasesKeyOnInternalError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeInternal, "boom"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-3", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-3", `{}`))
	assert.Equal(t, 2, calls, "a rolled back request may be retried")
	assert.Empty(t, store.data)
}

func TestIdempotencyKeepsPartialFailure(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		responses.WriteError(r.Context(), nil, w, pkgerrors.PartialFailure(fmt.Errorf("redis"), "o-1", "clear_cart"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-4", `{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest("key-4", `{}`))
	assert.Equal(t, 1, calls, "the order exists so the retry must not submit again")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIdempotencyReportsInFlightRequest(t *testing.T) {
	store := newFakeStore()
	store.data[store.IdempotencyKey("user-1|POST|/api/v1/checkout", "key-5")] = pendingMarker
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest("key-5", `{}`))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeConflict))
}
