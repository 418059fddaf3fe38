package controllers

import (
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/api/middleware"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// asUser attaches the identity the auth middleware would have set.
func asUser(r *http.Request, id uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(r.Context(), id.String())
	ctx = middleware.WithRole(ctx, string(role))
	return r.WithContext(ctx)
}

func serve(method, pattern, target string, body io.Reader, h http.HandlerFunc, decorate func(*http.Request) *http.Request) *httptest.ResponseRecorder {
	router := newTestRouter(method, pattern, h)
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if decorate != nil {
		req = decorate(req)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(method, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	return r
}
