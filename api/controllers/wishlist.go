package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	"github.com/farmersbracket/farmersbracket-backend/api/validators"
	"github.com/farmersbracket/farmersbracket-backend/internal/wishlist"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

type wishlistItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

type wishlistAction func(r *http.Request, svc wishlist.Service, userID uuid.UUID) (any, error)

// wishlistHandler resolves the caller and runs one wishlist action.
func wishlistHandler(svc wishlist.Service, logg *logger.Logger, status int, action wishlistAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := action(r, svc, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// WishlistFetch returns saved products.
func WishlistFetch(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, http.StatusOK, func(r *http.Request, svc wishlist.Service, userID uuid.UUID) (any, error) {
		return svc.Get(r.Context(), userID)
	})
}

// WishlistAdd saves a product.
func WishlistAdd(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, http.StatusOK, func(r *http.Request, svc wishlist.Service, userID uuid.UUID) (any, error) {
		var body wishlistItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Add(r.Context(), userID, body.ProductID)
	})
}

// WishlistContains reports whether a product is saved.
func WishlistContains(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, http.StatusOK, func(r *http.Request, svc wishlist.Service, userID uuid.UUID) (any, error) {
		productID, err := pathUUID(r, "productId", "product id")
		if err != nil {
			return nil, err
		}
		saved, err := svc.Contains(r.Context(), userID, productID)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"saved": saved}, nil
	})
}

// WishlistRemove drops a saved product.
func WishlistRemove(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, http.StatusOK, func(r *http.Request, svc wishlist.Service, userID uuid.UUID) (any, error) {
		productID, err := pathUUID(r, "productId", "product id")
		if err != nil {
			return nil, err
		}
		return svc.Remove(r.Context(), userID, productID)
	})
}

// WishlistMoveToCart moves a saved product into the cart.
func WishlistMoveToCart(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, http.StatusOK, func(r *http.Request, svc wishlist.Service, userID uuid.UUID) (any, error) {
		productID, err := pathUUID(r, "productId", "product id")
		if err != nil {
			return nil, err
		}
		return svc.MoveToCart(r.Context(), userID, productID)
	})
}

// WishlistClear removes every saved product.
func WishlistClear(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistHandler(svc, logg, http.StatusNoContent, func(r *http.Request, svc wishlist.Service, userID uuid.UUID) (any, error) {
		return nil, svc.Clear(r.Context(), userID)
	})
}
