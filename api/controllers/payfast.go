package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const maxNotifyBody = 64 << 10

// PayFastHandler is implemented by the PayFast payments service.
type PayFastHandler interface {
	Success(ctx context.Context, userID uuid.UUID, rawOrderID string) (*models.Order, error)
	Cancel(ctx context.Context, userID uuid.UUID, rawOrderID string) (*models.Order, error)
	Notify(ctx context.Context, body string) error
}

// PayFastSuccess reports the order named in the PayFast return query. The
// payment itself settles through PayFastNotify.
func PayFastSuccess(svc PayFastHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payfast unavailable"))
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Success(r.Context(), userID, r.URL.Query().Get("custom_str1"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderPaymentView(order))
	}
}

// PayFastCancel marks the payment failed; the order stays pending.
func PayFastCancel(svc PayFastHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payfast unavailable"))
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), userID, r.URL.Query().Get("custom_str1"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderPaymentView(order))
	}
}

// PayFastNotify accepts the signed ITN callback. PayFast only needs a 200.
func PayFastNotify(svc PayFastHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payfast unavailable"))
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxNotifyBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read notification body"))
			return
		}
		if err := svc.Notify(r.Context(), string(body)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func orderPaymentView(order *models.Order) map[string]any {
	return map[string]any{
		"order":         orders.NewOrderDTO(order),
		"tracking_path": orders.TrackingPath(order.ID.String()),
	}
}
