package controllers

import (
	"net/http"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	"github.com/farmersbracket/farmersbracket-backend/api/validators"
	"github.com/farmersbracket/farmersbracket-backend/internal/checkout"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

type checkoutOptions struct {
	DeliverySlot string `json:"delivery_slot" validate:"max=32"`
	GiftWrap     string `json:"gift_wrap" validate:"max=32"`
	TipCents     int64  `json:"tip_cents" validate:"gte=0,lte=1000000"`
	PromoCode    string `json:"promo_code" validate:"max=32"`
}

type quoteRequest struct {
	checkoutOptions
}

// submitOrderRequest carries only shape checks. Field rules such as the phone
// format are applied by the checkout service so every caller gets them.
type submitOrderRequest struct {
	checkoutOptions
	Email                string `json:"email" validate:"omitempty,email"`
	FullName             string `json:"full_name"`
	Phone                string `json:"phone"`
	ShippingAddress      string `json:"shipping_address"`
	DeliveryInstructions string `json:"delivery_instructions" validate:"max=500"`
	PaymentMethod        string `json:"payment_method"`
	PaymentMethodToken   string `json:"payment_method_token"`
}

type confirmPaymentRequest struct {
	PaymentMethodToken string `json:"payment_method_token"`
}

func checkoutUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
}

// CheckoutQuote prices the caller's cart with the chosen delivery options.
func CheckoutQuote(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, checkoutUnavailable())
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body quoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Quote(r.Context(), userID, checkout.QuoteInput{
			DeliverySlot: body.DeliverySlot,
			GiftWrap:     body.GiftWrap,
			TipCents:     body.TipCents,
			PromoCode:    body.PromoCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// CheckoutSubmit places the order and starts payment.
func CheckoutSubmit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, checkoutUnavailable())
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body submitOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SubmitOrder(r.Context(), checkout.SubmitInput{
			UserID:               userID,
			Email:                body.Email,
			FullName:             validators.SanitizeString(body.FullName, 120),
			Phone:                body.Phone,
			ShippingAddress:      validators.SanitizeString(body.ShippingAddress, 300),
			DeliveryInstructions: validators.SanitizeString(body.DeliveryInstructions, 500),
			PaymentMethod:        body.PaymentMethod,
			PaymentMethodToken:   body.PaymentMethodToken,
			DeliverySlot:         body.DeliverySlot,
			GiftWrap:             body.GiftWrap,
			TipCents:             body.TipCents,
			PromoCode:            body.PromoCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutConfirmPayment completes a card payment for an order awaiting it.
func CheckoutConfirmPayment(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, checkoutUnavailable())
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ConfirmPayment(r.Context(), checkout.ConfirmInput{
			OrderID:            orderID,
			UserID:             userID,
			PaymentMethodToken: body.PaymentMethodToken,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
