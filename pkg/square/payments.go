package square

import (
	"context"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

// Payment statuses reported by Square.
const (
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusApproved  = "APPROVED"
	PaymentStatusFailed    = "FAILED"
)

const defaultCurrency = "ZAR"

// PaymentCreateParams describes one card charge. LocationID defaults to the
// client's location and IdempotencyKey to a generated key.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

// CreatePayment charges a Web Payments SDK source token and completes the
// payment in the same call.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	if c == nil || c.createPayment == nil {
		return nil, errNotInitialized
	}
	if strings.TrimSpace(params.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square source id is required")
	}
	if params.LocationID == "" {
		params.LocationID = c.locationID
	}
	req := buildPaymentRequest(params, idempotencyKey("payment", params.IdempotencyKey))

	c.log(ctx, "square payment requested", map[string]any{
		"location_id":  params.LocationID,
		"reference_id": params.ReferenceID,
		"amount_cents": params.AmountCents,
		"source_id":    params.SourceID,
	})
	payment, err := c.createPayment(ctx, req)
	if err != nil {
		mapped := mapError(err, "create payment")
		if c.logger != nil {
			c.logger.Error(ctx, "square payment failed", mapped)
		}
		return nil, mapped
	}
	c.log(ctx, "square payment created", map[string]any{
		"payment_id": deref(payment.GetID()),
		"status":     deref(payment.GetStatus()),
	})
	return payment, nil
}

func buildPaymentRequest(p PaymentCreateParams, key string) *sq.CreatePaymentRequest {
	autocomplete := true
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: key,
		SourceID:       p.SourceID,
		LocationID:     optional(p.LocationID),
		Note:           optional(p.Note),
		ReferenceID:    optional(p.ReferenceID),
		Autocomplete:   &autocomplete,
	}
	if p.AmountCents > 0 {
		req.AmountMoney = money(p.AmountCents, p.Currency)
	}
	return req
}

func money(amountCents int64, currency string) *sq.Money {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = defaultCurrency
	}
	c := sq.Currency(code)
	return &sq.Money{Amount: &amountCents, Currency: &c}
}

// idempotencyKey keeps a caller supplied key so retries of one order reuse it.
func idempotencyKey(prefix, provided string) string {
	if key := strings.TrimSpace(provided); key != "" {
		return key
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "fb"
	}
	return prefix + "-" + uuid.NewString()
}

func (c *Client) log(ctx context.Context, msg string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	safe := make(map[string]any, len(fields))
	for k, v := range fields {
		safe[k] = redact(k, v)
	}
	c.logger.Info(c.logger.WithFields(ctx, safe), msg)
}

var sensitiveKeyParts = []string{"card", "nonce", "token", "source", "cvv", "cvc", "secret", "email", "phone"}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return "[REDACTED]"
		}
	}
	return value
}

func optional(value string) *string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	return &value
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
