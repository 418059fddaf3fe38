package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	orderMetadataKey = "order_id"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// paymentIntentAPI is the slice of the v1 PaymentIntents service this package drives.
type paymentIntentAPI interface {
	Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	intents       paymentIntentAPI
	environment   string
	signingSecret string
}

// IntentParams describes a card charge for one order.
type IntentParams struct {
	AmountCents    int64
	Currency       string
	OrderID        string
	IdempotencyKey string
}

// Intent is the processor-neutral view of a PaymentIntent.
type Intent struct {
	ID             string
	ClientSecret   string
	Status         string
	FailureMessage string
}

// Succeeded reports whether the processor captured the funds.
func (i Intent) Succeeded() bool {
	return i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		intents:       api.V1PaymentIntents,
		environment:   env,
		signingSecret: signingSecret,
	}, nil
}

// CreatePaymentIntent opens an intent for the order and returns its client secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, params IntentParams) (*Intent, error) {
	if c == nil || c.intents == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if params.AmountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		return nil, errors.New("currency is required")
	}

	req := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{orderMetadataKey: params.OrderID},
	}
	if params.IdempotencyKey != "" {
		req.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := c.intents.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return intentFromStripe(pi), nil
}

// ConfirmPaymentIntent attaches the tokenized payment method and confirms the intent.
func (c *Client) ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethod string) (*Intent, error) {
	if c == nil || c.intents == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if strings.TrimSpace(intentID) == "" {
		return nil, errors.New("payment intent id is required")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return nil, errors.New("payment method is required")
	}

	pi, err := c.intents.Confirm(ctx, intentID, &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
	})
	if err != nil {
		return nil, err
	}
	return intentFromStripe(pi), nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil {
		return stripe.Event{}, errors.New("stripe client not initialized")
	}
	return webhook.ConstructEvent(payload, signature, c.signingSecret)
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// OrderIDFromIntent reads the order id stamped on an intent at creation.
func OrderIDFromIntent(pi *stripe.PaymentIntent) string {
	if pi == nil || pi.Metadata == nil {
		return ""
	}
	return pi.Metadata[orderMetadataKey]
}

// ErrorMessage returns the customer-facing processor message carried by err, if any.
func ErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return ""
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return &Intent{}
	}
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}
	if pi.LastPaymentError != nil {
		intent.FailureMessage = pi.LastPaymentError.Msg
	}
	return intent
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
