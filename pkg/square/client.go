package square

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errLoggerRequired      = errors.New("square logger is required")
	errNotInitialized      = errors.New("square client not initialized")
)

type createPaymentFunc func(ctx context.Context, req *sq.CreatePaymentRequest) (*sq.Payment, error)

// Client charges cards through Square and exposes the webhook settings the
// HTTP layer needs to verify Square notifications.
type Client struct {
	createPayment createPaymentFunc
	environment   string
	locationID    string
	signatureKey  string
	webhookURL    string
	logger        *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Environment()))
	if env == "" {
		env = sandboxEnv
	}
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, fmt.Errorf("square environment %q is not %s or %s", env, sandboxEnv, productionEnv)
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	location := strings.TrimSpace(cfg.LocationID)
	if location == "" {
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token))
	c := &Client{
		createPayment: func(ctx context.Context, req *sq.CreatePaymentRequest) (*sq.Payment, error) {
			resp, err := sdk.Payments.Create(ctx, req)
			if err != nil {
				return nil, err
			}
			return resp.GetPayment(), nil
		},
		environment:  env,
		locationID:   location,
		signatureKey: strings.TrimSpace(cfg.WebhookSignatureKey),
		webhookURL:   strings.TrimSpace(cfg.WebhookURL),
		logger:       logg,
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"environment": env, "location_id": location}), "square client initialized")
	return c, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) LocationID() string {
	if c == nil {
		return ""
	}
	return c.locationID
}

// SigningSecret is the webhook subscription signature key.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signatureKey
}

// NotificationURL is the public webhook URL. Square signs it together with
// the body.
func (c *Client) NotificationURL() string {
	if c == nil {
		return ""
	}
	return c.webhookURL
}
