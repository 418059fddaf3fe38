package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
)

const (
	defaultBaseURL              = "https://places.googleapis.com/v1"
	defaultRegionCode           = "ZA"
	autocompleteFieldMask       = "suggestions.placePrediction.placeId,suggestions.placePrediction.text"
	searchTextFieldMask         = "places.id,places.formattedAddress,places.location"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("google maps api key is required")

// Client wraps the Google Places endpoints used to geocode delivery addresses.
// Outbound calls share a token-bucket limiter so bursts of browse requests stay
// under the project quota.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	region     string
	limiter    *rate.Limiter
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Places base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero or negative disables the cap.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient builds the Google Maps client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		region:     defaultRegionCode,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Place is a geocoded address.
type Place struct {
	PlaceID          string    `json:"place_id"`
	FormattedAddress string    `json:"formatted_address"`
	Location         geo.Point `json:"location"`
}

// Suggestion is a single autocomplete prediction.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Geocode resolves a free-form address into coordinates using text search.
func (c *Client) Geocode(ctx context.Context, address string) (*Place, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	query := strings.TrimSpace(address)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	body := map[string]any{
		"textQuery":  query,
		"regionCode": c.region,
		"pageSize":   1,
	}
	var apiResp struct {
		Places []struct {
			ID               string `json:"id"`
			FormattedAddress string `json:"formattedAddress"`
			Location         struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"location"`
		} `json:"places"`
	}
	if err := c.post(ctx, "places:searchText", searchTextFieldMask, body, &apiResp); err != nil {
		return nil, err
	}
	if len(apiResp.Places) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address could not be located")
	}

	first := apiResp.Places[0]
	return &Place{
		PlaceID:          first.ID,
		FormattedAddress: first.FormattedAddress,
		Location:         geo.Point{Lat: first.Location.Latitude, Lng: first.Location.Longitude},
	}, nil
}

// Autocomplete returns address suggestions for partial input.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]Suggestion, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "autocomplete input is required")
	}

	body := map[string]any{
		"input":               trimmed,
		"includedRegionCodes": []string{c.region},
	}
	var apiResp struct {
		Suggestions []struct {
			Prediction struct {
				PlaceID string `json:"placeId"`
				Text    struct {
					Text string `json:"text"`
				} `json:"text"`
			} `json:"placePrediction"`
		} `json:"suggestions"`
	}
	if err := c.post(ctx, "places:autocomplete", autocompleteFieldMask, body, &apiResp); err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(apiResp.Suggestions))
	for _, s := range apiResp.Suggestions {
		out = append(out, Suggestion{PlaceID: s.Prediction.PlaceID, Description: s.Prediction.Text.Text})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path, fieldMask string, payload any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "maps rate limiter")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal maps request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build maps request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute maps request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"maps request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode maps response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}
