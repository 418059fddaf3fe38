package address

import (
	"context"
	"strings"

	"github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
	"github.com/farmersbracket/farmersbracket-backend/pkg/maps"
)

const minQueryLength = 3

// placesClient is satisfied by *maps.Client.
type placesClient interface {
	Autocomplete(ctx context.Context, input string) ([]maps.Suggestion, error)
	Geocode(ctx context.Context, address string) (*maps.Place, error)
}

// Service backs the checkout address field.
type Service interface {
	Suggest(ctx context.Context, query string) ([]maps.Suggestion, error)
	Locate(ctx context.Context, address string) (*Location, error)
}

// Location is a delivery address resolved to coordinates.
type Location struct {
	PlaceID          string    `json:"place_id"`
	FormattedAddress string    `json:"formatted_address"`
	Point            geo.Point `json:"point"`
}

type service struct {
	maps placesClient
}

// NewService accepts a nil client; every call then fails with a dependency
// error so the API can still boot without a maps key.
func NewService(client placesClient) Service {
	return &service{maps: client}
}

func (s *service) Suggest(ctx context.Context, query string) ([]maps.Suggestion, error) {
	if s.maps == nil {
		return nil, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return nil, errors.Validation(errors.FieldErrors{"query": "must be at least 3 characters"})
	}
	suggestions, err := s.maps.Autocomplete(ctx, query)
	if err != nil {
		return nil, wrapLookup(err, "autocomplete address")
	}
	if suggestions == nil {
		suggestions = []maps.Suggestion{}
	}
	return suggestions, nil
}

func (s *service) Locate(ctx context.Context, address string) (*Location, error) {
	if s.maps == nil {
		return nil, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.Validation(errors.FieldErrors{"address": "is required"})
	}
	place, err := s.maps.Geocode(ctx, address)
	if err != nil {
		return nil, wrapLookup(err, "geocode address")
	}
	return &Location{
		PlaceID:          place.PlaceID,
		FormattedAddress: place.FormattedAddress,
		Point:            place.Location,
	}, nil
}

func wrapLookup(err error, msg string) error {
	if errors.As(err) != nil {
		return err
	}
	return errors.Wrap(errors.CodeDependency, err, msg)
}
