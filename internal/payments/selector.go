package payments

import (
	"context"
	"fmt"

	"github.com/farmersbracket/farmersbracket-backend/internal/checkout"
	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	pkgsquare "github.com/farmersbracket/farmersbracket-backend/pkg/square"
	pkgstripe "github.com/farmersbracket/farmersbracket-backend/pkg/stripe"
)

// CardProcessors holds the initialized processor clients. Only the one
// selected by config needs to be set.
type CardProcessors struct {
	Stripe *pkgstripe.Client
	Square *pkgsquare.Client
}

// NewCardGateway picks the card gateway from config. The simulated gateway
// wins when the feature flag is on.
func NewCardGateway(ctx context.Context, cfg *config.Config, processors CardProcessors, logg *logger.Logger) (checkout.CardGateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if cfg.FeatureFlags.SimulateCards {
		if logg != nil {
			logg.Warn(ctx, "card payments are simulated")
		}
		return SimulatedCard{}, nil
	}
	switch cfg.Card.Name() {
	case config.CardProcessorStripe:
		if processors.Stripe == nil {
			return nil, fmt.Errorf("stripe selected as card processor but not configured")
		}
		return NewStripeGateway(processors.Stripe)
	case config.CardProcessorSquare:
		if processors.Square == nil {
			return nil, fmt.Errorf("square selected as card processor but not configured")
		}
		return NewSquareGateway(processors.Square)
	default:
		return nil, fmt.Errorf("unknown card processor %q", cfg.Card.Processor)
	}
}
