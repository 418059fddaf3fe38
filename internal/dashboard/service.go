package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/internal/products"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

const (
	defaultFeaturedLimit = 8
	defaultRecentLimit   = 5
)

type featuredSource interface {
	Featured(ctx context.Context, limit int) ([]products.ProductDTO, error)
}

type orderHistory interface {
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[orders.OrderSummaryDTO], error)
}

type unreadCounter interface {
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type itemCounter interface {
	Count(ctx context.Context, userID uuid.UUID) (int, error)
}

// Snapshot is everything the home screen renders after sign-in.
type Snapshot struct {
	Featured      []products.ProductDTO    `json:"featured"`
	RecentOrders  []orders.OrderSummaryDTO `json:"recent_orders"`
	UnreadCount   int64                    `json:"unread_notifications"`
	WishlistCount int                      `json:"wishlist_count"`
	CartCount     int                      `json:"cart_count"`
	RefreshedAt   time.Time                `json:"refreshed_at"`
}

// Service assembles the dashboard.
type Service interface {
	RefreshDashboard(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
}

// ServiceParams wires the dashboard sources.
type ServiceParams struct {
	Products      featuredSource
	Orders        orderHistory
	Notifications unreadCounter
	Wishlist      itemCounter
	Cart          itemCounter
	Retry         RetryPolicy
	FeaturedLimit int
	RecentLimit   int
	Logger        *logger.Logger
}

type service struct {
	products      featuredSource
	orders        orderHistory
	notifications unreadCounter
	wishlist      itemCounter
	cart          itemCounter
	retry         RetryPolicy
	featuredLimit int
	recentLimit   int
	logg          *logger.Logger
	now           func() time.Time
}

// NewService validates the dashboard dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("featured product source required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order history required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification counter required")
	}
	if params.Wishlist == nil || params.Cart == nil {
		return nil, fmt.Errorf("wishlist and cart counters required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.FeaturedLimit <= 0 {
		params.FeaturedLimit = defaultFeaturedLimit
	}
	if params.RecentLimit <= 0 {
		params.RecentLimit = defaultRecentLimit
	}
	return &service{
		products:      params.Products,
		orders:        params.Orders,
		notifications: params.Notifications,
		wishlist:      params.Wishlist,
		cart:          params.Cart,
		retry:         params.Retry.normalize(),
		featuredLimit: params.FeaturedLimit,
		recentLimit:   params.RecentLimit,
		logg:          params.Logger,
		now:           time.Now,
	}, nil
}

func (s *service) RefreshDashboard(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ctx = s.logg.WithUserID(ctx, userID.String())

	var featured []products.ProductDTO
	err := s.retry.Do(ctx, func(attempt int) error {
		items, err := s.products.Featured(ctx, s.featuredLimit)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "dashboard featured fetch failed")
			return err
		}
		featured = items
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load featured products")
	}

	snapshot := &Snapshot{Featured: featured, RefreshedAt: s.now().UTC()}
	var errs error

	page, err := s.orders.History(ctx, userID, pagination.Params{Limit: s.recentLimit})
	if err != nil {
		errs = multierr.Append(errs, err)
	} else {
		snapshot.RecentOrders = page.Items
	}
	if snapshot.UnreadCount, err = s.notifications.UnreadCount(ctx, userID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if snapshot.WishlistCount, err = s.wishlist.Count(ctx, userID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if snapshot.CartCount, err = s.cart.Count(ctx, userID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "refresh dashboard")
	}
	if snapshot.RecentOrders == nil {
		snapshot.RecentOrders = []orders.OrderSummaryDTO{}
	}
	return snapshot, nil
}
