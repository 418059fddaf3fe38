package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmersbracket/farmersbracket-backend/api/controllers"
	"github.com/farmersbracket/farmersbracket-backend/api/routes"
	"github.com/farmersbracket/farmersbracket-backend/internal/address"
	"github.com/farmersbracket/farmersbracket-backend/internal/auth"
	"github.com/farmersbracket/farmersbracket-backend/internal/cart"
	"github.com/farmersbracket/farmersbracket-backend/internal/chats"
	"github.com/farmersbracket/farmersbracket-backend/internal/checkout"
	"github.com/farmersbracket/farmersbracket-backend/internal/dashboard"
	"github.com/farmersbracket/farmersbracket-backend/internal/farmers"
	"github.com/farmersbracket/farmersbracket-backend/internal/farms"
	"github.com/farmersbracket/farmersbracket-backend/internal/notifications"
	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/internal/payments"
	"github.com/farmersbracket/farmersbracket-backend/internal/products"
	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
	"github.com/farmersbracket/farmersbracket-backend/internal/reviews"
	"github.com/farmersbracket/farmersbracket-backend/internal/users"
	squarewebhook "github.com/farmersbracket/farmersbracket-backend/internal/webhooks/square"
	stripewebhook "github.com/farmersbracket/farmersbracket-backend/internal/webhooks/stripe"
	"github.com/farmersbracket/farmersbracket-backend/internal/wishlist"
	"github.com/farmersbracket/farmersbracket-backend/pkg/auth/session"
	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/maps"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/idempotency"
	"github.com/farmersbracket/farmersbracket-backend/pkg/payfast"
	"github.com/farmersbracket/farmersbracket-backend/pkg/redis"
	pkgsquare "github.com/farmersbracket/farmersbracket-backend/pkg/square"
	pkgstripe "github.com/farmersbracket/farmersbracket-backend/pkg/stripe"
)

// wire builds every service the router needs. Optional providers (maps,
// Stripe, Square, PayFast) are skipped when unconfigured and their routes
// answer with an internal error.
func wire(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (routes.Deps, error) {
	deps := routes.Deps{
		Config: cfg,
		Logger: logg,
		Store:  redisClient,
		Ready: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
	}
	conn := dbClient.DB()
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return deps, fmt.Errorf("session manager: %w", err)
	}
	deps.Sessions = sessions

	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	usersRepo := users.NewRepository(conn)

	deps.Auth, err = auth.NewService(auth.ServiceParams{
		Tx:          dbClient,
		Users:       usersRepo,
		Sessions:    sessions,
		Tokens:      redisClient,
		Outbox:      outboxService,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
		PublicURL:   cfg.App.PublicURL,
		Logger:      logg,
	})
	if err != nil {
		return deps, fmt.Errorf("auth service: %w", err)
	}

	var mapsClient *maps.Client
	if key := strings.TrimSpace(cfg.GoogleMaps.APIKey); key != "" {
		mapsClient, err = maps.NewClient(key, maps.WithRateLimit(cfg.GoogleMaps.RequestsPerSecond))
		if err != nil {
			return deps, fmt.Errorf("maps client: %w", err)
		}
		deps.Address = address.NewService(mapsClient)
	} else {
		logg.Warn(ctx, "google maps api key not set; address lookup disabled")
	}

	productsRepo := products.NewRepository(conn)
	var geocoder products.Geocoder
	if mapsClient != nil {
		geocoder = mapsClient
	}
	if deps.Products, err = products.NewService(productsRepo, geocoder); err != nil {
		return deps, fmt.Errorf("products service: %w", err)
	}
	if deps.Reviews, err = reviews.NewService(reviews.NewRepository(conn), productsRepo, usersRepo); err != nil {
		return deps, fmt.Errorf("reviews service: %w", err)
	}
	farmsRepo := farms.NewRepository(conn)
	if deps.Farms, err = farms.NewService(farmsRepo); err != nil {
		return deps, fmt.Errorf("farms service: %w", err)
	}
	if deps.Farmers, err = farmers.NewService(farmers.NewRepository(conn), productsRepo, usersRepo); err != nil {
		return deps, fmt.Errorf("farmers service: %w", err)
	}

	cartStore, err := cart.NewStore(redisClient, cfg.Redis.CartTTL)
	if err != nil {
		return deps, fmt.Errorf("cart store: %w", err)
	}
	if deps.Cart, err = cart.NewService(cartStore, productsRepo); err != nil {
		return deps, fmt.Errorf("cart service: %w", err)
	}
	wishlistStore, err := wishlist.NewStore(redisClient, cfg.Redis.CartTTL)
	if err != nil {
		return deps, fmt.Errorf("wishlist store: %w", err)
	}
	if deps.Wishlist, err = wishlist.NewService(wishlistStore, productsRepo, deps.Cart); err != nil {
		return deps, fmt.Errorf("wishlist service: %w", err)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(conn), dbClient, outboxService, redisClient, logg)
	if err != nil {
		return deps, fmt.Errorf("notifications service: %w", err)
	}
	deps.Notifications = notificationsService
	if deps.Feed, err = notifications.NewRedisFeed(redisClient); err != nil {
		return deps, fmt.Errorf("notification feed: %w", err)
	}

	ordersRepo := orders.NewRepository(conn)
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Farms:    farmsRepo,
		Notifier: notificationsService,
		Logger:   logg,
	})
	if err != nil {
		return deps, fmt.Errorf("orders service: %w", err)
	}
	deps.Orders = ordersService

	var processors payments.CardProcessors
	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return deps, fmt.Errorf("stripe client: %w", err)
		}
		processors.Stripe = stripeClient
		deps.StripeClient = stripeClient
	}
	if strings.TrimSpace(cfg.Square.AccessToken) != "" {
		squareClient, err := pkgsquare.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return deps, fmt.Errorf("square client: %w", err)
		}
		processors.Square = squareClient
		deps.SquareClient = squareClient
	}
	card, err := payments.NewCardGateway(ctx, cfg, processors, logg)
	if err != nil {
		return deps, fmt.Errorf("card gateway: %w", err)
	}

	var linker checkout.PayFastLinker
	if strings.TrimSpace(cfg.PayFast.MerchantID) != "" {
		payfastClient, err := payfast.NewClient(cfg.PayFast)
		if err != nil {
			return deps, fmt.Errorf("payfast client: %w", err)
		}
		linker = payfastClient
		if deps.PayFast, err = payments.NewPayFastService(ordersService, payfastClient, checkoutMetrics, logg); err != nil {
			return deps, fmt.Errorf("payfast service: %w", err)
		}
	} else {
		logg.Warn(ctx, "payfast merchant not configured; payfast checkout disabled")
	}

	deps.Checkout, err = checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Orders:   ordersRepo,
		Payments: ordersService,
		Cart:     cartStore,
		Products: productsRepo,
		Outbox:   outboxService,
		Notifier: notificationsService,
		Card:     card,
		Wallet:   payments.SimulatedWallet{},
		PayFast:  linker,
		Pricing:  checkout.PricingFromConfig(cfg.Checkout),
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		return deps, fmt.Errorf("checkout service: %w", err)
	}

	if deps.StripeWebhook, err = stripewebhook.NewService(stripewebhook.ServiceParams{Orders: ordersService, Metrics: checkoutMetrics, Logger: logg}); err != nil {
		return deps, fmt.Errorf("stripe webhook service: %w", err)
	}
	if deps.SquareWebhook, err = squarewebhook.NewService(squarewebhook.ServiceParams{Orders: ordersService, Metrics: checkoutMetrics, Logger: logg}); err != nil {
		return deps, fmt.Errorf("square webhook service: %w", err)
	}
	if deps.WebhookGuard, err = idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL); err != nil {
		return deps, fmt.Errorf("webhook guard: %w", err)
	}

	if deps.Chats, err = chats.NewService(chats.ServiceParams{
		Repo:     chats.NewRepository(conn),
		Users:    usersRepo,
		Notifier: notificationsService,
		Logger:   logg,
	}); err != nil {
		return deps, fmt.Errorf("chats service: %w", err)
	}

	if deps.Dashboard, err = dashboard.NewService(dashboard.ServiceParams{
		Products:      deps.Products,
		Orders:        ordersService,
		Notifications: notificationsService,
		Wishlist:      wishlistStore,
		Cart:          cartStore,
		Retry:         dashboard.RetryPolicy{Retries: cfg.Dashboard.RetryAttempts, Step: cfg.Dashboard.RetryBackoffStep},
		FeaturedLimit: cfg.Dashboard.FeaturedLimit,
		RecentLimit:   cfg.Dashboard.RecentOrderLimit,
		Logger:        logg,
	}); err != nil {
		return deps, fmt.Errorf("dashboard service: %w", err)
	}

	if deps.Reports, err = reports.NewService(reports.NewRepository(conn)); err != nil {
		return deps, fmt.Errorf("reports service: %w", err)
	}

	return deps, nil
}
