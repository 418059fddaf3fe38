package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/farmersbracket/farmersbracket-backend/api/controllers"
	webhookcontrollers "github.com/farmersbracket/farmersbracket-backend/api/controllers/webhooks"
	"github.com/farmersbracket/farmersbracket-backend/api/middleware"
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
	"github.com/farmersbracket/farmersbracket-backend/internal/products"
	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
	"github.com/farmersbracket/farmersbracket-backend/internal/reviews"
	"github.com/farmersbracket/farmersbracket-backend/internal/wishlist"
	"github.com/farmersbracket/farmersbracket-backend/pkg/auth/session"
	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

// Store is the Redis surface the HTTP layer needs for replay protection and
// rate limiting. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// DeliveryGuard dedupes webhook deliveries. *idempotency.Manager satisfies it.
type DeliveryGuard interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

type StripeVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type SquareSigner interface {
	SigningSecret() string
	NotificationURL() string
}

// Deps carries everything the router wires into handlers. Nil services yield
// handlers that answer with an internal error, so partial wiring still boots.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Store    Store
	Sessions session.AccessSessionChecker
	Ready    map[string]controllers.Pinger
	Metrics  prometheus.Gatherer

	Auth          auth.Service
	Products      products.Service
	Reviews       reviews.Service
	Farms         farms.Service
	Farmers       farmers.Service
	Cart          cart.Service
	Wishlist      wishlist.Service
	Checkout      checkout.Service
	Orders        orders.Service
	PayFast       controllers.PayFastHandler
	Address       address.Service
	Notifications notifications.Service
	Feed          notifications.Feed
	Chats         chats.Service
	Dashboard     dashboard.Service
	Reports       reports.Service

	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeClient  StripeVerifier
	SquareWebhook webhookcontrollers.SquareWebhookService
	SquareClient  SquareSigner
	WebhookGuard  DeliveryGuard
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// Typed nils must not reach the middlewares' nil checks.
	var (
		limiter    rateLimiter
		replays    replayStore
		guard      DeliveryGuard
		stripeAuth StripeVerifier
		squareAuth SquareSigner
	)
	if d.Store != nil {
		limiter, replays = d.Store, d.Store
	}
	if d.WebhookGuard != nil {
		guard = d.WebhookGuard
	}
	if d.StripeClient != nil {
		stripeAuth = d.StripeClient
	}
	if d.SquareClient != nil {
		squareAuth = d.SquareClient
	}

	loginPolicy := middleware.RateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.RateLimitPolicy{
		Name:       "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    cfg.AuthRateLimit.RegisterIPLimit,
		EmailLimit: cfg.AuthRateLimit.RegisterEmailLimit,
	}
	recoveryPolicy := registerPolicy
	recoveryPolicy.Name = "recovery"

	authenticate := middleware.Auth(cfg.JWT, d.Sessions, logg)
	idempotent := middleware.Idempotency(replays, middleware.DefaultIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, d.Ready, logg))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(registerPolicy, limiter, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.With(middleware.RateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, cfg.JWT, logg))
		r.With(middleware.RateLimit(recoveryPolicy, limiter, logg)).Post("/forgot-password", controllers.AuthForgotPassword(d.Auth, logg))
		r.With(middleware.RateLimit(recoveryPolicy, limiter, logg)).Post("/resend-confirmation", controllers.AuthResendConfirmation(d.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(d.Auth, logg))
		r.Post("/confirm-email", controllers.AuthConfirmEmail(d.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
			r.Get("/session", controllers.AuthSession(d.Auth, logg))
		})
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.StripeWebhook, stripeAuth, guard, logg))
		r.Post("/square", webhookcontrollers.SquareWebhook(d.SquareWebhook, squareAuth, guard, logg))
		r.Post("/payfast", controllers.PayFastNotify(d.PayFast, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.BrowseProducts(d.Products, logg))
			r.Get("/featured", controllers.FeaturedProducts(d.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(d.Products, logg))
			r.Get("/{productId}/reviews", controllers.ProductReviews(d.Reviews, logg))
			r.Get("/{productId}/reviews/summary", controllers.ProductReviewSummary(d.Reviews, logg))
			r.With(authenticate).Post("/{productId}/reviews", controllers.CreateReview(d.Reviews, logg))
		})
		r.Route("/farms", func(r chi.Router) {
			r.Get("/", controllers.ListFarms(d.Farms, logg))
			r.Get("/nearby", controllers.NearbyFarms(d.Farms, logg))
			r.Get("/{farmId}", controllers.GetFarm(d.Farms, logg))
		})
		r.Get("/farmers/{farmerId}", controllers.FarmerProfile(d.Farmers, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/dashboard", controllers.Dashboard(d.Dashboard, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.Cart, logg))
				r.Post("/items", controllers.CartAddItem(d.Cart, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(d.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(d.Cart, logg))
				r.Delete("/", controllers.CartClear(d.Cart, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistFetch(d.Wishlist, logg))
				r.Delete("/", controllers.WishlistClear(d.Wishlist, logg))
				r.Post("/move-to-cart", controllers.WishlistMoveToCart(d.Wishlist, logg))
				r.Put("/{productId}", controllers.WishlistAdd(d.Wishlist, logg))
				r.Get("/{productId}", controllers.WishlistContains(d.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(d.Wishlist, logg))
			})

			r.Route("/address", func(r chi.Router) {
				r.Get("/suggest", controllers.AddressSuggest(d.Address, logg))
				r.Get("/locate", controllers.AddressLocate(d.Address, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/quote", controllers.CheckoutQuote(d.Checkout, logg))
				r.With(idempotent).Post("/", controllers.CheckoutSubmit(d.Checkout, logg))
			})

			r.Route("/payments/payfast", func(r chi.Router) {
				r.Get("/success", controllers.PayFastSuccess(d.PayFast, logg))
				r.Get("/cancel", controllers.PayFastCancel(d.PayFast, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderHistory(d.Orders, logg))
				r.Get("/{orderId}", controllers.OrderTrack(d.Orders, logg))
				r.Get("/{orderId}/receipt", controllers.OrderReceipt(d.Orders, cfg.App.PublicURL, logg))
				r.With(idempotent).Post("/{orderId}/confirm-payment", controllers.CheckoutConfirmPayment(d.Checkout, logg))
				r.With(middleware.RequireRole(logg, enums.RoleFarmer, enums.RoleAdmin)).
					Patch("/{orderId}/status", controllers.OrderUpdateStatus(d.Orders, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.NotificationsList(d.Notifications, logg))
				r.Get("/unread-count", controllers.NotificationsUnreadCount(d.Notifications, logg))
				r.Get("/stream", controllers.NotificationsStream(d.Feed, cfg.App.CORSOrigins, logg))
				r.Post("/read-all", controllers.NotificationsMarkAllRead(d.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.NotificationsMarkRead(d.Notifications, logg))
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", controllers.ChatList(d.Chats, logg))
				r.Post("/", controllers.ChatOpen(d.Chats, logg))
				r.Get("/{chatId}/messages", controllers.ChatMessages(d.Chats, logg))
				r.Post("/{chatId}/messages", controllers.ChatSend(d.Chats, logg))
				r.Post("/{chatId}/read", controllers.ChatMarkRead(d.Chats, logg))
			})

			r.Get("/reports", controllers.Report(d.Reports, logg))
		})
	})

	return r
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type replayStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}
