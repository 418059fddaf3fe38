package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Checkout      CheckoutConfig
	Card          CardConfig
	Stripe        StripeConfig
	Square        SquareConfig
	PayFast       PayFastConfig
	GoogleMaps    GoogleMapsConfig
	Dashboard     DashboardConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Eventing      EventingConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Card.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FARMERSBRACKET_APP_ENV" required:"true"`
	Port         string   `envconfig:"FARMERSBRACKET_APP_PORT" required:"true"`
	PublicURL    string   `envconfig:"FARMERSBRACKET_PUBLIC_URL" default:"http://localhost:5173"`
	CORSOrigins  []string `envconfig:"FARMERSBRACKET_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel     string   `envconfig:"FARMERSBRACKET_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"FARMERSBRACKET_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"FARMERSBRACKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FARMERSBRACKET_SERVICE_KIND" default:"api"`

	// MetricsAddr enables a /metrics listener on background workers.
	MetricsAddr string `envconfig:"FARMERSBRACKET_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"FARMERSBRACKET_DB_DSN"`
	Driver string `envconfig:"FARMERSBRACKET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FARMERSBRACKET_DB_HOST"`
	Port     int    `envconfig:"FARMERSBRACKET_DB_PORT" default:"5432"`
	User     string `envconfig:"FARMERSBRACKET_DB_USER"`
	Password string `envconfig:"FARMERSBRACKET_DB_PASSWORD"`
	Name     string `envconfig:"FARMERSBRACKET_DB_NAME"`
	SSLMode  string `envconfig:"FARMERSBRACKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMERSBRACKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMERSBRACKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMERSBRACKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMERSBRACKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"FARMERSBRACKET_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMERSBRACKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FARMERSBRACKET_REDIS_ADDR"`
	Password     string        `envconfig:"FARMERSBRACKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMERSBRACKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMERSBRACKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMERSBRACKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMERSBRACKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMERSBRACKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMERSBRACKET_REDIS_WRITE_TIMEOUT" default:"5s"`
	// CartTTL bounds how long an idle cart or wishlist survives in Redis.
	CartTTL time.Duration `envconfig:"FARMERSBRACKET_REDIS_CART_TTL" default:"720h"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FARMERSBRACKET_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FARMERSBRACKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FARMERSBRACKET_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FARMERSBRACKET_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int           `envconfig:"FARMERSBRACKET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int           `envconfig:"FARMERSBRACKET_ARGON_TIME" default:"3"`
	ArgonParallelism int           `envconfig:"FARMERSBRACKET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int           `envconfig:"FARMERSBRACKET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"FARMERSBRACKET_ARGON_KEY_LEN" default:"32"`
	ResetTokenTTL    time.Duration `envconfig:"FARMERSBRACKET_PASSWORD_RESET_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FARMERSBRACKET_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FARMERSBRACKET_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FARMERSBRACKET_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FARMERSBRACKET_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FARMERSBRACKET_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FARMERSBRACKET_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"FARMERSBRACKET_AUTO_MIGRATE" default:"false"`
	SimulateCards bool `envconfig:"FARMERSBRACKET_SIMULATE_CARDS" default:"false"`
}

// CheckoutConfig holds the pricing knobs used when totalling a cart.
type CheckoutConfig struct {
	BaseDeliveryFeeCents int64  `envconfig:"FARMERSBRACKET_CHECKOUT_BASE_DELIVERY_FEE_CENTS" default:"2000"`
	Currency             string `envconfig:"FARMERSBRACKET_CHECKOUT_CURRENCY" default:"ZAR"`

	// DeliverySlots maps slot name to surcharge cents, e.g. "standard:0,express:1500".
	DeliverySlots map[string]int64 `envconfig:"FARMERSBRACKET_CHECKOUT_DELIVERY_SLOTS" default:"standard:0,express:1500,evening:500"`
}

func (c CheckoutConfig) validate() error {
	if c.BaseDeliveryFeeCents < 0 {
		return fmt.Errorf("%s must not be negative", EnvBaseDeliveryFee)
	}
	for slot, cents := range c.DeliverySlots {
		if cents < 0 {
			return fmt.Errorf("delivery slot %q has a negative surcharge", slot)
		}
	}
	return nil
}

// CardConfig selects which processor backs card payments.
type CardConfig struct {
	Processor string `envconfig:"FARMERSBRACKET_CARD_PROCESSOR" default:"stripe"`
}

func (c CardConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Processor)) {
	case CardProcessorStripe, CardProcessorSquare:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCardProcessor, CardProcessorStripe, CardProcessorSquare)
	}
}

// Name returns the normalized processor name.
func (c CardConfig) Name() string {
	return strings.ToLower(strings.TrimSpace(c.Processor))
}

type StripeConfig struct {
	APIKey string `envconfig:"FARMERSBRACKET_STRIPE_API_KEY"`
	Secret string `envconfig:"FARMERSBRACKET_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"FARMERSBRACKET_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SquareConfig struct {
	AccessToken         string `envconfig:"FARMERSBRACKET_SQUARE_ACCESS_TOKEN"`
	LocationID          string `envconfig:"FARMERSBRACKET_SQUARE_LOCATION_ID"`
	Env                 string `envconfig:"FARMERSBRACKET_SQUARE_ENV" default:"sandbox"`
	WebhookSignatureKey string `envconfig:"FARMERSBRACKET_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookURL          string `envconfig:"FARMERSBRACKET_SQUARE_WEBHOOK_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type PayFastConfig struct {
	MerchantID  string `envconfig:"FARMERSBRACKET_PAYFAST_MERCHANT_ID"`
	MerchantKey string `envconfig:"FARMERSBRACKET_PAYFAST_MERCHANT_KEY"`
	Passphrase  string `envconfig:"FARMERSBRACKET_PAYFAST_PASSPHRASE"`
	Sandbox     bool   `envconfig:"FARMERSBRACKET_PAYFAST_SANDBOX" default:"true"`
	ReturnURL   string `envconfig:"FARMERSBRACKET_PAYFAST_RETURN_URL"`
	CancelURL   string `envconfig:"FARMERSBRACKET_PAYFAST_CANCEL_URL"`
	NotifyURL   string `envconfig:"FARMERSBRACKET_PAYFAST_NOTIFY_URL"`
}

type GoogleMapsConfig struct {
	APIKey            string  `envconfig:"FARMERSBRACKET_GOOGLE_MAPS_API_KEY"`
	RequestsPerSecond float64 `envconfig:"FARMERSBRACKET_GOOGLE_MAPS_RPS" default:"5"`
}

// DashboardConfig controls the retry loop around the dashboard product fetch.
type DashboardConfig struct {
	RetryAttempts    int           `envconfig:"FARMERSBRACKET_DASHBOARD_RETRY_ATTEMPTS" default:"2"`
	RetryBackoffStep time.Duration `envconfig:"FARMERSBRACKET_DASHBOARD_RETRY_BACKOFF" default:"500ms"`
	FeaturedLimit    int           `envconfig:"FARMERSBRACKET_DASHBOARD_FEATURED_LIMIT" default:"8"`
	RecentOrderLimit int           `envconfig:"FARMERSBRACKET_DASHBOARD_RECENT_ORDERS_LIMIT" default:"5"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FARMERSBRACKET_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FARMERSBRACKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FARMERSBRACKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"FARMERSBRACKET_PUBSUB_ORDERS_TOPIC" default:"fb-order-events"`
	NotificationTopic        string `envconfig:"FARMERSBRACKET_PUBSUB_NOTIFICATION_TOPIC" default:"fb-notification-events"`
	AuthTopic                string `envconfig:"FARMERSBRACKET_PUBSUB_AUTH_TOPIC" default:"fb-auth-events"`
	AnalyticsSubscription    string `envconfig:"FARMERSBRACKET_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"fb-order-events-analytics"`
	FarmerAlertsSubscription string `envconfig:"FARMERSBRACKET_PUBSUB_FARMER_ALERTS_SUBSCRIPTION" default:"fb-order-events-farmer-alerts"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"FARMERSBRACKET_BIGQUERY_DATASET" default:"farmersbracket"`
	OrderEventsTable string `envconfig:"FARMERSBRACKET_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FARMERSBRACKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"FARMERSBRACKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"FARMERSBRACKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"FARMERSBRACKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"FARMERSBRACKET_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval               time.Duration `envconfig:"FARMERSBRACKET_CRON_INTERVAL" default:"15m"`
	LockTTL                time.Duration `envconfig:"FARMERSBRACKET_CRON_LOCK_TTL" default:"10m"`
	JobTimeout             time.Duration `envconfig:"FARMERSBRACKET_CRON_JOB_TIMEOUT" default:"5m"`
	PendingOrderTTL        time.Duration `envconfig:"FARMERSBRACKET_PENDING_ORDER_TTL" default:"48h"`
	OutboxRetentionDays    int           `envconfig:"FARMERSBRACKET_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetainDays int           `envconfig:"FARMERSBRACKET_NOTIFICATION_RETENTION_DAYS" default:"90"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
