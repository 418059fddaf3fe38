package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "FARMERSBRACKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	CardProcessorStripe = "stripe"
	CardProcessorSquare = "square"
)

const (
	EnvAppEnv                 = "FARMERSBRACKET_APP_ENV"
	EnvPort                   = "FARMERSBRACKET_APP_PORT"
	EnvDBDSN                  = "FARMERSBRACKET_DB_DSN"
	EnvDBHost                 = "FARMERSBRACKET_DB_HOST"
	EnvDBUser                 = "FARMERSBRACKET_DB_USER"
	EnvDBName                 = "FARMERSBRACKET_DB_NAME"
	EnvRedisURL               = "FARMERSBRACKET_REDIS_URL"
	EnvJWTSecret              = "FARMERSBRACKET_JWT_SECRET"
	EnvJWTIssuer              = "FARMERSBRACKET_JWT_ISSUER"
	EnvJWTExpMins             = "FARMERSBRACKET_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "FARMERSBRACKET_REFRESH_TOKEN_TTL_MINUTES"
	EnvBaseDeliveryFee        = "FARMERSBRACKET_CHECKOUT_BASE_DELIVERY_FEE_CENTS"
	EnvDeliverySlots          = "FARMERSBRACKET_CHECKOUT_DELIVERY_SLOTS"
	EnvCardProcessor          = "FARMERSBRACKET_CARD_PROCESSOR"
	EnvDashboardRetries       = "FARMERSBRACKET_DASHBOARD_RETRY_ATTEMPTS"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
