package constants

// Default server configuration values
const (
	DefaultServerPort            = 8084
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultWebhookMaxBodyBytes   = 1 << 20
	ServerErrorChannelSize       = 1
)

// Default Graph API configuration values
const (
	DefaultGraphAPIVersion = "v23.0"
	DefaultGraphBaseURL    = "https://graph.facebook.com"
	DefaultGraphTimeoutSec = 10
)

// Message listing limits
const (
	DefaultMessageListLimit = 50
	MaxMessageListLimit     = 200
)

// Default retry/backoff values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultDatabaseRetryAttempts = 3
	DefaultBackoffInitialMs      = 500
)

// Secret strength requirements
const (
	MinPassphraseLength = 32
	MinSecretLength     = 16
)
