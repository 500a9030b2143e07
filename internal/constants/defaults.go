package constants

// Default relay configuration values
const (
	DefaultAPIEndpoint   = "/api/whatsapp"
	DefaultAPITimeoutSec = 10
	DefaultUserAgent     = "kawourelay/1.0.0"
	DefaultMediaMaxBytes = 5 * 1024 * 1024
	DefaultQueueSize     = 100
	GroupIDSuffix        = "@g.us"
	UnknownAuthorName    = "Unknown user"
	EnvelopeProvider     = "whatsapp"
)

// HTTP header names on the relay wire contract
const (
	SharedSecretHeader     = "X-WhatsApp-Secret"
	GatewayAPIKeyHeader    = "X-Api-Key"
	GatewayHmacHeader      = "X-Webhook-Hmac"
	GatewayTimestampHeader = "X-Webhook-Timestamp"
)

// Default gateway (WAHA) configuration values
const (
	DefaultGatewaySessionName = "default"
	DefaultGatewayTimeoutSec  = 30
	MaxMediaDownloadBytes     = 64 * 1024 * 1024
)

// Default server configuration values
const (
	DefaultRelayServerPort = 8082
	DefaultAPIServerPort   = 4000
	DefaultReadTimeoutSec  = 15
	DefaultWriteTimeoutSec = 15
	DefaultIdleTimeoutSec  = 60
	DefaultShutdownSec     = 30
	DefaultMaxRequestBytes = 16 * 1024 * 1024
	ServerErrorChannelSize = 1
)

// Default ingress rate limits, per source IP
const (
	DefaultIngestRateLimit      = 50
	DefaultIngestRateWindowSec  = 300
	DefaultContactRateLimit     = 5
	DefaultContactRateWindowSec = 900
)

// Privacy settings for log masking
const (
	DefaultMaskVisibleChars = 4
	DefaultMessageIDLength  = 8
)
