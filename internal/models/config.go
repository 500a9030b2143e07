package models

// Config holds the full application configuration. It is loaded once at
// startup and never mutated afterwards; every component receives the section
// it needs explicitly.
type Config struct {
	API      APIConfig     `json:"api"`
	Relay    RelayConfig   `json:"relay"`
	Gateway  GatewayConfig `json:"gateway"`
	Server   ServerConfig  `json:"server"`
	Ingest   IngestConfig  `json:"ingest"`
	Mail     MailConfig    `json:"mail"`
	Tracing  TracingConfig `json:"tracing"`
	LogLevel string        `json:"log_level"`
}

// APIConfig describes the backend ingress endpoint the relay posts to.
type APIConfig struct {
	BaseURL      string `json:"base_url"`
	Endpoint     string `json:"endpoint"`
	SharedSecret string `json:"shared_secret"`
	UserAgent    string `json:"user_agent"`
	TimeoutSec   int    `json:"timeout_sec"`
}

// RelayConfig holds the message filtering and forwarding policy.
type RelayConfig struct {
	AllowGroups   []string `json:"allow_groups"`
	BlockWords    []string `json:"block_words"`
	ForwardMedia  *bool    `json:"forward_media"`
	MediaMaxBytes int64    `json:"media_max_bytes"`
	QueueSize     int      `json:"queue_size"`
}

// ForwardMediaEnabled reports whether media forwarding is on. Unset means on.
func (c RelayConfig) ForwardMediaEnabled() bool {
	return c.ForwardMedia == nil || *c.ForwardMedia
}

// GatewayConfig describes the WhatsApp HTTP gateway the relay consumes
// events from.
type GatewayConfig struct {
	APIBaseURL    string `json:"api_base_url"`
	APIKey        string `json:"-"`
	SessionName   string `json:"session_name"`
	EventsURL     string `json:"events_url"`
	WebhookSecret string `json:"-"`
	TimeoutSec    int    `json:"timeout_sec"`
}

// ServerConfig holds HTTP server settings shared by both binaries.
type ServerConfig struct {
	Port             int             `json:"port"`
	ReadTimeoutSec   int             `json:"read_timeout_sec"`
	WriteTimeoutSec  int             `json:"write_timeout_sec"`
	IdleTimeoutSec   int             `json:"idle_timeout_sec"`
	IngestRateLimit  RateLimitConfig `json:"ingest_rate_limit"`
	ContactRateLimit RateLimitConfig `json:"contact_rate_limit"`
}

// RateLimitConfig bounds requests per source IP per sliding window.
type RateLimitConfig struct {
	MaxRequests int `json:"max_requests"`
	WindowSec   int `json:"window_sec"`
}

// IngestConfig holds ingress-side storage settings.
type IngestConfig struct {
	MediaDir string `json:"media_dir"`
}

// MailConfig holds the Microsoft Graph mailer settings for the contact form.
type MailConfig struct {
	TenantID     string `json:"tenant_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"`
	Sender       string `json:"sender"`
	To           string `json:"to"`
	Subject      string `json:"subject"`
}

// Configured reports whether the mailer has everything it needs.
func (c MailConfig) Configured() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != "" &&
		c.Sender != "" && c.To != ""
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}
