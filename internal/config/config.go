package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"kawourelay/internal/constants"
	"kawourelay/internal/models"
	"kawourelay/internal/security"
)

// LoadConfig reads the JSON config file, fills defaults and applies
// environment overrides. The result is immutable for the process lifetime.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	return &config, nil
}

func applyDefaults(c *models.Config) {
	if c.API.Endpoint == "" {
		c.API.Endpoint = constants.DefaultAPIEndpoint
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = constants.DefaultUserAgent
	}
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = constants.DefaultAPITimeoutSec
	}

	if c.Relay.MediaMaxBytes <= 0 {
		c.Relay.MediaMaxBytes = constants.DefaultMediaMaxBytes
	}
	if c.Relay.QueueSize <= 0 {
		c.Relay.QueueSize = constants.DefaultQueueSize
	}

	if c.Gateway.SessionName == "" {
		c.Gateway.SessionName = constants.DefaultGatewaySessionName
	}
	if c.Gateway.TimeoutSec <= 0 {
		c.Gateway.TimeoutSec = constants.DefaultGatewayTimeoutSec
	}

	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultIdleTimeoutSec
	}
	if c.Server.IngestRateLimit.MaxRequests <= 0 {
		c.Server.IngestRateLimit.MaxRequests = constants.DefaultIngestRateLimit
	}
	if c.Server.IngestRateLimit.WindowSec <= 0 {
		c.Server.IngestRateLimit.WindowSec = constants.DefaultIngestRateWindowSec
	}
	if c.Server.ContactRateLimit.MaxRequests <= 0 {
		c.Server.ContactRateLimit.MaxRequests = constants.DefaultContactRateLimit
	}
	if c.Server.ContactRateLimit.WindowSec <= 0 {
		c.Server.ContactRateLimit.WindowSec = constants.DefaultContactRateWindowSec
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "kawourelay"
	}
	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 0.1
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("API_WHATSAPP_ENDPOINT"); v != "" {
		c.API.Endpoint = v
	}
	// SECURITY: secrets are expected to come from the environment.
	if v := os.Getenv("WHATSAPP_SHARED_SECRET"); v != "" {
		c.API.SharedSecret = v
	}

	if v := os.Getenv("ALLOW_GROUPS"); v != "" {
		c.Relay.AllowGroups = splitCSV(v, false)
	}
	if v := os.Getenv("BLOCK_WORDS"); v != "" {
		c.Relay.BlockWords = splitCSV(v, true)
	}
	if v := os.Getenv("FORWARD_MEDIA"); v != "" {
		enabled := v == "true"
		c.Relay.ForwardMedia = &enabled
	}
	if v := os.Getenv("MEDIA_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Relay.MediaMaxBytes = n
		}
	}

	if v := os.Getenv("WHATSAPP_API_URL"); v != "" {
		c.Gateway.APIBaseURL = v
	}
	if v := os.Getenv("WHATSAPP_API_KEY"); v != "" {
		c.Gateway.APIKey = v
	}
	if v := os.Getenv("WHATSAPP_WEBHOOK_SECRET"); v != "" {
		c.Gateway.WebhookSecret = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.Port = n
		}
	}

	if v := os.Getenv("STORE_MEDIA_DIR"); v != "" {
		c.Ingest.MediaDir = v
	}

	if v := os.Getenv("AZURE_TENANT_ID"); v != "" {
		c.Mail.TenantID = v
	}
	if v := os.Getenv("AZURE_CLIENT_ID"); v != "" {
		c.Mail.ClientID = v
	}
	if v := os.Getenv("AZURE_CLIENT_SECRET"); v != "" {
		c.Mail.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_SENDER"); v != "" {
		c.Mail.Sender = v
	}
	if v := os.Getenv("MAIL_TO"); v != "" {
		c.Mail.To = v
	}
	if v := os.Getenv("MAIL_SUBJECT"); v != "" {
		c.Mail.Subject = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries. Block words are matched case-insensitively, so they are
// lower-cased on the way in.
func splitCSV(s string, lower bool) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if lower {
			p = strings.ToLower(p)
		}
		out = append(out, p)
	}
	return out
}
