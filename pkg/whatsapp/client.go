// Package whatsapp is a minimal client for a WAHA-style WhatsApp HTTP
// gateway: contact and group lookups used for author name resolution, and a
// websocket event stream feeding the relay.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kawourelay/internal/constants"
	"kawourelay/internal/models"
)

// Directory resolves sender and group details from the gateway.
type Directory interface {
	GetContact(ctx context.Context, contactID string) (*models.Contact, error)
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
}

// ClientConfig configures the gateway client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	SessionName string
	Timeout     time.Duration
}

// Client talks to the gateway's REST API.
type Client struct {
	baseURL     string
	apiKey      string
	sessionName string
	httpClient  *http.Client
}

// NewClient creates a gateway client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultGatewayTimeoutSec * time.Second
	}

	session := cfg.SessionName
	if session == "" {
		session = constants.DefaultGatewaySessionName
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		sessionName: session,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// GetContact fetches one contact by its serialized ID.
func (c *Client) GetContact(ctx context.Context, contactID string) (*models.Contact, error) {
	endpoint := fmt.Sprintf("%s/api/contacts?contactId=%s&session=%s",
		c.baseURL, url.QueryEscape(contactID), url.QueryEscape(c.sessionName))

	var contact models.Contact
	if err := c.getJSON(ctx, endpoint, &contact); err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}
	return &contact, nil
}

// GetGroup fetches one group by its serialized ID.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	endpoint := fmt.Sprintf("%s/api/%s/groups/%s",
		c.baseURL, url.PathEscape(c.sessionName), url.PathEscape(groupID))

	var group models.Group
	if err := c.getJSON(ctx, endpoint, &group); err != nil {
		return nil, fmt.Errorf("failed to fetch group: %w", err)
	}
	return &group, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set(constants.GatewayAPIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
