// Package apiclient posts normalized envelopes to the backend ingress
// endpoint. It is a best-effort sender: one attempt, a bounded timeout and a
// uniform result shape for every failure mode.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kawourelay/internal/constants"
	"kawourelay/internal/models"

	"github.com/sirupsen/logrus"
)

// Client sends envelopes to the configured ingress endpoint.
type Client struct {
	url        string
	secret     string
	userAgent  string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient builds a client from the API section of the configuration. The
// base URL's trailing slash is stripped before concatenation with the
// endpoint path.
func NewClient(cfg models.APIConfig, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = constants.DefaultAPITimeoutSec * time.Second
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}

	return &Client{
		url:        strings.TrimSuffix(cfg.BaseURL, "/") + cfg.Endpoint,
		secret:     cfg.SharedSecret,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send posts one envelope. It never returns an error: network failures,
// timeouts, non-2xx statuses and malformed responses all map to a SendResult
// with Success=false. There is no retry.
func (c *Client) Send(ctx context.Context, env *models.Envelope) *models.SendResult {
	body, err := json.Marshal(env)
	if err != nil {
		return failure(fmt.Sprintf("failed to marshal envelope: %v", err), 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Sprintf("failed to create request: %v", err), 0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(constants.SharedSecretHeader, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"url":   c.url,
			"error": err.Error(),
		}).Error("API post failed")
		return failure(err.Error(), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, constants.DefaultMaxRequestBytes))
	if err != nil {
		return failure(fmt.Sprintf("failed to read response: %v", err), resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"url":         c.url,
			"status_code": resp.StatusCode,
		}).Error("API post rejected")
		return failureFromBody(respBody, resp.StatusCode)
	}

	var result models.SendResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return failure(fmt.Sprintf("malformed response: %v", err), resp.StatusCode)
	}
	result.StatusCode = resp.StatusCode

	c.logger.WithField("url", c.url).Debug("API request successful")
	return &result
}

func failure(message string, statusCode int) *models.SendResult {
	return &models.SendResult{Success: false, Error: message, StatusCode: statusCode}
}

// failureFromBody keeps the server's error message when the rejection body
// is parseable, falling back to the raw body text.
func failureFromBody(body []byte, statusCode int) *models.SendResult {
	var result models.SendResult
	if err := json.Unmarshal(body, &result); err == nil && result.Error != "" {
		result.Success = false
		result.StatusCode = statusCode
		return &result
	}
	return failure(strings.TrimSpace(string(body)), statusCode)
}
