package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kawourelay/internal/models"
	"kawourelay/internal/relay"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct{}

func (d *fakeDirectory) GetContact(ctx context.Context, contactID string) (*models.Contact, error) {
	return &models.Contact{ID: contactID, PushName: "Mimi"}, nil
}

func (d *fakeDirectory) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return &models.Group{ID: groupID, Subject: "Neighborhood"}, nil
}

type fakeExtractor struct{}

func (e *fakeExtractor) Extract(ctx context.Context, msg *models.InboundMessage) *models.EnvelopeMedia {
	return nil
}

type captureSender struct {
	mu   sync.Mutex
	sent []*models.Envelope
	ch   chan struct{}
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan struct{}, 16)}
}

func (s *captureSender) Send(ctx context.Context, env *models.Envelope) *models.SendResult {
	s.mu.Lock()
	s.sent = append(s.sent, env)
	s.mu.Unlock()
	s.ch <- struct{}{}
	return &models.SendResult{Success: true}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testWebhookConfig() *models.Config {
	return &models.Config{
		API:     models.APIConfig{BaseURL: "https://backend.example.com", SharedSecret: "s"},
		Gateway: models.GatewayConfig{APIBaseURL: "http://gateway:3000"},
	}
}

func newWebhookServer(t *testing.T, cfg *models.Config) (*Server, *captureSender, context.CancelFunc) {
	t.Helper()

	sender := newCaptureSender()
	normalizer := relay.NewNormalizer(cfg.Relay, &fakeDirectory{}, &fakeExtractor{}, testLogger())
	pipeline := relay.New(10, normalizer, sender, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go pipeline.Run(ctx)

	return NewServer(cfg, pipeline, testLogger()), sender, cancel
}

func webhookEvent(event string, fromMe bool) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "evt-1",
		"event":   event,
		"session": "default",
		"payload": map[string]interface{}{
			"id":        "msg-1",
			"timestamp": 1700000000,
			"from":      "123@g.us",
			"fromMe":    fromMe,
			"author":    "987@c.us",
			"body":      "hello",
		},
	})
	return body
}

func postWebhook(s *Server, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookFeedsMessageToRelay(t *testing.T) {
	s, sender, cancel := newWebhookServer(t, testWebhookConfig())
	defer cancel()

	rec := postWebhook(s, webhookEvent("message", false))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-sender.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the sender")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "msg-1", sender.sent[0].MessageID)
	assert.Equal(t, "Neighborhood", sender.sent[0].GroupName)
	assert.Equal(t, "Mimi", sender.sent[0].Author.Name)
}

func TestWebhookIgnoresNonMessageEvents(t *testing.T) {
	s, sender, cancel := newWebhookServer(t, testWebhookConfig())
	defer cancel()

	rec := postWebhook(s, webhookEvent("session.status", false))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-sender.ch:
		t.Fatal("non-message event must not be relayed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebhookIgnoresOwnMessages(t *testing.T) {
	s, sender, cancel := newWebhookServer(t, testWebhookConfig())
	defer cancel()

	rec := postWebhook(s, webhookEvent("message", true))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-sender.ch:
		t.Fatal("own outgoing messages must not be relayed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	cfg := testWebhookConfig()
	cfg.Gateway.WebhookSecret = "webhook-secret"
	s, _, cancel := newWebhookServer(t, cfg)
	defer cancel()

	rec := postWebhook(s, webhookEvent("message", false))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	s, _, cancel := newWebhookServer(t, testWebhookConfig())
	defer cancel()

	rec := postWebhook(s, []byte("{broken"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHealthEndpoint(t *testing.T) {
	s, _, cancel := newWebhookServer(t, testWebhookConfig())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Config)
		wantErr bool
	}{
		{"complete", func(c *models.Config) {}, false},
		{"missing api base url", func(c *models.Config) { c.API.BaseURL = "" }, true},
		{"missing shared secret", func(c *models.Config) { c.API.SharedSecret = "" }, true},
		{"missing gateway url", func(c *models.Config) { c.Gateway.APIBaseURL = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testWebhookConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
