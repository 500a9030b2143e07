package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kawourelay/internal/constants"
	"kawourelay/internal/models"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// EventListener subscribes to the gateway's websocket event stream as an
// alternative to webhook delivery. Each "message" event is handed to the
// callback; other event types are ignored.
type EventListener struct {
	url     string
	apiKey  string
	session string
	logger  *logrus.Logger
}

// NewEventListener creates a listener for the given websocket URL.
func NewEventListener(eventsURL, apiKey, session string, logger *logrus.Logger) *EventListener {
	return &EventListener{
		url:     eventsURL,
		apiKey:  apiKey,
		session: session,
		logger:  logger,
	}
}

// Listen connects and reads events until ctx is cancelled or the connection
// fails. There is no automatic reconnect; the caller decides whether a
// dropped stream is fatal.
func (l *EventListener) Listen(ctx context.Context, handler func(models.InboundMessage)) error {
	header := http.Header{}
	if l.apiKey != "" {
		header.Set(constants.GatewayAPIKeyHeader, l.apiKey)
	}

	conn, _, err := websocket.Dial(ctx, l.url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	// Media payloads arrive inline as URLs, not bytes, but allow headroom
	// over the default 32KiB frame limit.
	conn.SetReadLimit(constants.DefaultMaxRequestBytes)

	l.logger.WithField("url", l.url).Info("Connected to gateway event stream")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("event stream read failed: %w", err)
		}

		var event models.GatewayWebhookPayload
		if err := json.Unmarshal(data, &event); err != nil {
			l.logger.WithField("error", err.Error()).Warn("Dropping undecodable gateway event")
			continue
		}

		if event.Event != models.EventMessage {
			continue
		}
		if l.session != "" && event.Session != "" && event.Session != l.session {
			continue
		}
		// The session's own outgoing messages come back on the stream too.
		if event.Payload.FromMe {
			continue
		}

		handler(event.ToInbound())
	}
}
