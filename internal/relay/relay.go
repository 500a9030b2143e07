package relay

import (
	"context"
	"fmt"

	"kawourelay/internal/metrics"
	"kawourelay/internal/models"
	"kawourelay/internal/privacy"
	"kawourelay/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// EnvelopeSender posts an accepted envelope to the ingress endpoint.
type EnvelopeSender interface {
	Send(ctx context.Context, env *models.Envelope) *models.SendResult
}

// Relay feeds inbound gateway events through a buffered channel into a
// single consumer loop, preserving one-at-a-time logical processing per
// message while network calls overlap only within a message's handling.
type Relay struct {
	queue      chan models.InboundMessage
	normalizer *Normalizer
	sender     EnvelopeSender
	logger     *logrus.Logger
}

// New creates a relay with a bounded inbound queue.
func New(queueSize int, normalizer *Normalizer, sender EnvelopeSender, logger *logrus.Logger) *Relay {
	return &Relay{
		queue:      make(chan models.InboundMessage, queueSize),
		normalizer: normalizer,
		sender:     sender,
		logger:     logger,
	}
}

// Enqueue hands one inbound message to the relay loop. Delivery is best
// effort: when the queue is full the message is dropped and counted, never
// blocked on.
func (r *Relay) Enqueue(msg models.InboundMessage) bool {
	select {
	case r.queue <- msg:
		metrics.SetGauge("relay_queue_depth", float64(len(r.queue)), nil)
		return true
	default:
		r.logger.WithField("message_id", privacy.MaskMessageID(msg.MessageID)).
			Warn("Inbound queue full, dropping message")
		metrics.IncrementCounter("relay_messages_dropped_total", nil)
		return false
	}
}

// Run consumes the queue until ctx is cancelled. In-flight sends are not
// awaited on shutdown.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("Relay loop started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Relay loop stopped")
			return
		case msg := <-r.queue:
			r.process(ctx, msg)
		}
	}
}

// process runs one message to completion. A panic here is logged and
// swallowed so a single malformed event cannot kill the loop.
func (r *Relay) process(ctx context.Context, msg models.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithFields(logrus.Fields{
				"message_id": privacy.MaskMessageID(msg.MessageID),
				"panic":      fmt.Sprintf("%v", rec),
			}).Error("Unhandled failure while processing message")
			metrics.IncrementCounter("relay_panics_total", nil)
		}
	}()

	ctx, span := tracing.StartSpan(ctx, "relay_message",
		attribute.String("messaging.message.id", msg.MessageID),
	)
	defer span.End()

	env, reason := r.normalizer.Normalize(ctx, &msg)
	if reason != RejectNone {
		metrics.IncrementCounter("relay_messages_rejected_total", map[string]string{
			"reason": string(reason),
		})
		return
	}

	result := r.sender.Send(ctx, env)
	if result.Success {
		r.logger.WithFields(logrus.Fields{
			"group":   env.GroupName,
			"author":  env.Author.Name,
			"type":    env.Type,
			"preview": previewContent(env),
		}).Info("Message relayed to API")
		metrics.IncrementCounter("relay_messages_sent_total", map[string]string{
			"type": env.Type,
		})
		return
	}

	// One attempt only; the message is dropped after a failed send.
	r.logger.WithFields(logrus.Fields{
		"message_id":  privacy.MaskMessageID(env.MessageID),
		"status_code": result.StatusCode,
		"error":       result.Error,
	}).Error("Failed to relay message to API")
	metrics.IncrementCounter("relay_send_failures_total", nil)
	tracing.RecordError(ctx, fmt.Errorf("send failed: %s", result.Error))
}

func previewContent(env *models.Envelope) string {
	if env.Content == nil {
		return ""
	}
	return privacy.ContentPreview(*env.Content, 50)
}
