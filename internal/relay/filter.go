package relay

import (
	"context"
	"strings"
	"time"

	"kawourelay/internal/constants"
	"kawourelay/internal/models"
	"kawourelay/internal/privacy"
	"kawourelay/pkg/whatsapp"

	"github.com/sirupsen/logrus"
)

// RejectReason explains why a message produced no envelope. Policy
// rejections are silent by design: they are logged at debug level and
// counted, never surfaced as errors.
type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectNotGroup        RejectReason = "not_group"
	RejectGroupNotAllowed RejectReason = "group_not_allowed"
	RejectEmptyMessage    RejectReason = "empty_message"
	RejectBlockedWord     RejectReason = "blocked_word"
)

// MediaExtractor resolves a message attachment into envelope form, or nil
// on any failure.
type MediaExtractor interface {
	Extract(ctx context.Context, msg *models.InboundMessage) *models.EnvelopeMedia
}

// Normalizer is the relay's decision core: it applies the filtering policy
// to one inbound message and, when accepted, builds the normalized envelope.
// It holds no mutable state beyond the read-only policy.
type Normalizer struct {
	policy    models.RelayConfig
	directory whatsapp.Directory
	extractor MediaExtractor
	logger    *logrus.Logger
}

// NewNormalizer creates a normalizer with the given policy and
// collaborators.
func NewNormalizer(policy models.RelayConfig, directory whatsapp.Directory, extractor MediaExtractor, logger *logrus.Logger) *Normalizer {
	return &Normalizer{
		policy:    policy,
		directory: directory,
		extractor: extractor,
		logger:    logger,
	}
}

// Normalize decides accept/reject for one message. Rejected messages return
// a non-empty reason and a nil envelope; accepted messages return exactly
// one envelope with Type=="media" iff Media!=nil.
func (n *Normalizer) Normalize(ctx context.Context, msg *models.InboundMessage) (*models.Envelope, RejectReason) {
	if reason := n.evaluate(msg); reason != RejectNone {
		n.logger.WithFields(logrus.Fields{
			"message_id": privacy.MaskMessageID(msg.MessageID),
			"chat_id":    privacy.MaskChatID(msg.ChatID),
			"reason":     string(reason),
		}).Debug("Message rejected by policy")
		return nil, reason
	}

	contact := n.lookupContact(ctx, msg)

	env := &models.Envelope{
		Provider:  constants.EnvelopeProvider,
		Type:      models.EnvelopeTypeText,
		GroupID:   msg.ChatID,
		GroupName: n.resolveGroupName(ctx, msg),
		MessageID: msg.MessageID,
		Timestamp: formatTimestamp(msg.Timestamp),
		Author: models.EnvelopeAuthor{
			ID:   resolveAuthorID(msg, contact),
			Name: resolveAuthorName(msg, contact),
		},
	}

	if msg.Body != "" {
		body := msg.Body
		env.Content = &body
	}

	if n.policy.ForwardMediaEnabled() && msg.HasMedia {
		media := n.extractor.Extract(ctx, msg)
		if media != nil && media.SizeBytes > n.policy.MediaMaxBytes {
			n.logger.WithFields(logrus.Fields{
				"message_id": privacy.MaskMessageID(msg.MessageID),
				"size_bytes": media.SizeBytes,
				"max_bytes":  n.policy.MediaMaxBytes,
			}).Warn("Media exceeds size limit, forwarding as text only")
			media = nil
		}
		if media != nil {
			env.Media = media
			env.Type = models.EnvelopeTypeMedia
		}
	}

	return env, RejectNone
}

// evaluate applies the rejection rules in order; the first match wins.
func (n *Normalizer) evaluate(msg *models.InboundMessage) RejectReason {
	if !msg.IsGroup() {
		return RejectNotGroup
	}

	if len(n.policy.AllowGroups) > 0 && !contains(n.policy.AllowGroups, msg.ChatID) {
		return RejectGroupNotAllowed
	}

	if msg.Body == "" && !msg.HasMedia {
		return RejectEmptyMessage
	}

	body := strings.ToLower(msg.Body)
	for _, word := range n.policy.BlockWords {
		if word != "" && strings.Contains(body, word) {
			return RejectBlockedWord
		}
	}

	return RejectNone
}

func (n *Normalizer) lookupContact(ctx context.Context, msg *models.InboundMessage) *models.Contact {
	contactID := msg.Author
	if contactID == "" {
		contactID = msg.ChatID
	}

	contact, err := n.directory.GetContact(ctx, contactID)
	if err != nil {
		n.logger.WithFields(logrus.Fields{
			"message_id": privacy.MaskMessageID(msg.MessageID),
			"error":      err.Error(),
		}).Debug("Contact lookup failed, falling back to raw author")
		return nil
	}
	return contact
}

func (n *Normalizer) resolveGroupName(ctx context.Context, msg *models.InboundMessage) string {
	group, err := n.directory.GetGroup(ctx, msg.ChatID)
	if err != nil || group == nil || group.Subject == "" {
		return msg.ChatID
	}
	return group.Subject
}

// resolveAuthorName walks the fallback chain: contact pushname, contact
// name, contact number, the message's raw author field, then a fixed
// placeholder. First non-empty value wins.
func resolveAuthorName(msg *models.InboundMessage, contact *models.Contact) string {
	if contact != nil {
		for _, candidate := range []string{contact.PushName, contact.Name, contact.Number} {
			if candidate != "" {
				return candidate
			}
		}
	}
	if msg.Author != "" {
		return msg.Author
	}
	return constants.UnknownAuthorName
}

func resolveAuthorID(msg *models.InboundMessage, contact *models.Contact) string {
	if msg.Author != "" {
		return msg.Author
	}
	if contact != nil {
		return contact.ID
	}
	return ""
}

func formatTimestamp(epochSec int64) string {
	if epochSec <= 0 {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return time.Unix(epochSec, 0).UTC().Format(time.RFC3339)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
