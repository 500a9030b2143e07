package models

import (
	"strings"

	"kawourelay/internal/constants"
)

// InboundMessage is one chat message event as delivered by the gateway.
// It is read-only to the relay.
type InboundMessage struct {
	MessageID string
	ChatID    string
	Author    string
	PushName  string
	Body      string
	HasMedia  bool
	Media     *MediaRef
	Timestamp int64
	FromMe    bool
}

// MediaRef points at an attachment on the gateway, before extraction.
type MediaRef struct {
	URL      string
	MimeType string
	Filename string
}

// IsGroup reports whether the message originates from a group conversation.
func (m *InboundMessage) IsGroup() bool {
	return strings.HasSuffix(m.ChatID, constants.GroupIDSuffix)
}

// Contact is the gateway's view of a sender, used for author name
// resolution.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PushName string `json:"pushname"`
	Number   string `json:"number"`
}

// Group is the gateway's view of a group conversation.
type Group struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
}
