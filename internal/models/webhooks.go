package models

// Gateway webhook event types
const (
	EventMessage = "message"
)

// GatewayWebhookPayload is the event body posted (or streamed) by the
// WhatsApp HTTP gateway.
type GatewayWebhookPayload struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Event     string `json:"event"`
	Session   string `json:"session"`
	Payload   struct {
		ID        string `json:"id"`
		Timestamp int64  `json:"timestamp"`
		From      string `json:"from"`
		FromMe    bool   `json:"fromMe"`
		To        string `json:"to"`
		Author    string `json:"author"`
		PushName  string `json:"pushName"`
		Body      string `json:"body"`
		HasMedia  bool   `json:"hasMedia"`
		Media     *struct {
			URL      string `json:"url"`
			MimeType string `json:"mimetype"`
			Filename string `json:"filename"`
		} `json:"media"`
	} `json:"payload"`
	Engine string `json:"engine"`
}

// ToInbound converts the webhook payload into the relay's inbound message
// shape.
func (p *GatewayWebhookPayload) ToInbound() InboundMessage {
	msg := InboundMessage{
		MessageID: p.Payload.ID,
		ChatID:    p.Payload.From,
		Author:    p.Payload.Author,
		PushName:  p.Payload.PushName,
		Body:      p.Payload.Body,
		HasMedia:  p.Payload.HasMedia,
		Timestamp: p.Payload.Timestamp,
		FromMe:    p.Payload.FromMe,
	}
	if p.Payload.Media != nil {
		msg.Media = &MediaRef{
			URL:      p.Payload.Media.URL,
			MimeType: p.Payload.Media.MimeType,
			Filename: p.Payload.Media.Filename,
		}
	}
	return msg
}
