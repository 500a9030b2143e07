package models

import "encoding/json"

// Envelope message types.
const (
	EnvelopeTypeText  = "text"
	EnvelopeTypeMedia = "media"
)

// Envelope is the normalized record the relay posts to the ingress endpoint.
// It is constructed once per accepted message and sent exactly once; the
// relay neither retries nor persists it.
//
// Invariant: Type == "media" exactly when Media != nil.
type Envelope struct {
	Provider  string         `json:"provider" validate:"required"`
	Type      string         `json:"type" validate:"required,oneof=text media"`
	GroupID   string         `json:"groupId" validate:"required"`
	GroupName string         `json:"groupName" validate:"required"`
	MessageID string         `json:"messageId" validate:"required"`
	Timestamp string         `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Author    EnvelopeAuthor `json:"author" validate:"required"`
	Content   *string        `json:"content" validate:"omitempty"`
	Media     *EnvelopeMedia `json:"media" validate:"omitempty"`
}

// EnvelopeAuthor identifies the message sender.
type EnvelopeAuthor struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name" validate:"required"`
}

// EnvelopeMedia carries an extracted attachment in transport-safe form.
type EnvelopeMedia struct {
	Filename  string `json:"filename" validate:"required"`
	MimeType  string `json:"mimetype" validate:"required"`
	SizeBytes int64  `json:"sizeBytes" validate:"required,gt=0"`
	Base64    string `json:"base64" validate:"required"`
}

// SendResult is the uniform outcome of one envelope send attempt, success or
// failure. The relay never surfaces transport problems as errors; callers
// inspect Success.
type SendResult struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message,omitempty"`
	SavedMediaPath *string         `json:"savedMediaPath,omitempty"`
	Error          string          `json:"error,omitempty"`
	StatusCode     int             `json:"statusCode,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
}

// APIResponse is the ingress-side response body shape.
type APIResponse struct {
	Success        bool        `json:"success"`
	Message        string      `json:"message,omitempty"`
	SavedMediaPath *string     `json:"savedMediaPath,omitempty"`
	Error          string      `json:"error,omitempty"`
	Details        interface{} `json:"details,omitempty"`
}

// ContactRequest is the contact-form submission accepted by the API.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=50,contactname"`
	Email   string `json:"email" validate:"required,email,max=100"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
}
