// Package mailer relays contact-form submissions through the Microsoft
// Graph sendMail API using the OAuth2 client-credential flow.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"kawourelay/internal/errors"
	"kawourelay/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope          = "https://graph.microsoft.com/.default"
	tokenURLFormat      = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
)

// GraphMailer sends mail on behalf of a configured sender mailbox.
type GraphMailer struct {
	cfg        models.MailConfig
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// NewGraphMailer builds a mailer whose HTTP client transparently acquires
// and refreshes an app-only access token.
func NewGraphMailer(ctx context.Context, cfg models.MailConfig, logger *logrus.Logger) *GraphMailer {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf(tokenURLFormat, cfg.TenantID),
		Scopes:       []string{graphScope},
	}

	client := cc.Client(ctx)
	client.Timeout = 30 * time.Second

	return &GraphMailer{
		cfg:        cfg,
		httpClient: client,
		baseURL:    defaultGraphBaseURL,
		logger:     logger,
	}
}

// NewGraphMailerWithClient is used by tests to point the mailer at a fake
// Graph endpoint.
func NewGraphMailerWithClient(cfg models.MailConfig, client *http.Client, baseURL string, logger *logrus.Logger) *GraphMailer {
	return &GraphMailer{cfg: cfg, httpClient: client, baseURL: baseURL, logger: logger}
}

// graph sendMail request body
type sendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

type graphMessage struct {
	Subject      string           `json:"subject"`
	From         graphRecipient   `json:"from"`
	ToRecipients []graphRecipient `json:"toRecipients"`
	ReplyTo      []graphRecipient `json:"replyTo,omitempty"`
	Body         graphBody        `json:"body"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphEmailAddress struct {
	Address string `json:"address"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// SendContactMail forwards one contact-form submission to the configured
// recipient, with reply-to set to the submitter.
func (m *GraphMailer) SendContactMail(ctx context.Context, req *models.ContactRequest) error {
	subject := m.cfg.Subject
	if subject == "" {
		subject = fmt.Sprintf("[Contact] New message from %s", req.Name)
	}

	payload := sendMailRequest{
		Message: graphMessage{
			Subject:      subject,
			From:         recipient(m.cfg.Sender),
			ToRecipients: []graphRecipient{recipient(m.cfg.To)},
			ReplyTo:      []graphRecipient{recipient(req.Email)},
			Body: graphBody{
				ContentType: "HTML",
				Content:     renderContactBody(req),
			},
		},
		SaveToSentItems: true,
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", m.baseURL, m.cfg.Sender)
	if err := m.post(ctx, endpoint, payload); err != nil {
		return errors.Wrap(err, errors.ErrCodeMailDelivery, "failed to send contact mail")
	}

	m.logger.WithFields(logrus.Fields{
		"from": m.cfg.Sender,
		"to":   m.cfg.To,
	}).Info("Contact mail sent")
	return nil
}

// Verify checks that the app credentials can see the sender mailbox.
func (m *GraphMailer) Verify(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/users/%s", m.baseURL, m.cfg.Sender)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMailDelivery, "graph connection failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeMailDelivery,
			fmt.Sprintf("graph returned status %d for sender lookup", resp.StatusCode))
	}
	return nil
}

func (m *GraphMailer) post(ctx context.Context, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// sendMail responds 202 Accepted on success
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func recipient(address string) graphRecipient {
	return graphRecipient{EmailAddress: graphEmailAddress{Address: address}}
}

func renderContactBody(req *models.ContactRequest) string {
	message := strings.ReplaceAll(html.EscapeString(req.Message), "\n", "<br>")
	return fmt.Sprintf(
		`<div><h2>New contact message</h2><p><strong>Name:</strong> %s</p><p><strong>Email:</strong> <a href="mailto:%s">%s</a></p><div><p>%s</p></div></div>`,
		html.EscapeString(req.Name),
		html.EscapeString(req.Email),
		html.EscapeString(req.Email),
		message,
	)
}
