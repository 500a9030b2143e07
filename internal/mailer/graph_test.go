package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"kawourelay/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testMailConfig() models.MailConfig {
	return models.MailConfig{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		Sender:       "bot@example.com",
		To:           "inbox@example.com",
	}
}

func testContactRequest() *models.ContactRequest {
	return &models.ContactRequest{
		Name:    "Marie Dupré",
		Email:   "marie@example.com",
		Message: "Bonjour,\nje voudrais en savoir plus.",
	}
}

func TestSendContactMail(t *testing.T) {
	var gotPath string
	var gotBody sendMailRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	m := NewGraphMailerWithClient(testMailConfig(), server.Client(), server.URL, testLogger())

	err := m.SendContactMail(context.Background(), testContactRequest())
	require.NoError(t, err)

	assert.Equal(t, "/users/bot@example.com/sendMail", gotPath)
	assert.Equal(t, "bot@example.com", gotBody.Message.From.EmailAddress.Address)
	require.Len(t, gotBody.Message.ToRecipients, 1)
	assert.Equal(t, "inbox@example.com", gotBody.Message.ToRecipients[0].EmailAddress.Address)
	require.Len(t, gotBody.Message.ReplyTo, 1)
	assert.Equal(t, "marie@example.com", gotBody.Message.ReplyTo[0].EmailAddress.Address)
	assert.Equal(t, "HTML", gotBody.Message.Body.ContentType)
	assert.Contains(t, gotBody.Message.Subject, "Marie Dupré")
}

func TestSendContactMailUsesConfiguredSubject(t *testing.T) {
	var gotBody sendMailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := testMailConfig()
	cfg.Subject = "Website contact"
	m := NewGraphMailerWithClient(cfg, server.Client(), server.URL, testLogger())

	require.NoError(t, m.SendContactMail(context.Background(), testContactRequest()))
	assert.Equal(t, "Website contact", gotBody.Message.Subject)
}

func TestSendContactMailEscapesHTML(t *testing.T) {
	var gotBody sendMailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	m := NewGraphMailerWithClient(testMailConfig(), server.Client(), server.URL, testLogger())

	req := testContactRequest()
	req.Message = "<script>alert(1)</script>\nline two"
	require.NoError(t, m.SendContactMail(context.Background(), req))

	assert.NotContains(t, gotBody.Message.Body.Content, "<script>")
	assert.Contains(t, gotBody.Message.Body.Content, "&lt;script&gt;")
	assert.Contains(t, gotBody.Message.Body.Content, "<br>", "newlines become line breaks")
}

func TestSendContactMailFailsOnGraphError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"ErrorAccessDenied"}}`))
	}))
	defer server.Close()

	m := NewGraphMailerWithClient(testMailConfig(), server.Client(), server.URL, testLogger())

	err := m.SendContactMail(context.Background(), testContactRequest())
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	t.Run("reachable sender", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/bot@example.com", r.URL.Path)
			_, _ = w.Write([]byte(`{"mail":"bot@example.com"}`))
		}))
		defer server.Close()

		m := NewGraphMailerWithClient(testMailConfig(), server.Client(), server.URL, testLogger())
		assert.NoError(t, m.Verify(context.Background()))
	})

	t.Run("forbidden", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		m := NewGraphMailerWithClient(testMailConfig(), server.Client(), server.URL, testLogger())
		assert.Error(t, m.Verify(context.Background()))
	})
}
