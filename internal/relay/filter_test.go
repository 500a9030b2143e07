package relay

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"testing"
	"time"

	"kawourelay/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	contact     *models.Contact
	contactErr  error
	group       *models.Group
	groupErr    error
	contactReqs []string
	groupReqs   []string
}

func (d *fakeDirectory) GetContact(ctx context.Context, contactID string) (*models.Contact, error) {
	d.contactReqs = append(d.contactReqs, contactID)
	return d.contact, d.contactErr
}

func (d *fakeDirectory) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	d.groupReqs = append(d.groupReqs, groupID)
	return d.group, d.groupErr
}

type fakeExtractor struct {
	media *models.EnvelopeMedia
	calls int
}

func (e *fakeExtractor) Extract(ctx context.Context, msg *models.InboundMessage) *models.EnvelopeMedia {
	e.calls++
	return e.media
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testMessage() *models.InboundMessage {
	return &models.InboundMessage{
		MessageID: "msg-001",
		ChatID:    "123456789@g.us",
		Author:    "987654321@c.us",
		Body:      "hello there",
		Timestamp: 1700000000,
	}
}

func boolPtr(v bool) *bool { return &v }

func TestNormalizeRejectsDirectMessages(t *testing.T) {
	dir := &fakeDirectory{}
	n := NewNormalizer(models.RelayConfig{}, dir, &fakeExtractor{}, testLogger())

	msg := testMessage()
	msg.ChatID = "987654321@c.us"

	env, reason := n.Normalize(context.Background(), msg)

	assert.Nil(t, env)
	assert.Equal(t, RejectNotGroup, reason)
	assert.Empty(t, dir.contactReqs, "rejected messages should not trigger lookups")
}

func TestNormalizeAllowList(t *testing.T) {
	policy := models.RelayConfig{
		AllowGroups:   []string{"111@g.us"},
		MediaMaxBytes: 5 * 1024 * 1024,
	}

	t.Run("allowed group passes", func(t *testing.T) {
		dir := &fakeDirectory{}
		n := NewNormalizer(policy, dir, &fakeExtractor{}, testLogger())

		msg := testMessage()
		msg.ChatID = "111@g.us"

		env, reason := n.Normalize(context.Background(), msg)
		require.NotNil(t, env)
		assert.Equal(t, RejectNone, reason)
		assert.Equal(t, "111@g.us", env.GroupID)
	})

	t.Run("other group rejected without side effects", func(t *testing.T) {
		dir := &fakeDirectory{}
		ext := &fakeExtractor{}
		n := NewNormalizer(policy, dir, ext, testLogger())

		msg := testMessage()
		msg.ChatID = "222@g.us"
		msg.HasMedia = true
		msg.Media = &models.MediaRef{URL: "http://gateway/media/1"}

		env, reason := n.Normalize(context.Background(), msg)
		assert.Nil(t, env)
		assert.Equal(t, RejectGroupNotAllowed, reason)
		assert.Zero(t, ext.calls, "rejected messages must not download media")
		assert.Empty(t, dir.contactReqs)
		assert.Empty(t, dir.groupReqs)
	})

	t.Run("empty allow list accepts any group", func(t *testing.T) {
		n := NewNormalizer(models.RelayConfig{}, &fakeDirectory{}, &fakeExtractor{}, testLogger())

		env, reason := n.Normalize(context.Background(), testMessage())
		require.NotNil(t, env)
		assert.Equal(t, RejectNone, reason)
	})
}

func TestNormalizeRejectsEmptyMessages(t *testing.T) {
	n := NewNormalizer(models.RelayConfig{}, &fakeDirectory{}, &fakeExtractor{}, testLogger())

	msg := testMessage()
	msg.Body = ""
	msg.HasMedia = false

	env, reason := n.Normalize(context.Background(), msg)
	assert.Nil(t, env)
	assert.Equal(t, RejectEmptyMessage, reason)
}

func TestNormalizeAcceptsMediaOnlyMessages(t *testing.T) {
	ext := &fakeExtractor{media: &models.EnvelopeMedia{
		Filename:  "photo.jpg",
		MimeType:  "image/jpeg",
		SizeBytes: 1024,
		Base64:    base64.StdEncoding.EncodeToString([]byte("img")),
	}}
	n := NewNormalizer(models.RelayConfig{MediaMaxBytes: 5 * 1024 * 1024}, &fakeDirectory{}, ext, testLogger())

	msg := testMessage()
	msg.Body = ""
	msg.HasMedia = true
	msg.Media = &models.MediaRef{URL: "http://gateway/media/1", MimeType: "image/jpeg"}

	env, reason := n.Normalize(context.Background(), msg)
	require.NotNil(t, env)
	assert.Equal(t, RejectNone, reason)
	assert.Equal(t, models.EnvelopeTypeMedia, env.Type)
	assert.Nil(t, env.Content)
	require.NotNil(t, env.Media)
}

func TestNormalizeBlockedWords(t *testing.T) {
	policy := models.RelayConfig{BlockWords: []string{"spam", "crypto"}}

	tests := []struct {
		name   string
		body   string
		reason RejectReason
	}{
		{"exact word", "this is spam", RejectBlockedWord},
		{"case insensitive", "Buy CRYPTO now", RejectBlockedWord},
		{"substring match", "spammer alert", RejectBlockedWord},
		{"clean message", "hello everyone", RejectNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(policy, &fakeDirectory{}, &fakeExtractor{}, testLogger())
			msg := testMessage()
			msg.Body = tt.body

			_, reason := n.Normalize(context.Background(), msg)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestNormalizeTypeMatchesMediaPresence(t *testing.T) {
	policy := models.RelayConfig{MediaMaxBytes: 5 * 1024 * 1024}

	t.Run("text message", func(t *testing.T) {
		n := NewNormalizer(policy, &fakeDirectory{}, &fakeExtractor{}, testLogger())

		env, _ := n.Normalize(context.Background(), testMessage())
		require.NotNil(t, env)
		assert.Equal(t, models.EnvelopeTypeText, env.Type)
		assert.Nil(t, env.Media)
		require.NotNil(t, env.Content)
		assert.Equal(t, "hello there", *env.Content)
	})

	t.Run("media message", func(t *testing.T) {
		ext := &fakeExtractor{media: &models.EnvelopeMedia{
			Filename: "doc.pdf", MimeType: "application/pdf", SizeBytes: 2048, Base64: "YQ==",
		}}
		n := NewNormalizer(policy, &fakeDirectory{}, ext, testLogger())

		msg := testMessage()
		msg.HasMedia = true
		msg.Media = &models.MediaRef{URL: "http://gateway/media/1"}

		env, _ := n.Normalize(context.Background(), msg)
		require.NotNil(t, env)
		assert.Equal(t, models.EnvelopeTypeMedia, env.Type)
		require.NotNil(t, env.Media)
		assert.Equal(t, "doc.pdf", env.Media.Filename)
	})

	t.Run("failed extraction degrades to text", func(t *testing.T) {
		n := NewNormalizer(policy, &fakeDirectory{}, &fakeExtractor{media: nil}, testLogger())

		msg := testMessage()
		msg.HasMedia = true
		msg.Media = &models.MediaRef{URL: "http://gateway/media/1"}

		env, reason := n.Normalize(context.Background(), msg)
		require.NotNil(t, env)
		assert.Equal(t, RejectNone, reason)
		assert.Equal(t, models.EnvelopeTypeText, env.Type)
		assert.Nil(t, env.Media)
		require.NotNil(t, env.Content, "the caption still goes through")
	})
}

func TestNormalizeOversizeMediaForwardedAsText(t *testing.T) {
	policy := models.RelayConfig{MediaMaxBytes: 5 * 1024 * 1024}
	ext := &fakeExtractor{media: &models.EnvelopeMedia{
		Filename:  "big.mp4",
		MimeType:  "video/mp4",
		SizeBytes: 6 * 1024 * 1024,
		Base64:    "YQ==",
	}}
	n := NewNormalizer(policy, &fakeDirectory{}, ext, testLogger())

	msg := testMessage()
	msg.HasMedia = true
	msg.Media = &models.MediaRef{URL: "http://gateway/media/1", MimeType: "video/mp4"}

	env, reason := n.Normalize(context.Background(), msg)
	require.NotNil(t, env)
	assert.Equal(t, RejectNone, reason, "oversize media must not drop the message")
	assert.Equal(t, models.EnvelopeTypeText, env.Type)
	assert.Nil(t, env.Media)
}

func TestNormalizeMediaAtLimitIsForwarded(t *testing.T) {
	policy := models.RelayConfig{MediaMaxBytes: 5 * 1024 * 1024}
	ext := &fakeExtractor{media: &models.EnvelopeMedia{
		Filename:  "exact.bin",
		MimeType:  "application/octet-stream",
		SizeBytes: 5 * 1024 * 1024,
		Base64:    "YQ==",
	}}
	n := NewNormalizer(policy, &fakeDirectory{}, ext, testLogger())

	msg := testMessage()
	msg.HasMedia = true
	msg.Media = &models.MediaRef{URL: "http://gateway/media/1"}

	env, _ := n.Normalize(context.Background(), msg)
	require.NotNil(t, env)
	assert.Equal(t, models.EnvelopeTypeMedia, env.Type)
}

func TestNormalizeMediaForwardingDisabled(t *testing.T) {
	policy := models.RelayConfig{
		ForwardMedia:  boolPtr(false),
		MediaMaxBytes: 5 * 1024 * 1024,
	}
	ext := &fakeExtractor{media: &models.EnvelopeMedia{Filename: "x.jpg", SizeBytes: 10, Base64: "YQ=="}}
	n := NewNormalizer(policy, &fakeDirectory{}, ext, testLogger())

	msg := testMessage()
	msg.HasMedia = true
	msg.Media = &models.MediaRef{URL: "http://gateway/media/1"}

	env, _ := n.Normalize(context.Background(), msg)
	require.NotNil(t, env)
	assert.Equal(t, models.EnvelopeTypeText, env.Type)
	assert.Zero(t, ext.calls, "disabled forwarding must not download media")
}

func TestNormalizeAuthorNameFallback(t *testing.T) {
	tests := []struct {
		name     string
		contact  *models.Contact
		err      error
		author   string
		expected string
	}{
		{
			name:     "pushname wins",
			contact:  &models.Contact{PushName: "Mimi", Name: "Michelle", Number: "590123456"},
			author:   "987@c.us",
			expected: "Mimi",
		},
		{
			name:     "name when no pushname",
			contact:  &models.Contact{Name: "Michelle", Number: "590123456"},
			author:   "987@c.us",
			expected: "Michelle",
		},
		{
			name:     "number when no names",
			contact:  &models.Contact{Number: "590123456"},
			author:   "987@c.us",
			expected: "590123456",
		},
		{
			name:     "raw author when lookup fails",
			err:      fmt.Errorf("gateway down"),
			author:   "987@c.us",
			expected: "987@c.us",
		},
		{
			name:     "placeholder when nothing known",
			err:      fmt.Errorf("gateway down"),
			author:   "",
			expected: "Unknown user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &fakeDirectory{contact: tt.contact, contactErr: tt.err}
			n := NewNormalizer(models.RelayConfig{}, dir, &fakeExtractor{}, testLogger())

			msg := testMessage()
			msg.Author = tt.author

			env, _ := n.Normalize(context.Background(), msg)
			require.NotNil(t, env)
			assert.Equal(t, tt.expected, env.Author.Name)
		})
	}
}

func TestNormalizeGroupNameResolution(t *testing.T) {
	t.Run("subject from directory", func(t *testing.T) {
		dir := &fakeDirectory{group: &models.Group{ID: "123456789@g.us", Subject: "Neighborhood"}}
		n := NewNormalizer(models.RelayConfig{}, dir, &fakeExtractor{}, testLogger())

		env, _ := n.Normalize(context.Background(), testMessage())
		require.NotNil(t, env)
		assert.Equal(t, "Neighborhood", env.GroupName)
	})

	t.Run("falls back to chat id", func(t *testing.T) {
		dir := &fakeDirectory{groupErr: fmt.Errorf("not found")}
		n := NewNormalizer(models.RelayConfig{}, dir, &fakeExtractor{}, testLogger())

		env, _ := n.Normalize(context.Background(), testMessage())
		require.NotNil(t, env)
		assert.Equal(t, "123456789@g.us", env.GroupName)
	})
}

func TestNormalizeTimestamp(t *testing.T) {
	n := NewNormalizer(models.RelayConfig{}, &fakeDirectory{}, &fakeExtractor{}, testLogger())

	t.Run("epoch converted to RFC3339 UTC", func(t *testing.T) {
		msg := testMessage()
		msg.Timestamp = 1700000000

		env, _ := n.Normalize(context.Background(), msg)
		require.NotNil(t, env)
		assert.Equal(t, "2023-11-14T22:13:20Z", env.Timestamp)
	})

	t.Run("missing timestamp uses current time", func(t *testing.T) {
		msg := testMessage()
		msg.Timestamp = 0

		before := time.Now().UTC().Add(-time.Second)
		env, _ := n.Normalize(context.Background(), msg)
		require.NotNil(t, env)

		parsed, err := time.Parse(time.RFC3339, env.Timestamp)
		require.NoError(t, err)
		assert.True(t, parsed.After(before))
	})
}

func TestNormalizeEnvelopeShape(t *testing.T) {
	dir := &fakeDirectory{
		contact: &models.Contact{ID: "987@c.us", PushName: "Mimi"},
		group:   &models.Group{Subject: "Neighborhood"},
	}
	n := NewNormalizer(models.RelayConfig{}, dir, &fakeExtractor{}, testLogger())

	env, reason := n.Normalize(context.Background(), testMessage())
	require.NotNil(t, env)
	require.Equal(t, RejectNone, reason)

	assert.Equal(t, "whatsapp", env.Provider)
	assert.Equal(t, "123456789@g.us", env.GroupID)
	assert.Equal(t, "msg-001", env.MessageID)
	assert.Equal(t, "987654321@c.us", env.Author.ID)
	assert.Equal(t, "Mimi", env.Author.Name)
}
