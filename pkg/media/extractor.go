package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"kawourelay/internal/constants"
	"kawourelay/internal/models"
	"kawourelay/internal/privacy"

	"github.com/sirupsen/logrus"
)

// Extractor downloads a message attachment from the gateway and encodes it
// into the envelope's transport-safe form. All failures are swallowed and
// logged; callers receive nil and forward the message as text-only.
type Extractor struct {
	httpClient *http.Client
	apiKey     string
	maxBytes   int64
	logger     *logrus.Logger
}

// NewExtractor creates an extractor. The API key authenticates media
// downloads against the gateway.
func NewExtractor(apiKey string, timeout time.Duration, logger *logrus.Logger) *Extractor {
	return &Extractor{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		maxBytes:   constants.MaxMediaDownloadBytes,
		logger:     logger,
	}
}

// Extract retrieves the attachment referenced by msg. Returns nil when the
// message has no usable attachment or the download fails.
func (e *Extractor) Extract(ctx context.Context, msg *models.InboundMessage) *models.EnvelopeMedia {
	if msg.Media == nil || msg.Media.URL == "" {
		e.logger.WithField("message_id", privacy.MaskMessageID(msg.MessageID)).
			Warn("Message flagged as media but carries no attachment reference")
		return nil
	}

	data, err := e.download(ctx, msg.Media.URL)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"message_id": privacy.MaskMessageID(msg.MessageID),
			"error":      err.Error(),
		}).Warn("Media download failed")
		return nil
	}
	if len(data) == 0 {
		e.logger.WithField("message_id", privacy.MaskMessageID(msg.MessageID)).
			Warn("Media download returned no data")
		return nil
	}

	media := &models.EnvelopeMedia{
		Filename:  resolveFilename(msg),
		MimeType:  msg.Media.MimeType,
		SizeBytes: int64(len(data)),
		Base64:    base64.StdEncoding.EncodeToString(data),
	}

	e.logger.WithFields(logrus.Fields{
		"filename": media.Filename,
		"mimetype": media.MimeType,
		"size_kb":  media.SizeBytes / 1024,
	}).Info("Media extracted")

	return media
}

func (e *Extractor) download(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if e.apiKey != "" {
		req.Header.Set(constants.GatewayAPIKeyHeader, e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	// Read one byte past the cap so a truncated download is detected
	// instead of forwarded as a corrupt payload.
	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media body: %w", err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("media exceeds download limit of %d bytes", e.maxBytes)
	}
	return data, nil
}

// resolveFilename uses the source-provided filename when present, otherwise
// synthesizes one from the message ID and MIME type. Deterministic for a
// given (messageId, mimetype) pair.
func resolveFilename(msg *models.InboundMessage) string {
	if msg.Media.Filename != "" {
		return msg.Media.Filename
	}
	return fmt.Sprintf("media-%s.%s", msg.MessageID, constants.ExtensionForMimeType(msg.Media.MimeType))
}
