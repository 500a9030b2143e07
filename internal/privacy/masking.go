package privacy

import (
	"strings"
	"unicode/utf8"

	"kawourelay/internal/constants"
)

// MaskChatID masks a chat or group identifier for logging, keeping the
// domain suffix and the last few characters of the local part.
func MaskChatID(chatID string) string {
	if chatID == "" {
		return ""
	}

	local, domain, found := strings.Cut(chatID, "@")
	masked := maskTail(local, constants.DefaultMaskVisibleChars)
	if !found {
		return masked
	}
	return masked + "@" + domain
}

// MaskMessageID truncates a message identifier for logging.
func MaskMessageID(messageID string) string {
	if len(messageID) <= constants.DefaultMessageIDLength {
		return messageID
	}
	return messageID[:constants.DefaultMessageIDLength] + "..."
}

// ContentPreview returns a short, single-purpose preview of message content
// for log lines.
func ContentPreview(content string, max int) string {
	if len(content) <= max {
		return content
	}
	// Back up to a rune boundary so the preview stays valid UTF-8.
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

func maskTail(s string, visible int) string {
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
}
