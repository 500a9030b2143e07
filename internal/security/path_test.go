package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative path", "config.json", false},
		{"absolute path", "/var/lib/media", false},
		{"nested path", "data/media/uploads", false},
		{"empty", "", true},
		{"traversal", "../../etc/passwd", true},
		{"embedded traversal", "media/../../secrets", true},
		{"null byte", "config\x00.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	assert.Equal(t, "msg-1_abc", SanitizeIdentifier("msg-1_abc"))
	assert.Equal(t, "msg1cus", SanitizeIdentifier("msg.1@c.us"))
	assert.Equal(t, "etcpasswd", SanitizeIdentifier("../../etc/passwd"))
	assert.Equal(t, "", SanitizeIdentifier("@#$%"))
}
