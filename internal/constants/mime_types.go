package constants

// MimeTypeToExtension maps attachment MIME types to the extension used when
// synthesizing a filename for media that arrives without one.
var MimeTypeToExtension = map[string]string{
	// Image formats
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",

	// Video formats
	"video/mp4":  "mp4",
	"video/webm": "webm",

	// Audio formats
	"audio/ogg":  "ogg",
	"audio/mpeg": "mp3",

	// Document formats
	"application/pdf": "pdf",
	"text/plain":      "txt",
}

// DefaultExtension is the fallback extension for unknown MIME types.
const DefaultExtension = "bin"

// ExtensionForMimeType resolves the extension for a MIME type, falling back
// to DefaultExtension.
func ExtensionForMimeType(mimeType string) string {
	if ext, ok := MimeTypeToExtension[mimeType]; ok {
		return ext
	}
	return DefaultExtension
}
