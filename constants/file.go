package constants

import "strings"

// MaxUploadBytes is the hard cap for uploaded invoice images (10 MiB),
// checked before any base64 conversion or network call.
const MaxUploadBytes = 10 * 1024 * 1024

// MaxBodyBytes caps the proxy request bodies; base64 inflates the image by
// roughly 4/3, so the limit sits above MaxUploadBytes with headroom.
const MaxBodyBytes = 16 * 1024 * 1024

// AllowedMIMETypes holds the image types accepted by the upload gate.
// PDFs are deliberately absent: legacy clients that tried to send them
// must get a clear rejection instead of a silent accept.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
}

// IsAllowedMIME reports whether the given MIME type passes the upload gate.
func IsAllowedMIME(mime string) bool {
	_, ok := AllowedMIMETypes[strings.ToLower(strings.TrimSpace(mime))]
	return ok
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MIMEForExt maps a normalized extension to its canonical MIME type.
// Returns "" for anything outside the allowed set.
func MIMEForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return ""
	}
}
