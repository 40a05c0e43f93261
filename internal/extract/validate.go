package extract

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/caraseli02/invoice-extractor/constants"
)

// Upload describes one file handed to the pipeline. Size must reflect the
// real byte count; the gate runs on it before any content is read.
type Upload struct {
	Name   string
	MIME   string
	Size   int64
	Reader io.Reader
}

// ValidateFile is the pure pre-network gate: type first, then size. It never
// touches Upload.Reader, so an oversized file costs nothing.
func ValidateFile(up Upload) *Error {
	if !constants.IsAllowedMIME(up.MIME) {
		return newError(KindInvalidFileType,
			fmt.Sprintf("unsupported file type %q: please upload a JPEG or PNG image", up.MIME), nil)
	}
	if up.Size > constants.MaxUploadBytes {
		return newError(KindFileTooLarge,
			fmt.Sprintf("file is %.1f MB; the limit is %d MB", float64(up.Size)/(1024*1024), constants.MaxUploadBytes/(1024*1024)), nil)
	}
	return nil
}

// EncodeImage reads the upload content and returns it as standard base64,
// no data-URI prefix. Read failures map to FileReadError.
func EncodeImage(up Upload) (string, *Error) {
	b, err := io.ReadAll(up.Reader)
	if err != nil {
		return "", newError(KindFileReadError,
			"could not read the file; it may be corrupted — try choosing it again", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// NormalizeBase64 strips a data-URI prefix ("data:image/png;base64,...") when
// a caller hands one over instead of bare base64 content.
func NormalizeBase64(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
