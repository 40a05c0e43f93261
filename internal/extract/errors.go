package extract

import (
	"errors"
	"fmt"

	"github.com/caraseli02/invoice-extractor/internal/invoice"
)

// Kind classifies every way an extraction can fail. Callers branch on the
// kind, never on message text.
type Kind string

const (
	KindInvalidFileType      Kind = "INVALID_FILE_TYPE"
	KindFileTooLarge         Kind = "FILE_TOO_LARGE"
	KindFileReadError        Kind = "FILE_READ_ERROR"
	KindNetworkError         Kind = "NETWORK_ERROR"
	KindTimeout              Kind = "TIMEOUT"
	KindOCRServiceError      Kind = "OCR_SERVICE_ERROR"
	KindParseServiceError    Kind = "PARSE_SERVICE_ERROR"
	KindInvalidOCRResponse   Kind = "INVALID_OCR_RESPONSE"
	KindInvalidParseResponse Kind = "INVALID_PARSE_RESPONSE"
	KindNoProductsExtracted  Kind = "NO_PRODUCTS_EXTRACTED"
)

// Error is a classified pipeline failure. Message is safe to show to an end
// user; Cause carries the underlying error for logs only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// classify returns err as an *Error, wrapping anything unclassified under the
// given fallback kind. The pipeline never surfaces a bare error.
func classify(err error, fallback Kind, message string) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}
	return newError(fallback, message, err)
}

// Result is the discriminated outcome of one extraction: exactly one of Data
// or Err is set. OCRText is preserved on both paths for debugging and audit,
// even when parsing failed after a successful OCR call.
type Result struct {
	Data    *invoice.Data `json:"data,omitempty"`
	Err     *Error        `json:"-"`
	OCRText string        `json:"ocrText,omitempty"`
}

// OK reports whether the extraction succeeded.
func (r Result) OK() bool { return r.Err == nil }

func success(data invoice.Data, ocrText string) Result {
	return Result{Data: &data, OCRText: ocrText}
}

func failure(err *Error, ocrText string) Result {
	return Result{Err: err, OCRText: ocrText}
}
