package llm

import (
	"context"
	"fmt"

	"github.com/caraseli02/invoice-extractor/internal/invoice"
)

// Parser is the interface the parse proxy depends on. Implementations return
// the tolerant wire payload plus the raw JSON the model produced, for logging
// and diagnosis.
type Parser interface {
	ParseInvoice(ctx context.Context, ocrText string) (invoice.RawData, []byte, error)
}

// UpstreamError reports a non-2xx answer from the model provider. The proxy
// handler forwards Status (and RetryAfter for 429) to its own caller.
type UpstreamError struct {
	Status     int
	RetryAfter string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Status)
}
