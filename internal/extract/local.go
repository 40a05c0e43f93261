package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/caraseli02/invoice-extractor/internal/invoice"
	"github.com/caraseli02/invoice-extractor/internal/llm"
	"github.com/caraseli02/invoice-extractor/internal/ocr"
)

// TextDetector is the slice of the Vision client the local adapter needs.
type TextDetector interface {
	DetectText(ctx context.Context, imageBase64 string) (string, error)
}

// LocalOCR adapts the in-process Vision client to the OCRClient interface.
// It is what the server's combined extract endpoint and the CLI's direct mode
// use instead of going through the HTTP proxy hop.
type LocalOCR struct {
	Client TextDetector
}

func (l LocalOCR) RecognizeText(ctx context.Context, imageBase64 string) (string, error) {
	text, err := l.Client.DetectText(ctx, imageBase64)
	if err == nil {
		return text, nil
	}

	var se *ocr.ServiceError
	switch {
	case errors.Is(err, ocr.ErrNoText):
		return "", newError(KindInvalidOCRResponse, "no text could be read from the image", err)
	case errors.As(err, &se):
		return "", newError(KindOCRServiceError, se.Message, err)
	case errors.Is(err, context.DeadlineExceeded):
		return "", newError(KindTimeout, "text recognition timed out; please try again", err)
	case errors.Is(err, context.Canceled):
		return "", newError(KindNetworkError, "the request was cancelled", err)
	default:
		return "", newError(KindNetworkError,
			"could not reach the text recognition service; check your connection and try again", err)
	}
}

// LocalParse adapts an in-process llm.Parser to the ParseClient interface.
type LocalParse struct {
	Parser llm.Parser
}

func (l LocalParse) ParseText(ctx context.Context, ocrText string) (invoice.RawData, error) {
	data, _, err := l.Parser.ParseInvoice(ctx, ocrText)
	if err != nil {
		var ue *llm.UpstreamError
		switch {
		case errors.As(err, &ue) && ue.Status == http.StatusUnauthorized:
			return invoice.RawData{}, newError(KindParseServiceError,
				"authentication with the extraction service failed", err)
		case errors.As(err, &ue) && ue.Status == http.StatusTooManyRequests:
			msg := "the extraction service is rate limited; please try again shortly"
			if ue.RetryAfter != "" {
				msg = fmt.Sprintf("the extraction service is rate limited; retry in %s seconds", ue.RetryAfter)
			}
			return invoice.RawData{}, newError(KindParseServiceError, msg, err)
		case errors.As(err, &ue):
			return invoice.RawData{}, newError(KindParseServiceError,
				fmt.Sprintf("the extraction service returned an error (status %d)", ue.Status), err)
		case errors.Is(err, context.DeadlineExceeded):
			return invoice.RawData{}, newError(KindTimeout,
				"invoice parsing timed out; please try again", err)
		case errors.Is(err, context.Canceled):
			return invoice.RawData{}, newError(KindNetworkError, "the request was cancelled", err)
		default:
			return invoice.RawData{}, newError(KindInvalidParseResponse,
				"the invoice could not be read into line items; please try again or contact support", err)
		}
	}
	if data.Products == nil {
		return invoice.RawData{}, newError(KindInvalidParseResponse,
			"the invoice could not be read into line items; please try again or contact support", nil)
	}
	return data, nil
}
