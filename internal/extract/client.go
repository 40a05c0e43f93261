package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/caraseli02/invoice-extractor/internal/common"
	"github.com/caraseli02/invoice-extractor/internal/invoice"
)

// OCRClient turns a base64 image into raw text.
type OCRClient interface {
	RecognizeText(ctx context.Context, imageBase64 string) (string, error)
}

// ParseClient turns raw OCR text into the tolerant invoice wire shape.
type ParseClient interface {
	ParseText(ctx context.Context, ocrText string) (invoice.RawData, error)
}

const (
	defaultOCRTimeout   = 45 * time.Second
	defaultParseTimeout = 60 * time.Second
	rawPreviewBytes     = 512
)

// ProxyClient talks to the server-side OCR and parse proxies over JSON/HTTP.
// It holds no credentials; those stay behind the proxy boundary.
type ProxyClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewProxyClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *ProxyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultParseTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyClient{baseURL: baseURL, http: httpClient, logger: logger}
}

type ocrRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

type parseRequest struct {
	OCRText string `json:"ocrText"`
}

// errorEnvelope is the proxy's failure body: a human-readable message only.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// RecognizeText calls the OCR proxy. A response whose "text" field is missing,
// mistyped, or empty is InvalidOCRResponse, distinct from transport failures.
func (c *ProxyClient) RecognizeText(ctx context.Context, imageBase64 string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultOCRTimeout)
	defer cancel()

	raw, err := c.postJSON(ctx, c.baseURL+"/v1/ocr", ocrRequest{ImageBase64: imageBase64}, KindOCRServiceError)
	if err != nil {
		return "", err
	}

	var body struct {
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Text == nil {
		c.logger.Error("extract.ocr.invalid_response",
			"error", err, "raw", common.Truncate(string(raw), rawPreviewBytes))
		return "", newError(KindInvalidOCRResponse,
			"the OCR service returned an unexpected response; please try again or update the app", err)
	}
	var text string
	if err := json.Unmarshal(body.Text, &text); err != nil {
		c.logger.Error("extract.ocr.text_not_string",
			"raw", common.Truncate(string(raw), rawPreviewBytes))
		return "", newError(KindInvalidOCRResponse,
			"the OCR service returned an unexpected response; please try again or update the app", err)
	}
	if text == "" {
		return "", newError(KindInvalidOCRResponse,
			"no text could be read from the image", nil)
	}
	return text, nil
}

// ParseText calls the parse proxy and decodes the tolerant wire payload.
// A body that is not JSON, or valid JSON without a products array, is
// InvalidParseResponse; both get a truncated payload preview in the logs.
func (c *ProxyClient) ParseText(ctx context.Context, ocrText string) (invoice.RawData, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultParseTimeout)
	defer cancel()

	raw, err := c.postJSON(ctx, c.baseURL+"/v1/parse", parseRequest{OCRText: ocrText}, KindParseServiceError)
	if err != nil {
		return invoice.RawData{}, err
	}

	var data invoice.RawData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.logger.Error("extract.parse.invalid_json",
			"error", err, "raw", common.Truncate(string(raw), rawPreviewBytes))
		return invoice.RawData{}, newError(KindInvalidParseResponse,
			"the invoice could not be read into line items; please try again or contact support", err)
	}
	if data.Products == nil {
		c.logger.Error("extract.parse.missing_products",
			"raw", common.Truncate(string(raw), rawPreviewBytes))
		return invoice.RawData{}, newError(KindInvalidParseResponse,
			"the invoice could not be read into line items; please try again or contact support", nil)
	}
	return data, nil
}

// postJSON sends one JSON request and maps every failure mode onto the error
// taxonomy: transport problems, context expiry, and upstream HTTP statuses.
func (c *ProxyClient) postJSON(ctx context.Context, url string, body any, serviceKind Kind) ([]byte, error) {
	reqID := common.RequestIDFromContext(ctx)
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, newError(serviceKind, "internal encoding error", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, newError(serviceKind, "internal request error", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("extract.http.request", "req_id", reqID, "url", url, "content_length", len(bs))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("extract.http.send_error",
			"req_id", reqID, "url", url, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, transportError(ctx, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("extract.http.body_close_error", "req_id", reqID, "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("extract.http.response",
		"req_id", reqID, "url", url, "status", resp.StatusCode,
		"bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return nil, statusError(serviceKind, resp, raw)
	}
	return raw, nil
}

// transportError separates "the deadline ran out" from every other failure to
// reach the proxy at all.
func transportError(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return newError(KindTimeout, "the request timed out; please try again", err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return newError(KindNetworkError, "the request was cancelled", err)
	default:
		return newError(KindNetworkError,
			"could not reach the server; check your connection and try again", err)
	}
}

// statusError maps upstream HTTP statuses onto caller-facing messages:
// 401 means the proxy's credential is bad, 429 echoes Retry-After when the
// upstream provided one, everything else carries the upstream message when
// the body exposes one.
func statusError(serviceKind Kind, resp *http.Response, raw []byte) *Error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return newError(serviceKind, "authentication with the extraction service failed", nil)
	case http.StatusTooManyRequests:
		msg := "the extraction service is rate limited; please try again shortly"
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			msg = fmt.Sprintf("the extraction service is rate limited; retry in %s seconds", ra)
		}
		return newError(serviceKind, msg, nil)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return newError(KindTimeout, "the extraction service timed out; please try again", nil)
	}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return newError(serviceKind, env.Error.Message, nil)
	}
	return newError(serviceKind,
		fmt.Sprintf("the extraction service returned an error (status %d)", resp.StatusCode), nil)
}
