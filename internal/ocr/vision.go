// Package ocr wraps the Cloud Vision document-text-detection call that backs
// the OCR proxy endpoint. The API key stays server-side.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/caraseli02/invoice-extractor/internal/common"
)

// featureDocumentText selects the full-document text detection mode, which
// reads dense invoice layouts far better than plain TEXT_DETECTION.
const featureDocumentText = "DOCUMENT_TEXT_DETECTION"

// ServiceError reports that Vision itself rejected the request. Status is the
// upstream HTTP status when known, 0 otherwise.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("vision error (status %d): %s", e.Status, e.Message)
}

// ErrNoText means the call succeeded but the image contained no readable text.
var ErrNoText = errors.New("no text detected in image")

type Client struct {
	svc     *vision.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient builds the Vision client. Extra options are for tests (endpoint
// and transport overrides).
func NewClient(ctx context.Context, cfg common.VisionConfig, logger *slog.Logger, extra ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return &Client{svc: svc, timeout: timeout, logger: logger}, nil
}

// DetectText runs one annotate call and returns the full document text.
// The 30s ceiling is enforced here, at the proxy boundary, so a wedged
// upstream cannot hold a request open indefinitely.
func (c *Client) DetectText(ctx context.Context, imageBase64 string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	c.logger.Info("ocr.vision.start", "image_b64_bytes", len(imageBase64))

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: imageBase64},
			Features: []*vision.Feature{{Type: featureDocumentText}},
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			c.logger.Error("ocr.vision.api_error",
				"status", gerr.Code, "message", gerr.Message,
				"elapsed_ms", time.Since(start).Milliseconds())
			return "", &ServiceError{Status: gerr.Code, Message: gerr.Message}
		}
		c.logger.Error("ocr.vision.transport_error",
			"error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	if len(resp.Responses) == 0 {
		return "", &ServiceError{Message: "empty annotate response"}
	}
	r := resp.Responses[0]
	if r.Error != nil {
		c.logger.Error("ocr.vision.annotate_error",
			"code", r.Error.Code, "message", r.Error.Message,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", &ServiceError{Message: r.Error.Message}
	}
	if r.FullTextAnnotation == nil || r.FullTextAnnotation.Text == "" {
		c.logger.Warn("ocr.vision.no_text", "elapsed_ms", time.Since(start).Milliseconds())
		return "", ErrNoText
	}

	c.logger.Info("ocr.vision.ok",
		"text_bytes", len(r.FullTextAnnotation.Text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return r.FullTextAnnotation.Text, nil
}
